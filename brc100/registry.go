package brc100

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

const (
	// DefaultRequestTTL is how long an application request may stay
	// unresolved.
	DefaultRequestTTL = 120 * time.Second

	// DefaultCapacity bounds the number of simultaneously pending
	// requests; the oldest entry is evicted past it.
	DefaultCapacity = 256
)

// Response is the terminal state of an application request.
type Response struct {
	TxID     string
	Satoshis uint64
	Err      error
}

type pendingRequest struct {
	Kind string
	done chan Response
}

// Registry tracks in-flight application requests by id. Every pending
// request is resolved exactly once: by Resolve, by expiry, or by capacity
// eviction; the latter two resolve it with ErrRequestExpired so no waiter
// hangs forever.
type Registry struct {
	pending *ttlcache.Cache[string, *pendingRequest]
}

// NewRegistry creates a registry. Non-positive arguments fall back to the
// defaults.
func NewRegistry(ttl time.Duration, capacity uint64) *Registry {
	if ttl <= 0 {
		ttl = DefaultRequestTTL
	}
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	cache := ttlcache.New[string, *pendingRequest](
		ttlcache.WithTTL[string, *pendingRequest](ttl),
		ttlcache.WithCapacity[string, *pendingRequest](capacity),
		ttlcache.WithDisableTouchOnHit[string, *pendingRequest](),
	)
	cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason,
		item *ttlcache.Item[string, *pendingRequest]) {
		if reason == ttlcache.EvictionReasonDeleted {
			// Explicit resolution already answered the waiter.
			return
		}
		select {
		case item.Value().done <- Response{Err: ErrRequestExpired}:
		default:
		}
	})
	go cache.Start()

	return &Registry{pending: cache}
}

// Register creates a pending request of the given kind and returns its id.
func (r *Registry) Register(kind string) string {
	id := uuid.NewString()
	r.pending.Set(id, &pendingRequest{
		Kind: kind,
		done: make(chan Response, 1),
	}, ttlcache.DefaultTTL)
	return id
}

// Resolve completes a pending request.
func (r *Registry) Resolve(id string, resp Response) error {
	item := r.pending.Get(id)
	if item == nil {
		return ErrRequestNotFound
	}
	select {
	case item.Value().done <- resp:
	default:
	}
	r.pending.Delete(id)
	return nil
}

// Await blocks until the request resolves, expires, or ctx is done.
func (r *Registry) Await(ctx context.Context, id string) (Response, error) {
	item := r.pending.Get(id)
	if item == nil {
		return Response{}, ErrRequestNotFound
	}
	select {
	case resp := <-item.Value().done:
		if resp.Err != nil {
			return Response{}, resp.Err
		}
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Stop halts the expiry goroutine.
func (r *Registry) Stop() {
	r.pending.Stop()
}
