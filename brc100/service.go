package brc100

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simplysats/libwallet-go/tx"
	"github.com/simplysats/libwallet-go/wallet"
)

// Service answers BRC-100 style application requests against the wallet
// engine. Each call registers a tracked request, runs the wallet operation,
// and resolves the request with the outcome, so a disconnected application
// can still poll the result by id until it expires.
type Service struct {
	engine   *wallet.Engine
	registry *Registry
	log      zerolog.Logger
}

// NewService creates a request service.
func NewService(engine *wallet.Engine, registry *Registry, log zerolog.Logger) *Service {
	return &Service{
		engine:   engine,
		registry: registry,
		log:      log.With().Str("component", "brc100").Logger(),
	}
}

// Registry exposes the underlying request registry.
func (s *Service) Registry() *Registry { return s.registry }

// CreateActionParams is an application's multi-output payment request.
type CreateActionParams struct {
	Description string         `json:"description"`
	Outputs     []tx.Recipient `json:"outputs"`
}

// ActionResult reports a completed application request.
type ActionResult struct {
	RequestID string `json:"requestId"`
	TxID      string `json:"txid"`
	Satoshis  uint64 `json:"satoshis"`
}

// HandleCreateAction runs a payment action for an application.
func (s *Service) HandleCreateAction(ctx context.Context, wif string, params CreateActionParams) (*ActionResult, error) {
	if len(params.Outputs) == 0 {
		return nil, fmt.Errorf("%w: no outputs", ErrInvalidRequest)
	}

	id := s.registry.Register("createAction")
	s.log.Debug().Str("request_id", id).Str("description", params.Description).
		Int("outputs", len(params.Outputs)).Msg("create action")

	res, err := s.engine.SendMultiOutput(ctx, wif, params.Outputs, nil)
	if err != nil {
		_ = s.registry.Resolve(id, Response{Err: err})
		return nil, err
	}

	var total uint64
	for _, o := range params.Outputs {
		total += o.Satoshis
	}
	_ = s.registry.Resolve(id, Response{TxID: res.TxID, Satoshis: total})
	return &ActionResult{RequestID: id, TxID: res.TxID, Satoshis: total}, nil
}

// LockParams is an application's time-lock request.
type LockParams struct {
	Satoshis      uint64 `json:"satoshis"`
	UnlockBlocks  uint32 `json:"unlockBlocks"`
	OrdinalOrigin string `json:"ordinalOrigin,omitempty"`
}

// LockResult reports a completed lock request.
type LockResult struct {
	RequestID   string `json:"requestId"`
	TxID        string `json:"txid"`
	UnlockBlock uint32 `json:"unlockBlock"`
}

// HandleLockBSV locks coins on behalf of an application.
func (s *Service) HandleLockBSV(ctx context.Context, wif string, params LockParams) (*LockResult, error) {
	if params.Satoshis == 0 || params.UnlockBlocks == 0 {
		return nil, fmt.Errorf("%w: zero amount or duration", ErrInvalidRequest)
	}

	id := s.registry.Register("lockBSV")
	res, err := s.engine.CreateLock(ctx, wif, params.Satoshis, params.UnlockBlocks, params.OrdinalOrigin, nil)
	if err != nil {
		_ = s.registry.Resolve(id, Response{Err: err})
		return nil, err
	}

	_ = s.registry.Resolve(id, Response{TxID: res.TxID, Satoshis: params.Satoshis})
	return &LockResult{RequestID: id, TxID: res.TxID, UnlockBlock: res.UnlockBlock}, nil
}

// UnlockParams is an application's lock-release request.
type UnlockParams struct {
	TxID      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	ToAddress string `json:"toAddress"`
}

// HandleUnlockBSV releases a matured lock on behalf of an application.
func (s *Service) HandleUnlockBSV(ctx context.Context, wif string, params UnlockParams) (*ActionResult, error) {
	if params.TxID == "" || params.ToAddress == "" {
		return nil, fmt.Errorf("%w: missing txid or address", ErrInvalidRequest)
	}

	id := s.registry.Register("unlockBSV")
	res, err := s.engine.ReleaseLock(ctx, wif, params.TxID, params.Vout, params.ToAddress)
	if err != nil {
		_ = s.registry.Resolve(id, Response{Err: err})
		return nil, err
	}

	_ = s.registry.Resolve(id, Response{TxID: res.TxID, Satoshis: res.Satoshis})
	return &ActionResult{RequestID: id, TxID: res.TxID, Satoshis: res.Satoshis}, nil
}
