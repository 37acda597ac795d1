package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// processorResponse is the ARC-style transaction processor response. The
// processor answers HTTP 200 even for rejections, with the failure carried in
// the status fields, so the body must always be inspected.
type processorResponse struct {
	TxID      string `json:"txid"`
	TxStatus  string `json:"txStatus"`
	Status    int    `json:"status"`
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	ExtraInfo string `json:"extraInfo"`
}

func (r *processorResponse) rejectedReason() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Title, r.Detail, r.ExtraInfo} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("processor status %d", r.Status)
	}
	return strings.Join(parts, ": ")
}

func (r *processorResponse) isAccepted() bool {
	switch strings.ToUpper(r.TxStatus) {
	case "RECEIVED", "STORED", "ANNOUNCED_TO_NETWORK", "REQUESTED_BY_NETWORK",
		"SENT_TO_NETWORK", "ACCEPTED_BY_NETWORK", "SEEN_ON_NETWORK", "MINED":
		return true
	}
	return false
}

// ProcessorBackend submits transactions to an ARC-style processor using a
// JSON request body.
type ProcessorBackend struct {
	url    string
	client *http.Client
}

var _ BroadcastBackend = (*ProcessorBackend)(nil)

// NewProcessorBackend creates a processor backend for the given submission
// endpoint, e.g. "https://arc.example.com/v1/tx".
func NewProcessorBackend(url string) *ProcessorBackend {
	return &ProcessorBackend{url: url, client: newHTTPClient()}
}

// Name implements BroadcastBackend.
func (p *ProcessorBackend) Name() string { return "processor-json" }

// Submit implements BroadcastBackend.
func (p *ProcessorBackend) Submit(ctx context.Context, rawTxHex string) (*SubmitResult, error) {
	body, err := json.Marshal(map[string]string{"rawTx": rawTxHex})
	if err != nil {
		return nil, fmt.Errorf("network: marshal request: %w", err)
	}
	return submitProcessor(ctx, p.client, p.url, "application/json", body)
}

// ProcessorTextBackend submits transactions to the same processor API using a
// text/plain body. Some deployments reject the JSON form but accept this one.
type ProcessorTextBackend struct {
	url    string
	client *http.Client
}

var _ BroadcastBackend = (*ProcessorTextBackend)(nil)

// NewProcessorTextBackend creates a text-body processor backend.
func NewProcessorTextBackend(url string) *ProcessorTextBackend {
	return &ProcessorTextBackend{url: url, client: newHTTPClient()}
}

// Name implements BroadcastBackend.
func (p *ProcessorTextBackend) Name() string { return "processor-text" }

// Submit implements BroadcastBackend.
func (p *ProcessorTextBackend) Submit(ctx context.Context, rawTxHex string) (*SubmitResult, error) {
	return submitProcessor(ctx, p.client, p.url, "text/plain", []byte(rawTxHex))
}

func submitProcessor(ctx context.Context, client *http.Client, url, contentType string, body []byte) (*SubmitResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("network: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return rejected(fmt.Sprintf("connection failed: %v", err)), nil
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return rejected(fmt.Sprintf("read response: %v", err)), nil
	}

	var pr processorResponse
	parseErr := json.Unmarshal(respBody, &pr)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parseErr != nil {
			return rejected(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(respBody))), nil
		}
		return rejected(pr.rejectedReason()), nil
	}
	// A 200 does not imply acceptance: the status fields decide. An
	// unreadable 200, or an accepted status without a plausible txid, is
	// ambiguous rather than a definite rejection.
	if parseErr != nil {
		return ambiguous(string(respBody)), nil
	}
	if !pr.isAccepted() {
		return rejected(pr.rejectedReason()), nil
	}
	if !IsValidTxID(pr.TxID) {
		return ambiguous(string(respBody)), nil
	}
	return accepted(strings.ToLower(pr.TxID)), nil
}
