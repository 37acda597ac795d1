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

// MerchantBackend submits transactions to a legacy merchant API (mAPI). The
// response nests the real result as a JSON document encoded inside the
// payload string, and always arrives with HTTP 200, so acceptance is decided
// entirely by the decoded payload.
type MerchantBackend struct {
	url    string
	client *http.Client
}

var _ BroadcastBackend = (*MerchantBackend)(nil)

// NewMerchantBackend creates a merchant API backend for the given submission
// endpoint, e.g. "https://merchantapi.example.com/mapi/tx".
func NewMerchantBackend(url string) *MerchantBackend {
	return &MerchantBackend{url: url, client: newHTTPClient()}
}

// Name implements BroadcastBackend.
func (m *MerchantBackend) Name() string { return "merchant" }

type merchantEnvelope struct {
	Payload string `json:"payload"`
}

type merchantPayload struct {
	ReturnResult      string `json:"returnResult"`
	ResultDescription string `json:"resultDescription"`
	TxID              string `json:"txid"`
}

// Submit implements BroadcastBackend.
func (m *MerchantBackend) Submit(ctx context.Context, rawTxHex string) (*SubmitResult, error) {
	body, err := json.Marshal(map[string]string{"rawtx": rawTxHex})
	if err != nil {
		return nil, fmt.Errorf("network: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("network: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return rejected(fmt.Sprintf("connection failed: %v", err)), nil
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return rejected(fmt.Sprintf("read response: %v", err)), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return rejected(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(respBody))), nil
	}

	// The merchant API always answers 200; an envelope that cannot be read is
	// ambiguous, not a definite rejection.
	var envelope merchantEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil || envelope.Payload == "" {
		return ambiguous(string(respBody)), nil
	}

	var payload merchantPayload
	if err := json.Unmarshal([]byte(envelope.Payload), &payload); err != nil {
		return ambiguous(envelope.Payload), nil
	}

	if !strings.EqualFold(payload.ReturnResult, "success") {
		reason := payload.ResultDescription
		if reason == "" {
			reason = fmt.Sprintf("returnResult %q", payload.ReturnResult)
		}
		return rejected(reason), nil
	}
	if !IsValidTxID(payload.TxID) {
		return ambiguous(envelope.Payload), nil
	}
	return accepted(strings.ToLower(payload.TxID)), nil
}
