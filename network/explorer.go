package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// explorerBatchSize limits how many txids go into one batch details request.
const explorerBatchSize = 20

// ExplorerClient talks to a WhatsOnChain-style block explorer API. It serves
// three roles: broadcast backend, chain query, and address history source.
type ExplorerClient struct {
	baseURL string
	client  *http.Client
}

var _ BroadcastBackend = (*ExplorerClient)(nil)
var _ ChainQuery = (*ExplorerClient)(nil)
var _ HistorySource = (*ExplorerClient)(nil)

// NewExplorerClient creates an explorer client for the given API base URL,
// e.g. "https://api.whatsonchain.com/v1/bsv/main".
func NewExplorerClient(baseURL string) *ExplorerClient {
	return &ExplorerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(),
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}
}

// Name implements BroadcastBackend.
func (c *ExplorerClient) Name() string { return "explorer" }

// Submit broadcasts a raw transaction via the explorer. The explorer answers
// a bare JSON string holding the txid; anything else is a rejection.
func (c *ExplorerClient) Submit(ctx context.Context, rawTxHex string) (*SubmitResult, error) {
	body, err := json.Marshal(map[string]string{"txhex": rawTxHex})
	if err != nil {
		return nil, fmt.Errorf("network: marshal request: %w", err)
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/tx/raw", body)
	if err != nil {
		return rejected(err.Error()), nil
	}
	if status < 200 || status >= 300 {
		return rejected(fmt.Sprintf("HTTP %d: %s", status, string(respBody))), nil
	}

	var txid string
	if err := json.Unmarshal(respBody, &txid); err != nil {
		// Some deployments return the txid unquoted.
		txid = strings.TrimSpace(string(respBody))
	}
	if !IsValidTxID(txid) {
		// A 200 without a plausible txid proves nothing either way.
		return ambiguous(string(respBody)), nil
	}
	return accepted(strings.ToLower(txid)), nil
}

// IsOutputSpent implements ChainQuery. A 404 means the outpoint is unspent.
func (c *ExplorerClient) IsOutputSpent(ctx context.Context, txid string, vout uint32) (string, error) {
	path := fmt.Sprintf("/tx/%s/%d/spent", txid, vout)
	status, respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrConnectionFailed, status, string(respBody))
	}

	var spent struct {
		TxID string `json:"txid"`
	}
	if err := json.Unmarshal(respBody, &spent); err != nil {
		return "", fmt.Errorf("%w: decode spent response: %w", ErrInvalidResponse, err)
	}
	if spent.TxID != "" && !IsValidTxID(spent.TxID) {
		return "", fmt.Errorf("%w: malformed spending txid %q", ErrInvalidResponse, spent.TxID)
	}
	return spent.TxID, nil
}

// GetTransaction implements ChainQuery.
func (c *ExplorerClient) GetTransaction(ctx context.Context, txid string) (*TxDetail, error) {
	status, respBody, err := c.do(ctx, http.MethodGet, "/tx/hash/"+txid, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txid)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrConnectionFailed, status, string(respBody))
	}

	var detail TxDetail
	if err := json.Unmarshal(respBody, &detail); err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %w", ErrInvalidResponse, err)
	}
	return &detail, nil
}

// GetCurrentHeight implements ChainQuery.
func (c *ExplorerClient) GetCurrentHeight(ctx context.Context) (uint32, error) {
	status, respBody, err := c.do(ctx, http.MethodGet, "/chain/info", nil)
	if err != nil {
		return 0, err
	}
	if status < 200 || status >= 300 {
		return 0, fmt.Errorf("%w: HTTP %d: %s", ErrConnectionFailed, status, string(respBody))
	}

	var info struct {
		Blocks uint32 `json:"blocks"`
	}
	if err := json.Unmarshal(respBody, &info); err != nil {
		return 0, fmt.Errorf("%w: decode chain info: %w", ErrInvalidResponse, err)
	}
	if info.Blocks == 0 {
		return 0, fmt.Errorf("%w: zero block height", ErrInvalidResponse)
	}
	return info.Blocks, nil
}

// GetHistory implements HistorySource.
func (c *ExplorerClient) GetHistory(ctx context.Context, address string) ([]TxHistoryItem, error) {
	status, respBody, err := c.do(ctx, http.MethodGet, "/address/"+address+"/history", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrConnectionFailed, status, string(respBody))
	}

	var items []TxHistoryItem
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, fmt.Errorf("%w: decode history: %w", ErrInvalidResponse, err)
	}
	return items, nil
}

// GetTransactionDetailsBatch implements HistorySource. Requests are chunked;
// txids the explorer does not know come back as nil entries.
func (c *ExplorerClient) GetTransactionDetailsBatch(ctx context.Context, txids []string) ([]*TxDetail, error) {
	results := make([]*TxDetail, 0, len(txids))

	for start := 0; start < len(txids); start += explorerBatchSize {
		end := start + explorerBatchSize
		if end > len(txids) {
			end = len(txids)
		}
		chunk := txids[start:end]

		body, err := json.Marshal(map[string][]string{"txids": chunk})
		if err != nil {
			return nil, fmt.Errorf("network: marshal batch request: %w", err)
		}
		status, respBody, err := c.do(ctx, http.MethodPost, "/txs", body)
		if err != nil {
			return nil, err
		}
		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("%w: HTTP %d: %s", ErrConnectionFailed, status, string(respBody))
		}

		var details []*TxDetail
		if err := json.Unmarshal(respBody, &details); err != nil {
			return nil, fmt.Errorf("%w: decode batch: %w", ErrInvalidResponse, err)
		}

		// Re-key by txid so missing entries stay aligned with the request.
		byID := make(map[string]*TxDetail, len(details))
		for _, d := range details {
			if d != nil {
				byID[d.TxID] = d
			}
		}
		for _, id := range chunk {
			results = append(results, byID[id])
		}
	}
	return results, nil
}

// do performs an HTTP request against the explorer and returns the status
// code and body. Only transport-level failures produce an error.
func (c *ExplorerClient) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("network: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %w", ErrInvalidResponse, err)
	}
	return resp.StatusCode, respBody, nil
}
