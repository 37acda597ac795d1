package network

import "context"

// MockBackend is a test double for BroadcastBackend.
// All function fields must be set before the corresponding method is called.
type MockBackend struct {
	NameValue string
	SubmitFn  func(ctx context.Context, rawTxHex string) (*SubmitResult, error)
}

func (m *MockBackend) Name() string { return m.NameValue }
func (m *MockBackend) Submit(ctx context.Context, rawTxHex string) (*SubmitResult, error) {
	return m.SubmitFn(ctx, rawTxHex)
}

// MockChainQuery is a test double for ChainQuery.
type MockChainQuery struct {
	IsOutputSpentFn    func(ctx context.Context, txid string, vout uint32) (string, error)
	GetTransactionFn   func(ctx context.Context, txid string) (*TxDetail, error)
	GetCurrentHeightFn func(ctx context.Context) (uint32, error)
}

func (m *MockChainQuery) IsOutputSpent(ctx context.Context, txid string, vout uint32) (string, error) {
	return m.IsOutputSpentFn(ctx, txid, vout)
}
func (m *MockChainQuery) GetTransaction(ctx context.Context, txid string) (*TxDetail, error) {
	return m.GetTransactionFn(ctx, txid)
}
func (m *MockChainQuery) GetCurrentHeight(ctx context.Context) (uint32, error) {
	return m.GetCurrentHeightFn(ctx)
}

// MockHistorySource is a test double for HistorySource.
type MockHistorySource struct {
	GetHistoryFn                 func(ctx context.Context, address string) ([]TxHistoryItem, error)
	GetTransactionDetailsBatchFn func(ctx context.Context, txids []string) ([]*TxDetail, error)
}

func (m *MockHistorySource) GetHistory(ctx context.Context, address string) ([]TxHistoryItem, error) {
	return m.GetHistoryFn(ctx, address)
}
func (m *MockHistorySource) GetTransactionDetailsBatch(ctx context.Context, txids []string) ([]*TxDetail, error) {
	return m.GetTransactionDetailsBatchFn(ctx, txids)
}
