package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/simplysats/libwallet-go/tx"
)

var (
	bucketUTXOs = []byte("utxos")
	bucketLocks = []byte("locks")
	bucketTxs   = []byte("txs")
)

// BoltStore persists wallet state in a single bbolt database. It implements
// both UTXOStore and LockStore.
type BoltStore struct {
	db *bbolt.DB
}

var _ UTXOStore = (*BoltStore)(nil)
var _ LockStore = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(btx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUTXOs, bucketLocks, bucketTxs} {
			if _, err := btx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// outpointKey builds the bucket key for a txid/vout pair.
func outpointKey(txid string, vout uint32) []byte {
	return []byte(fmt.Sprintf("%s:%d", txid, vout))
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// ---------------------------------------------------------------------------
// UTXOStore
// ---------------------------------------------------------------------------

// AddUTXO implements UTXOStore.
func (s *BoltStore) AddUTXO(rec *UTXORecord) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return putUTXO(btx, rec)
	})
}

// GetUTXO implements UTXOStore.
func (s *BoltStore) GetUTXO(txid string, vout uint32) (*UTXORecord, error) {
	var rec UTXORecord
	err := s.db.View(func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketUTXOs).Get(outpointKey(txid, vout))
		if data == nil {
			return fmt.Errorf("%w: %s:%d", ErrUTXONotFound, txid, vout)
		}
		return decodeGob(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetSpendable implements UTXOStore.
func (s *BoltStore) GetSpendable(basket string) ([]*UTXORecord, error) {
	var utxos []*UTXORecord
	err := s.db.View(func(btx *bbolt.Tx) error {
		return btx.Bucket(bucketUTXOs).ForEach(func(k, v []byte) error {
			var rec UTXORecord
			if err := decodeGob(v, &rec); err != nil {
				return fmt.Errorf("boltstore: decode utxo: %w", err)
			}
			if rec.SpendState != SpendStateFree {
				return nil
			}
			if basket != "" && rec.Basket != basket {
				return nil
			}
			utxos = append(utxos, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return utxos, nil
}

// MarkPending implements UTXOStore.
func (s *BoltStore) MarkPending(outpoints []tx.Outpoint, pendingTxID string) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return markPending(btx, outpoints, pendingTxID)
	})
}

// Rollback implements UTXOStore.
func (s *BoltStore) Rollback(outpoints []tx.Outpoint, pendingTxID string) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return rollback(btx, outpoints, pendingTxID)
	})
}

// ConfirmSpent implements UTXOStore.
func (s *BoltStore) ConfirmSpent(outpoints []tx.Outpoint, finalTxID string) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return confirmSpent(btx, outpoints, finalTxID)
	})
}

// DeleteUTXO implements UTXOStore.
func (s *BoltStore) DeleteUTXO(txid string, vout uint32) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return btx.Bucket(bucketUTXOs).Delete(outpointKey(txid, vout))
	})
}

// RecordTransaction implements UTXOStore.
func (s *BoltStore) RecordTransaction(rec *TxRecord) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return putTxRecord(btx, rec)
	})
}

// GetTransaction implements UTXOStore.
func (s *BoltStore) GetTransaction(txid string) (*TxRecord, error) {
	var rec TxRecord
	err := s.db.View(func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketTxs).Get([]byte(txid))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrTxNotFound, txid)
		}
		return decodeGob(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// WithAtomicUpdate implements UTXOStore.
func (s *BoltStore) WithAtomicUpdate(fn func(StateTxn) error) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&boltStateTxn{btx: btx})
	})
}

// boltStateTxn adapts a live bbolt write transaction to StateTxn.
type boltStateTxn struct {
	btx *bbolt.Tx
}

var _ StateTxn = (*boltStateTxn)(nil)

func (t *boltStateTxn) AddUTXO(rec *UTXORecord) error { return putUTXO(t.btx, rec) }
func (t *boltStateTxn) ConfirmSpent(outpoints []tx.Outpoint, finalTxID string) error {
	return confirmSpent(t.btx, outpoints, finalTxID)
}
func (t *boltStateTxn) Rollback(outpoints []tx.Outpoint, pendingTxID string) error {
	return rollback(t.btx, outpoints, pendingTxID)
}
func (t *boltStateTxn) RecordTransaction(rec *TxRecord) error { return putTxRecord(t.btx, rec) }

// ---------------------------------------------------------------------------
// Shared write helpers. Public methods and StateTxn both route through these
// so granular and atomic updates cannot drift apart.
// ---------------------------------------------------------------------------

func putUTXO(btx *bbolt.Tx, rec *UTXORecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	data, err := encodeGob(rec)
	if err != nil {
		return fmt.Errorf("boltstore: encode utxo: %w", err)
	}
	return btx.Bucket(bucketUTXOs).Put(outpointKey(rec.TxID, rec.Vout), data)
}

func markPending(btx *bbolt.Tx, outpoints []tx.Outpoint, pendingTxID string) error {
	b := btx.Bucket(bucketUTXOs)
	for _, op := range outpoints {
		key := outpointKey(op.TxID, op.Vout)
		data := b.Get(key)
		if data == nil {
			return fmt.Errorf("%w: %s:%d", ErrUTXONotFound, op.TxID, op.Vout)
		}
		var rec UTXORecord
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("boltstore: decode utxo: %w", err)
		}
		if rec.SpendState != SpendStateFree {
			return fmt.Errorf("%w: %s:%d is %s", ErrUTXONotFree, op.TxID, op.Vout, rec.SpendState)
		}
		rec.SpendState = SpendStatePending
		rec.PendingTxID = pendingTxID
		encoded, err := encodeGob(&rec)
		if err != nil {
			return fmt.Errorf("boltstore: encode utxo: %w", err)
		}
		if err := b.Put(key, encoded); err != nil {
			return fmt.Errorf("boltstore: put utxo: %w", err)
		}
	}
	return nil
}

func rollback(btx *bbolt.Tx, outpoints []tx.Outpoint, pendingTxID string) error {
	b := btx.Bucket(bucketUTXOs)
	for _, op := range outpoints {
		key := outpointKey(op.TxID, op.Vout)
		data := b.Get(key)
		if data == nil {
			continue
		}
		var rec UTXORecord
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("boltstore: decode utxo: %w", err)
		}
		// Only release coins this transaction reserved.
		if rec.SpendState != SpendStatePending || rec.PendingTxID != pendingTxID {
			continue
		}
		rec.SpendState = SpendStateFree
		rec.PendingTxID = ""
		encoded, err := encodeGob(&rec)
		if err != nil {
			return fmt.Errorf("boltstore: encode utxo: %w", err)
		}
		if err := b.Put(key, encoded); err != nil {
			return fmt.Errorf("boltstore: put utxo: %w", err)
		}
	}
	return nil
}

func confirmSpent(btx *bbolt.Tx, outpoints []tx.Outpoint, finalTxID string) error {
	b := btx.Bucket(bucketUTXOs)
	for _, op := range outpoints {
		key := outpointKey(op.TxID, op.Vout)
		data := b.Get(key)
		if data == nil {
			return fmt.Errorf("%w: %s:%d", ErrUTXONotFound, op.TxID, op.Vout)
		}
		var rec UTXORecord
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("boltstore: decode utxo: %w", err)
		}
		if rec.SpendState == SpendStateSpent {
			if rec.SpentTxID != finalTxID {
				return fmt.Errorf("%w: %s:%d spent by %s, not %s",
					ErrConflictingSpend, op.TxID, op.Vout, rec.SpentTxID, finalTxID)
			}
			continue
		}
		rec.SpendState = SpendStateSpent
		rec.SpentTxID = finalTxID
		rec.PendingTxID = ""
		encoded, err := encodeGob(&rec)
		if err != nil {
			return fmt.Errorf("boltstore: encode utxo: %w", err)
		}
		if err := b.Put(key, encoded); err != nil {
			return fmt.Errorf("boltstore: put utxo: %w", err)
		}
	}
	return nil
}

func putTxRecord(btx *bbolt.Tx, rec *TxRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	data, err := encodeGob(rec)
	if err != nil {
		return fmt.Errorf("boltstore: encode tx record: %w", err)
	}
	return btx.Bucket(bucketTxs).Put([]byte(rec.TxID), data)
}

// ---------------------------------------------------------------------------
// LockStore
// ---------------------------------------------------------------------------

// AddLockIfNotExists implements LockStore.
func (s *BoltStore) AddLockIfNotExists(rec *LockRecord) (bool, error) {
	inserted := false
	err := s.db.Update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(bucketLocks)
		key := outpointKey(rec.TxID, rec.Vout)
		if b.Get(key) != nil {
			return nil
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now()
		}
		data, err := encodeGob(rec)
		if err != nil {
			return fmt.Errorf("boltstore: encode lock: %w", err)
		}
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("boltstore: put lock: %w", err)
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// GetLock implements LockStore.
func (s *BoltStore) GetLock(txid string, vout uint32) (*LockRecord, error) {
	var rec LockRecord
	err := s.db.View(func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketLocks).Get(outpointKey(txid, vout))
		if data == nil {
			return fmt.Errorf("%w: %s:%d", ErrLockNotFound, txid, vout)
		}
		return decodeGob(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateLockBlock implements LockStore.
func (s *BoltStore) UpdateLockBlock(txid string, vout uint32, lockBlock uint32) error {
	return s.updateLock(txid, vout, func(rec *LockRecord) error {
		if rec.LockBlock != 0 {
			if rec.LockBlock == lockBlock {
				return nil
			}
			return fmt.Errorf("%w: %s:%d at height %d", ErrLockBlockKnown, txid, vout, rec.LockBlock)
		}
		rec.LockBlock = lockBlock
		return nil
	})
}

// MarkUnlocked implements LockStore.
func (s *BoltStore) MarkUnlocked(txid string, vout uint32, at time.Time) error {
	return s.updateLock(txid, vout, func(rec *LockRecord) error {
		if rec.UnlockedAt == nil {
			rec.UnlockedAt = &at
		}
		return nil
	})
}

// DeleteLock implements LockStore.
func (s *BoltStore) DeleteLock(txid string, vout uint32) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return btx.Bucket(bucketLocks).Delete(outpointKey(txid, vout))
	})
}

// ListLocks implements LockStore.
func (s *BoltStore) ListLocks() ([]*LockRecord, error) {
	var locks []*LockRecord
	err := s.db.View(func(btx *bbolt.Tx) error {
		return btx.Bucket(bucketLocks).ForEach(func(k, v []byte) error {
			var rec LockRecord
			if err := decodeGob(v, &rec); err != nil {
				return fmt.Errorf("boltstore: decode lock: %w", err)
			}
			if rec.UnlockedAt != nil {
				return nil
			}
			locks = append(locks, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return locks, nil
}

// GetLocks implements LockStore.
func (s *BoltStore) GetLocks(currentHeight uint32) ([]LockStatus, error) {
	locks, err := s.ListLocks()
	if err != nil {
		return nil, err
	}
	statuses := make([]LockStatus, 0, len(locks))
	for _, rec := range locks {
		st := LockStatus{Lock: rec, Spendable: currentHeight >= rec.UnlockBlock}
		if !st.Spendable {
			st.BlocksRemaining = rec.UnlockBlock - currentHeight
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func (s *BoltStore) updateLock(txid string, vout uint32, mutate func(*LockRecord) error) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(bucketLocks)
		key := outpointKey(txid, vout)
		data := b.Get(key)
		if data == nil {
			return fmt.Errorf("%w: %s:%d", ErrLockNotFound, txid, vout)
		}
		var rec LockRecord
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("boltstore: decode lock: %w", err)
		}
		if err := mutate(&rec); err != nil {
			return err
		}
		encoded, err := encodeGob(&rec)
		if err != nil {
			return fmt.Errorf("boltstore: encode lock: %w", err)
		}
		if err := b.Put(key, encoded); err != nil {
			return fmt.Errorf("boltstore: put lock: %w", err)
		}
		return nil
	})
}
