package core

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Mempool holds verified, not-yet-included transactions keyed by canonical
// id, insertion order preserved for mining selection (spec §3/§4.3). Grounded
// on the teacher's hash-keyed-lookup-plus-insertion-order-slice txpool
// shape, adapted to a single RWMutex-guarded struct with a size bound (spec
// §9 open question, resolved in SPEC_FULL.md).
type Mempool struct {
	mu      sync.RWMutex
	order   []string
	byID    map[string]*Transaction
	maxSize int
	log     *log.Logger
}

// NewMempool constructs an empty mempool bounded at maxSize entries. A
// maxSize <= 0 falls back to DefaultMempoolMax.
func NewMempool(maxSize int) *Mempool {
	if maxSize <= 0 {
		maxSize = DefaultMempoolMax
	}
	return &Mempool{
		order:   make([]string, 0),
		byID:    make(map[string]*Transaction),
		maxSize: maxSize,
		log:     log.StandardLogger(),
	}
}

// Submit checks structural validity (which rejects system transactions: the
// miner adds its coinbase itself), verifies the signature, rejects duplicates
// by id, and appends to the pool (spec §4.3).
func (m *Mempool) Submit(tx *Transaction) error {
	if err := tx.validateStructure(); err != nil {
		return err
	}
	if err := Verify(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[tx.ID]; exists {
		return newErr(ErrDuplicate, "transaction id already pending", nil)
	}
	if len(m.order) >= m.maxSize {
		return newErr(ErrMempoolFull, "mempool at capacity", nil)
	}
	m.byID[tx.ID] = tx
	m.order = append(m.order, tx.ID)
	m.log.WithField("tx", tx.ID).Debug("mempool: accepted transaction")
	return nil
}

// DrainForBlock returns up to limit pending transactions in insertion order,
// removing them from the pool. A limit <= 0 means unlimited.
func (m *Mempool) DrainForBlock(limit int) []*Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Transaction, 0, n)
	for _, id := range m.order[:n] {
		out = append(out, m.byID[id])
		delete(m.byID, id)
	}
	m.order = m.order[n:]
	return out
}

// RemoveIncluded drops any pool entries whose id appears in block, invoked
// when a peer-received block is applied (spec §4.3).
func (m *Mempool) RemoveIncluded(block *Block) {
	if block == nil || len(block.Transactions) == 0 {
		return
	}
	included := make(map[string]struct{}, len(block.Transactions))
	for _, tx := range block.Transactions {
		included[tx.ID] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.order[:0:0]
	for _, id := range m.order {
		if _, drop := included[id]; drop {
			delete(m.byID, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}

// Snapshot returns the pending transactions in insertion order without
// draining the pool, for the /api/transactions/pending surface.
func (m *Mempool) Snapshot() []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Transaction, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// Len returns the number of pending transactions.
func (m *Mempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}
