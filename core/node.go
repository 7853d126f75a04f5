package core

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Orchestrator wires the chain/state engine, mempool, VM and network
// coordinator into the single guarded aggregate spec §5 calls for, and
// arbitrates API calls, mining, and peer events (spec §2 "Node
// Orchestrator"). A single mutex serializes every mutation of
// chain+balances+contracts+mempool; the mining task releases it for the
// CPU-bound PoW search and reacquires it to apply the result. Grounded on
// the teacher's per-subsystem sync.RWMutex pattern (Ledger.mu,
// Node.peerLock/topicLock), unified here into one guard per spec §9.
type Orchestrator struct {
	mu sync.Mutex

	chain   *Chain
	mempool *Mempool

	minerAddress Address
	miningReward uint64

	epoch atomic.Uint64

	net   *Node
	coord *Coordinator
	log   *log.Logger
}

// OrchestratorConfig configures a new Orchestrator (spec §6 configuration
// table plus the miner's own address).
type OrchestratorConfig struct {
	Difficulty   int
	MiningReward uint64
	MinerAddress Address
	Net          NetConfig
	MempoolMax   int
}

// NewOrchestrator builds the node's network transport and coordinator and
// returns a ready-to-run Orchestrator. Difficulty and reward are passed in
// by value and never consulted from a global afterward (spec §9).
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	netNode, err := NewNode(cfg.Net)
	if err != nil {
		return nil, err
	}
	coord := NewCoordinator(netNode, 256)
	coord.WatchPeers()

	return &Orchestrator{
		chain:        NewChain(cfg.Difficulty),
		mempool:      NewMempool(cfg.MempoolMax),
		minerAddress: cfg.MinerAddress,
		miningReward: cfg.MiningReward,
		net:          netNode,
		coord:        coord,
		log:          log.StandardLogger(),
	}, nil
}

// Run starts the coordinator's inbound/outbound gossip loops and the event
// arbitration loop. It blocks until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	go o.coord.RunOutbound(ctx)
	go func() {
		if err := o.coord.RunInbound(ctx, o.ChainSnapshot); err != nil {
			o.log.WithError(err).Warn("orchestrator: inbound gossip loop ended")
		}
	}()
	o.runEvents(ctx)
	return nil
}

func (o *Orchestrator) runEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-o.coord.Events():
			o.handleEvent(e)
		}
	}
}

// handleEvent applies the orchestration rules of spec §4.7.
func (o *Orchestrator) handleEvent(e Event) {
	switch e.Kind {
	case EvtTransactionReceived:
		o.mu.Lock()
		if err := o.mempool.Submit(e.Tx); err != nil {
			o.log.WithError(err).Debug("orchestrator: dropped received transaction")
		}
		o.mu.Unlock()

	case EvtBlockReceived:
		o.mu.Lock()
		tip := o.chain.Tip()
		switch {
		case e.Block.Index == tip.Index+1 && e.Block.PreviousHash == tip.Hash:
			if err := o.chain.ApplyBlock(e.Block); err != nil {
				o.log.WithError(err).Debug("orchestrator: rejected received block")
			} else {
				o.mempool.RemoveIncluded(e.Block)
				o.epoch.Add(1)
			}
			o.mu.Unlock()
		case e.Block.Index > tip.Index+1:
			o.mu.Unlock()
			o.coord.Dispatch(Command{Kind: CmdRequestChain})
		default:
			o.mu.Unlock()
		}

	case EvtChainReceived:
		o.mu.Lock()
		if err := o.chain.ReplaceChain(e.Chain); err != nil {
			o.log.WithError(err).Debug("orchestrator: chain replacement rejected")
		} else {
			for _, b := range o.chain.Blocks {
				o.mempool.RemoveIncluded(b)
			}
			o.epoch.Add(1)
		}
		o.mu.Unlock()

	case EvtPeerConnected:
		o.log.WithField("peer", e.PeerID).Info("orchestrator: peer connected")
	case EvtPeerDisconnected:
		o.log.WithField("peer", e.PeerID).Info("orchestrator: peer disconnected")
	}
}

// SubmitTransaction validates and enqueues tx (spec §4.3 submit).
func (o *Orchestrator) SubmitTransaction(tx *Transaction) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mempool.Submit(tx)
}

// MineOnce performs a single mining attempt: it drains the mempool, builds
// and searches a candidate block, and applies it on success (spec §4.4/§6
// POST /api/blocks/mine). The PoW search runs with the guard released; the
// guard is reacquired only to apply the result.
func (o *Orchestrator) MineOnce() (*Block, error) {
	o.mu.Lock()
	tip := o.chain.Tip()
	startEpoch := o.epoch.Load()
	difficulty := o.chain.Difficulty
	pending := o.mempool.DrainForBlock(0)
	o.mu.Unlock()

	reward := NewSystemTransaction(o.minerAddress, o.miningReward)
	txs := append([]*Transaction{reward}, pending...)

	block, err := Mine(tip, txs, difficulty, &o.epoch, startEpoch)
	if err != nil {
		o.requeue(pending)
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.chain.Tip().Hash != tip.Hash {
		o.requeueLocked(pending)
		return nil, newErr(ErrMiningPreempted, "chain tip changed before block could be applied", nil)
	}
	if err := o.chain.ApplyBlock(block); err != nil {
		o.requeueLocked(pending)
		return nil, err
	}
	o.epoch.Add(1)
	o.coord.Dispatch(Command{Kind: CmdBroadcastBlock, Block: block})
	return block, nil
}

func (o *Orchestrator) requeue(pending []*Transaction) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requeueLocked(pending)
}

func (o *Orchestrator) requeueLocked(pending []*Transaction) {
	for _, tx := range pending {
		_ = o.mempool.Submit(tx)
	}
}

// DeployContract compile-checks the deploy source up front (so a malformed
// program surfaces as a 4xx at submission rather than silently failing at
// block-application time), submits the deploy transaction, and mines it
// immediately so the REST caller gets a usable contract address back (spec
// §6 POST /api/contracts/deploy). The address is deterministic given
// sender+timestamp, so it can be computed before the mine completes.
func (o *Orchestrator) DeployContract(tx *Transaction) (Address, error) {
	if tx.ContractPayload == nil || tx.ContractPayload.Deploy == "" {
		return "", newErr(ErrMalformed, "not a deploy transaction", nil)
	}
	if _, err := Compile(tx.ContractPayload.Deploy); err != nil {
		return "", err
	}
	addr := deriveContractAddress(Address(tx.Sender), tx.Timestamp)

	if err := o.SubmitTransaction(tx); err != nil {
		return "", err
	}
	if _, err := o.MineOnce(); err != nil {
		return "", err
	}
	return addr, nil
}

// CallContract submits a call transaction and mines it immediately,
// returning the VM receipt recorded during block application (spec §6 POST
// /api/contracts/call).
func (o *Orchestrator) CallContract(tx *Transaction) (*Receipt, error) {
	if tx.ContractPayload == nil || tx.ContractPayload.Call == nil {
		return nil, newErr(ErrMalformed, "not a call transaction", nil)
	}
	if err := o.SubmitTransaction(tx); err != nil {
		return nil, err
	}
	if _, err := o.MineOnce(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.chain.ReceiptFor(tx.ID)
	if !ok {
		return &Receipt{Success: false, Error: string(ErrMalformed)}, nil
	}
	return r, nil
}

// Balance returns addr's current balance (spec §6 GET /api/balance/:address).
func (o *Orchestrator) Balance(addr Address) int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.chain.Balance(addr)
}

// ChainSnapshot returns a shallow copy of the current chain (spec §6 GET
// /api/chain).
func (o *Orchestrator) ChainSnapshot() []*Block {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*Block, len(o.chain.Blocks))
	copy(out, o.chain.Blocks)
	return out
}

// ValidateChain replays the current chain and reports whether it is valid
// (spec §6 GET /api/chain/valid).
func (o *Orchestrator) ValidateChain() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.chain.ValidateChain(o.chain.Blocks)
}

// BlockByIndex looks up a block (spec §6 GET /api/blocks/:index).
func (o *Orchestrator) BlockByIndex(index uint64) (*Block, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.chain.GetBlock(index)
}

// PendingTransactions returns a mempool snapshot (spec §6 GET
// /api/transactions/pending).
func (o *Orchestrator) PendingTransactions() []*Transaction {
	return o.mempool.Snapshot()
}

// TransactionProof returns the block a transaction was mined into plus its
// Merkle inclusion proof (GET /api/transactions/:id/proof).
func (o *Orchestrator) TransactionProof(txID string) (*Block, []ProofStep, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.chain.TxProof(txID)
}

// NodeInfo is the response shape for GET /api/node/info.
type NodeInfo struct {
	TipIndex   uint64 `json:"tip_index"`
	PeerCount  int    `json:"peer_count"`
	Difficulty int    `json:"difficulty"`
}

// Info returns a snapshot of tip index, peer count and difficulty.
func (o *Orchestrator) Info() NodeInfo {
	o.mu.Lock()
	tip := o.chain.Tip().Index
	difficulty := o.chain.Difficulty
	o.mu.Unlock()
	return NodeInfo{TipIndex: tip, PeerCount: len(o.net.Peers()), Difficulty: difficulty}
}

// Peers returns the current known peer list (spec §6 GET /api/peers).
func (o *Orchestrator) Peers() []*Peer { return o.net.Peers() }

// Close tears down the network transport.
func (o *Orchestrator) Close() error { return o.net.Close() }
