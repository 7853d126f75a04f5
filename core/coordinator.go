package core

import (
	"context"
	"encoding/json"

	"github.com/libp2p/go-libp2p/core/network"
	log "github.com/sirupsen/logrus"
)

// Gossip topics (spec §4.7).
const (
	TopicTransactions = "transactions"
	TopicBlocks       = "blocks"
	TopicChain        = "chain"
)

// CommandKind tags an outbound Command (spec §4.7 Commands: node -> transport).
type CommandKind int

const (
	CmdBroadcastTransaction CommandKind = iota
	CmdBroadcastBlock
	CmdRequestChain
)

// Command is the tagged variant sent from the node to the transport.
type Command struct {
	Kind  CommandKind
	Tx    *Transaction
	Block *Block
}

// EventKind tags an inbound Event (spec §4.7 Events: transport -> node).
type EventKind int

const (
	EvtTransactionReceived EventKind = iota
	EvtBlockReceived
	EvtChainReceived
	EvtPeerConnected
	EvtPeerDisconnected
)

// Event is the tagged variant delivered from the transport to the node.
type Event struct {
	Kind   EventKind
	Tx     *Transaction
	Block  *Block
	Chain  []*Block
	PeerID NodeID
}

// chainWireMessage is the envelope carried on the "chain" topic: either a
// request for the full chain, or the chain itself (spec §4.7 "RequestChain
// is answered by peers sending back their full chain on the chain topic").
type chainWireMessage struct {
	Kind  string   `json:"kind"`
	Chain []*Block `json:"chain,omitempty"`
}

// Coordinator is the Command/Event channel pair described in spec §4.7,
// layered on top of Node's topic primitives. It owns outbound backpressure
// (spec §5: bounded channels, blocks take priority over transactions on
// drop) and translates gossip traffic into Events for the orchestrator.
type Coordinator struct {
	node *Node

	blockCmds chan Command
	txCmds    chan Command
	events    chan Event

	log *log.Logger
}

// NewCoordinator builds a coordinator over node with the given per-channel
// buffer size.
func NewCoordinator(node *Node, bufSize int) *Coordinator {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Coordinator{
		node:      node,
		blockCmds: make(chan Command, bufSize),
		txCmds:    make(chan Command, bufSize),
		events:    make(chan Event, bufSize),
		log:       log.StandardLogger(),
	}
}

// Events exposes the inbound event stream for the orchestrator to consume.
func (co *Coordinator) Events() <-chan Event { return co.events }

// Dispatch enqueues an outbound command. BroadcastBlock and RequestChain
// commands go on the high-priority queue; BroadcastTransaction commands go
// on the low-priority queue. When a queue is full, that queue's own oldest
// entry is dropped to admit the new one, so a transaction never displaces a
// block; RunOutbound drains the block queue first (spec §5 backpressure).
func (co *Coordinator) Dispatch(cmd Command) {
	q := co.txCmds
	if cmd.Kind == CmdBroadcastBlock || cmd.Kind == CmdRequestChain {
		q = co.blockCmds
	}
	select {
	case q <- cmd:
		return
	default:
	}
	select {
	case <-q:
	default:
	}
	select {
	case q <- cmd:
	default:
	}
}

// RunOutbound drains queued commands onto the gossip topics, always
// preferring the block queue over the transaction queue, until ctx is
// cancelled.
func (co *Coordinator) RunOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-co.blockCmds:
			co.publish(cmd)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return
		case cmd := <-co.blockCmds:
			co.publish(cmd)
		case cmd := <-co.txCmds:
			co.publish(cmd)
		}
	}
}

func (co *Coordinator) publish(cmd Command) {
	switch cmd.Kind {
	case CmdBroadcastTransaction:
		data, err := json.Marshal(cmd.Tx)
		if err != nil {
			co.log.WithError(err).Warn("coordinator: marshal transaction")
			return
		}
		if err := co.node.Broadcast(TopicTransactions, data); err != nil {
			co.log.WithError(err).Warn("coordinator: broadcast transaction")
		}
	case CmdBroadcastBlock:
		data, err := json.Marshal(cmd.Block)
		if err != nil {
			co.log.WithError(err).Warn("coordinator: marshal block")
			return
		}
		if err := co.node.Broadcast(TopicBlocks, data); err != nil {
			co.log.WithError(err).Warn("coordinator: broadcast block")
		}
	case CmdRequestChain:
		data, _ := json.Marshal(chainWireMessage{Kind: "request"})
		if err := co.node.Broadcast(TopicChain, data); err != nil {
			co.log.WithError(err).Warn("coordinator: broadcast chain request")
		}
	}
}

// RunInbound subscribes to every gossip topic and translates incoming
// messages into Events. getChain supplies the current chain snapshot when
// answering a peer's chain request. It runs until ctx is cancelled or a
// subscription closes.
func (co *Coordinator) RunInbound(ctx context.Context, getChain func() []*Block) error {
	txCh, err := co.node.Subscribe(TopicTransactions)
	if err != nil {
		return err
	}
	blockCh, err := co.node.Subscribe(TopicBlocks)
	if err != nil {
		return err
	}
	chainCh, err := co.node.Subscribe(TopicChain)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-txCh:
			if !ok {
				return newErr(ErrChannelClosed, "transactions subscription closed", nil)
			}
			var tx Transaction
			if err := json.Unmarshal(msg.Data, &tx); err != nil {
				co.log.WithError(err).Debug("coordinator: malformed transaction gossip")
				continue
			}
			co.emit(Event{Kind: EvtTransactionReceived, Tx: &tx})

		case msg, ok := <-blockCh:
			if !ok {
				return newErr(ErrChannelClosed, "blocks subscription closed", nil)
			}
			var b Block
			if err := json.Unmarshal(msg.Data, &b); err != nil {
				co.log.WithError(err).Debug("coordinator: malformed block gossip")
				continue
			}
			co.emit(Event{Kind: EvtBlockReceived, Block: &b})

		case msg, ok := <-chainCh:
			if !ok {
				return newErr(ErrChannelClosed, "chain subscription closed", nil)
			}
			var wire chainWireMessage
			if err := json.Unmarshal(msg.Data, &wire); err != nil {
				co.log.WithError(err).Debug("coordinator: malformed chain gossip")
				continue
			}
			if wire.Kind == "request" {
				if getChain == nil {
					continue
				}
				data, _ := json.Marshal(chainWireMessage{Kind: "chain", Chain: getChain()})
				if err := co.node.Broadcast(TopicChain, data); err != nil {
					co.log.WithError(err).Warn("coordinator: reply to chain request")
				}
				continue
			}
			co.emit(Event{Kind: EvtChainReceived, Chain: wire.Chain})
		}
	}
}

func (co *Coordinator) emit(e Event) {
	select {
	case co.events <- e:
	default:
		co.log.Warn("coordinator: event channel full, dropping event")
	}
}

// WatchPeers attaches a libp2p network notifiee that turns host-level
// connect/disconnect notifications into PeerConnected/PeerDisconnected
// events.
func (co *Coordinator) WatchPeers() {
	co.node.host.Network().Notify(&network.NotifyBundle{
		ConnectedF: func(_ network.Network, c network.Conn) {
			co.emit(Event{Kind: EvtPeerConnected, PeerID: NodeID(c.RemotePeer().String())})
		},
		DisconnectedF: func(_ network.Network, c network.Conn) {
			co.emit(Event{Kind: EvtPeerDisconnected, PeerID: NodeID(c.RemotePeer().String())})
		},
	})
}
