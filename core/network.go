package core

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/sirupsen/logrus"
)

// NodeID identifies a peer by its libp2p peer id string.
type NodeID string

// Peer is a known remote participant.
type Peer struct {
	ID   NodeID `json:"id"`
	Addr string `json:"addr"`
}

// Message is a decoded gossip payload delivered to a topic subscriber.
type Message struct {
	From  NodeID
	Topic string
	Data  []byte
}

// NetConfig configures the libp2p transport. WAN discovery/NAT traversal is
// out of scope (spec §1 Non-goals); a listen address plus local mDNS
// discovery and an explicit bootstrap-peer list are all a permissionless
// node needs to gossip on a LAN/testnet.
type NetConfig struct {
	ListenAddr     string
	BootstrapPeers []string
	DiscoveryTag   string
}

// Node wraps a libp2p host and gossipsub router, exposing the topic
// primitives (spec §4.7) that core/coordinator.go layers the Command/Event
// channel pair on top of. Grounded on the teacher's core/network.go; NAT
// traversal, the global replication store, and orphan-block helpers are
// dropped as out of scope (see DESIGN.md).
type Node struct {
	host   host.Host
	pubsub *pubsub.PubSub

	topicLock sync.RWMutex
	topics    map[string]*pubsub.Topic

	subLock sync.RWMutex
	subs    map[string]*pubsub.Subscription

	peerLock sync.RWMutex
	peers    map[NodeID]*Peer

	ctx    context.Context
	cancel context.CancelFunc
	cfg    NetConfig
}

// NewNode creates and bootstraps a gossiping libp2p node.
func NewNode(cfg NetConfig) (*Node, error) {
	ctx, cancel := context.WithCancel(context.Background())

	h, err := libp2p.New(libp2p.ListenAddrStrings(cfg.ListenAddr))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("failed to create pubsub: %w", err)
	}

	n := &Node{
		host:   h,
		pubsub: ps,
		topics: make(map[string]*pubsub.Topic),
		subs:   make(map[string]*pubsub.Subscription),
		peers:  make(map[NodeID]*Peer),
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}

	if err := n.DialSeed(cfg.BootstrapPeers); err != nil {
		logrus.Warnf("DialSeed warning: %v", err)
	}

	mdns.NewMdnsService(h, cfg.DiscoveryTag, n)

	return n, nil
}

var _ mdns.Notifee = (*Node)(nil)

// HandlePeerFound implements mdns.Notifee: connect to a locally discovered
// peer, ignoring ourselves and peers we already know.
func (n *Node) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == n.host.ID() {
		return
	}

	n.peerLock.RLock()
	_, exists := n.peers[NodeID(info.ID.String())]
	n.peerLock.RUnlock()
	if exists {
		return
	}

	if err := n.host.Connect(n.ctx, info); err != nil {
		logrus.Warnf("failed to connect to discovered peer %s: %v", info.ID.String(), err)
		return
	}

	n.peerLock.Lock()
	n.peers[NodeID(info.ID.String())] = &Peer{ID: NodeID(info.ID.String()), Addr: info.String()}
	n.peerLock.Unlock()
	logrus.WithField("peer", info.ID.String()).Info("network: connected via mDNS")
}

// DialSeed connects to a list of bootstrap peer multiaddrs.
func (n *Node) DialSeed(seeds []string) error {
	var errs []string
	for _, addr := range seeds {
		pi, err := peer.AddrInfoFromString(addr)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid addr %s: %v", addr, err))
			continue
		}
		if err := n.host.Connect(n.ctx, *pi); err != nil {
			errs = append(errs, fmt.Sprintf("connect %s: %v", addr, err))
			continue
		}
		n.peerLock.Lock()
		n.peers[NodeID(pi.ID.String())] = &Peer{ID: NodeID(pi.ID.String()), Addr: addr}
		n.peerLock.Unlock()
		logrus.WithField("peer", addr).Info("network: bootstrapped")
	}
	if len(errs) > 0 {
		return fmt.Errorf("dial errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Broadcast joins topic (if not already joined) and publishes data to it.
func (n *Node) Broadcast(topic string, data []byte) error {
	n.topicLock.Lock()
	t, ok := n.topics[topic]
	if !ok {
		var err error
		t, err = n.pubsub.Join(topic)
		if err != nil {
			n.topicLock.Unlock()
			return fmt.Errorf("join topic %s: %w", topic, err)
		}
		n.topics[topic] = t
	}
	n.topicLock.Unlock()

	if err := t.Publish(n.ctx, data); err != nil {
		return fmt.Errorf("publish topic %s: %w", topic, err)
	}
	return nil
}

// Subscribe listens for messages on a topic, returning a channel that is
// closed when the underlying subscription ends.
func (n *Node) Subscribe(topic string) (<-chan Message, error) {
	n.subLock.Lock()
	sub, ok := n.subs[topic]
	if !ok {
		var err error
		sub, err = n.pubsub.Subscribe(topic)
		if err != nil {
			n.subLock.Unlock()
			return nil, fmt.Errorf("subscribe topic %s: %w", topic, err)
		}
		n.subs[topic] = sub
	}
	n.subLock.Unlock()

	out := make(chan Message)
	go func() {
		for {
			msg, err := sub.Next(n.ctx)
			if err != nil {
				logrus.Warnf("subscription next error: %v", err)
				close(out)
				return
			}
			out <- Message{From: NodeID(msg.GetFrom().String()), Topic: topic, Data: msg.Data}
		}
	}()
	return out, nil
}

// ListenAndServe blocks until the node's context is cancelled.
func (n *Node) ListenAndServe() {
	<-n.ctx.Done()
	logrus.Info("network: node shutting down")
}

// Close tears down the node.
func (n *Node) Close() error {
	n.cancel()
	return n.host.Close()
}

// Peers returns the current known peer list.
func (n *Node) Peers() []*Peer {
	n.peerLock.RLock()
	defer n.peerLock.RUnlock()
	list := make([]*Peer, 0, len(n.peers))
	for _, p := range n.peers {
		list = append(list, p)
	}
	return list
}

// Dialer manages plain outbound TCP connections outside the
// libp2p/gossipsub path. No other part of the node calls it.
type Dialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration
}

func NewDialer(timeout, keepAlive time.Duration) *Dialer {
	return &Dialer{Timeout: timeout, KeepAlive: keepAlive}
}

func (d *Dialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dialer: failed to connect to %s: %w", address, err)
	}
	return conn, nil
}
