package gossip

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultMaxPeers bounds how many subscribers a Hub accepts at once.
const DefaultMaxPeers = 50

// Hub accepts websocket subscribers and fans plugin-notify events out to
// all of them: a narrow broadcast transport kept down to one message
// type instead of a full peer-to-peer protocol.
type Hub struct {
	maxPeers int
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	peers map[string]*Peer
}

// NewHub creates an empty Hub ready to accept subscribers via ServeWS.
func NewHub() *Hub {
	return &Hub{
		maxPeers: DefaultMaxPeers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		peers: make(map[string]*Peer),
	}
}

// ServeWS upgrades an incoming HTTP request to a websocket subscriber and
// registers it with the Hub. Mount this on the gossip listen address.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	full := len(h.peers) >= h.maxPeers
	h.mu.RUnlock()
	if full {
		http.Error(w, "too many peers", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gossip] upgrade: %v", err)
		return
	}
	peer := NewPeer(uuid.NewString(), conn)
	h.mu.Lock()
	h.peers[peer.ID] = peer
	h.mu.Unlock()
	go h.readLoop(peer)
}

// readLoop discards anything a subscriber sends — this transport is
// fan-out only — and deregisters the peer once its connection drops.
func (h *Hub) readLoop(peer *Peer) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[gossip] readLoop panic from %s: %v", peer.ID, r)
		}
		peer.Close()
		h.mu.Lock()
		delete(h.peers, peer.ID)
		h.mu.Unlock()
	}()
	for {
		if _, err := peer.Receive(); err != nil {
			return
		}
	}
}

// Broadcast sends msg to every currently connected peer, logging (not
// failing) individual send errors so one failed peer does not stop the
// rest of the fan-out. Sends run one after another, so a stalled peer
// delays the peers after it until its send times out.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	peers := make([]*Peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.RUnlock()
	for _, p := range peers {
		if err := p.Send(msg); err != nil {
			log.Printf("[gossip] broadcast to %s: %v", p.ID, err)
		}
	}
}

// NotifyBlock fans a PluginNotify out to every subscriber, the transport
// chain.Nexus.PluginTriggerBlock is wired to in the reference nexus
// package.
func (h *Hub) NotifyBlock(chainAddress, blockHash string, height int64) error {
	payload, err := json.Marshal(PluginNotify{
		ChainAddress: chainAddress,
		BlockHash:    blockHash,
		BlockHeight:  height,
	})
	if err != nil {
		return fmt.Errorf("gossip: marshal plugin notify: %w", err)
	}
	h.Broadcast(Message{ID: uuid.NewString(), Type: MsgPluginNotify, Payload: payload})
	return nil
}

// PeerCount returns the number of currently connected subscribers.
func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range h.peers {
		p.Close()
	}
	h.peers = make(map[string]*Peer)
}
