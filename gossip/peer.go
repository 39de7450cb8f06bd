// Package gossip implements a minimal websocket fan-out transport for
// plugin-notify events: a node tells its subscribed peers "chain X
// committed block Y at height Z" and nothing more. Full peer-to-peer
// transaction/block sync traffic stays out of scope.
package gossip

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MsgType labels a gossip message.
type MsgType string

// MsgPluginNotify is the only message type this transport carries.
const MsgPluginNotify MsgType = "plugin_notify"

// Message is the envelope for all gossip traffic.
type Message struct {
	ID      string          `json:"id"`
	Type    MsgType         `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PluginNotify announces that a chain committed a block, the payload
// carried by every MsgPluginNotify message.
type PluginNotify struct {
	ChainAddress string `json:"chain_address"`
	BlockHash    string `json:"block_hash"`
	BlockHeight  int64  `json:"block_height"`
}

// writeWait bounds how long a single Send may block on a slow peer.
const writeWait = 10 * time.Second

// Peer is one connected subscriber to a Hub's plugin-notify fan-out.
type Peer struct {
	ID   string
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

// NewPeer wraps an established websocket connection as a Peer.
func NewPeer(id string, conn *websocket.Conn) *Peer {
	return &Peer{ID: id, conn: conn}
}

// Send writes msg to the peer as a single websocket text frame.
func (p *Peer) Send(msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("gossip: peer %s closed", p.ID)
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(msg)
}

// Receive blocks for the next message sent by the peer.
func (p *Peer) Receive() (Message, error) {
	var msg Message
	_, data, err := p.conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// Close terminates the peer connection. Safe to call more than once.
func (p *Peer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.conn.Close()
	}
}
