package vm

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/kv"
)

// signingBody holds the fields covered by ScriptTx's signature.
type signingBody struct {
	Type    TxType          `json:"type"`
	From    string          `json:"from"` // hex-encoded ed25519 public key
	Nonce   uint64          `json:"nonce"`
	Payload json.RawMessage `json:"payload"`
}

// ScriptTx is the concrete chain.Transaction every block on a corechain
// node carries: a registry-dispatched opaque payload, signed by the
// sender's ed25519 key. IsValid/Execute are its two exposed capabilities
// over the opaque Transaction contract.
type ScriptTx struct {
	hash      crypto.Hash
	Type      TxType
	From      crypto.PublicKey
	Nonce     uint64
	Payload   json.RawMessage
	Signature string

	block *chain.Block
}

// NewScriptTx builds and signs a ScriptTx for typ, from the given sender
// key, carrying payload (marshaled to JSON).
func NewScriptTx(typ TxType, from crypto.PublicKey, nonce uint64, payload any, priv crypto.PrivateKey) (*ScriptTx, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("vm: marshal payload: %w", err)
	}
	tx := &ScriptTx{Type: typ, From: from, Nonce: nonce, Payload: raw}
	tx.hash = tx.computeHash()
	tx.Signature = crypto.Sign(priv, tx.hash.Bytes())
	return tx, nil
}

// DecodeScriptTx parses a ScriptTx from its wire JSON representation (as
// produced by json.Marshal(tx)) and recomputes its hash. hash is
// deliberately unexported so a decoded ScriptTx's identity always comes
// from its own signed fields, never from whatever a caller hands in.
func DecodeScriptTx(data []byte) (*ScriptTx, error) {
	var tx ScriptTx
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("vm: decode ScriptTx: %w", err)
	}
	tx.hash = tx.computeHash()
	return &tx, nil
}

func (tx *ScriptTx) computeHash() crypto.Hash {
	body := signingBody{Type: tx.Type, From: tx.From.Hex(), Nonce: tx.Nonce, Payload: tx.Payload}
	data, err := json.Marshal(body)
	if err != nil {
		return crypto.Hash{}
	}
	return crypto.Sha256(data)
}

// Hash returns the transaction's stable, signature-independent identifier.
func (tx *ScriptTx) Hash() crypto.Hash {
	return tx.hash
}

// IsValid verifies tx's signature against its sender's declared public
// key. It never touches chain state — validity here is purely structural.
func (tx *ScriptTx) IsValid(c *chain.Chain) bool {
	if len(tx.From) == 0 {
		return false
	}
	return crypto.Verify(tx.From, tx.hash.Bytes(), tx.Signature) == nil
}

// Execute dispatches the transaction's payload to whichever Handler is
// registered for its Type, routing all mutation through cs so a failed
// block discards it and a later delete_blocks undoes it.
func (tx *ScriptTx) Execute(c *chain.Chain, b *chain.Block, cs *kv.ChangeSet, sink chain.EventSink) bool {
	ctx := &Context{
		Chain:     c,
		Block:     b,
		ChangeSet: cs,
		Sink:      sink,
		From:      tx.From.Address(),
		TxHash:    tx.hash,
	}
	if err := globalRegistry.Execute(tx.Type, ctx, tx.Payload); err != nil {
		log.Printf("[vm] tx %s failed: %v", tx.hash, err)
		return false
	}
	return true
}

// SetBlock records the block tx was ultimately included in.
func (tx *ScriptTx) SetBlock(b *chain.Block) {
	tx.block = b
}

// Block returns the block tx was included in, if any.
func (tx *ScriptTx) Block() (*chain.Block, bool) {
	return tx.block, tx.block != nil
}
