package wallet

import (
	"crypto/ed25519"
	"fmt"

	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/vm"
	"github.com/tyler-smith/go-bip39"
)

// Wallet holds a key pair and provides transaction-building helpers.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// GenerateMnemonic returns a new 24-word BIP39 mnemonic suitable for
// recovering a Wallet via FromMnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("wallet: generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("wallet: build mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic reports whether mnemonic is a well-formed BIP39 phrase.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// FromMnemonic deterministically derives a Wallet's ed25519 key pair from
// a BIP39 mnemonic and optional passphrase. Unlike a Bitcoin-style HD
// wallet this chain has no derivation-path tree to walk — the seed's
// first 32 bytes are taken directly as the ed25519 private key seed,
// since every account on this chain is a single flat key, not a subtree.
func FromMnemonic(mnemonic, passphrase string) (*Wallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("wallet: invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	priv := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	return New(crypto.PrivateKey(priv)), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the wallet's ed25519 public key.
func (w *Wallet) PubKey() crypto.PublicKey {
	return w.pub
}

// Address returns the account address derived from the wallet's public
// key, the same derivation the chain engine uses to attribute a
// transaction's effects to its signer.
func (w *Wallet) Address() crypto.Address {
	return w.pub.Address()
}

// NewTx builds and signs a ScriptTx of the given type and nonce, carrying
// payload.
func (w *Wallet) NewTx(typ vm.TxType, nonce uint64, payload any) (*vm.ScriptTx, error) {
	return vm.NewScriptTx(typ, w.pub, nonce, payload, w.priv)
}
