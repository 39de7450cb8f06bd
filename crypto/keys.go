package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// AddressSize is the length in bytes of an Address.
const AddressSize = 20

// Address is a fixed-size opaque account/chain identifier, usable as a map
// key. NullAddress is the distinguished zero value.
type Address [AddressSize]byte

// NullAddress is the distinguished null identifier.
var NullAddress = Address{}

// IsNull reports whether a is the null address.
func (a Address) IsNull() bool {
	return a == NullAddress
}

// String returns a as a lowercase hex string.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// AddressFromHash derives an Address by truncating a Hash to its first
// AddressSize bytes.
func AddressFromHash(h Hash) Address {
	var a Address
	copy(a[:], h[:AddressSize])
	return a
}

// AddressFromHex decodes a hex string into an Address.
func AddressFromHex(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, err
	}
	if len(b) != AddressSize {
		return a, errors.New("crypto: address must be 20 bytes")
	}
	copy(a[:], b)
	return a, nil
}

// PrivateKey wraps ed25519 private key bytes.
type PrivateKey []byte

// PublicKey wraps ed25519 public key bytes.
type PublicKey []byte

// GenerateKeyPair generates a new ed25519 key pair.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return PrivateKey(priv), PublicKey(pub), nil
}

// Address derives the account address from the public key: the first
// AddressSize bytes of SHA-256(pubkey).
func (pub PublicKey) Address() Address {
	return AddressFromHash(Sha256(pub))
}

// Hex returns the full hex-encoded public key.
func (pub PublicKey) Hex() string {
	return hex.EncodeToString(pub)
}

// Hex returns the hex-encoded private key.
func (priv PrivateKey) Hex() string {
	return hex.EncodeToString(priv)
}

// Public derives the ed25519 public key from the private key.
func (priv PrivateKey) Public() PublicKey {
	return PublicKey(ed25519.PrivateKey(priv).Public().(ed25519.PublicKey))
}

// PubKeyFromHex decodes a hex-encoded public key.
func PubKeyFromHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid pubkey hex: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("pubkey must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return PublicKey(b), nil
}

// PrivKeyFromHex decodes a hex-encoded private key.
func PrivKeyFromHex(s string) (PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid privkey hex: %w", err)
	}
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("privkey must be %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	return PrivateKey(b), nil
}
