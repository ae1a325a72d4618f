package chain

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/sha3"
)

const privateKeySize = 32

// Ed25519Signer signs transaction bytes with an ed25519 key. The key
// material stays inside the signer; it is never logged or exposed.
type Ed25519Signer struct {
	priv    ed25519.PrivateKey
	address string
}

// NewEd25519Signer builds a signer from an encoded private key. Accepted
// encodings, tried in order: bech32 (suiprivkey1.../one... prefix), base64
// (exactly 32 bytes), hex (optional 0x prefix).
func NewEd25519Signer(encoded string) (*Ed25519Signer, error) {
	seed, err := decodePrivateKey(strings.TrimSpace(encoded))
	if err != nil {
		return nil, &SigningError{Reason: "invalid private key format", Err: err}
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Ed25519Signer{
		priv:    priv,
		address: deriveAddress(priv.Public().(ed25519.PublicKey)),
	}, nil
}

func decodePrivateKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty private key")
	}

	if strings.HasPrefix(encoded, "suiprivkey1") || strings.HasPrefix(encoded, "one") {
		_, data, err := bech32.Decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("bech32 decode: %w", err)
		}
		decoded, err := bech32.ConvertBits(data, 5, 8, false)
		if err != nil {
			return nil, fmt.Errorf("bech32 regroup: %w", err)
		}
		// Keys on the wire may carry a scheme flag or checksum byte after
		// the 32-byte seed; the seed always comes first.
		if len(decoded) < privateKeySize {
			return nil, fmt.Errorf("bech32 key too short: %d bytes", len(decoded))
		}
		return decoded[:privateKeySize], nil
	}

	if raw, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(raw) == privateKeySize {
		return raw, nil
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(encoded, "0x"))
	if err != nil {
		return nil, fmt.Errorf("private key is neither valid bech32, base64, nor hex: %w", err)
	}
	if len(raw) != privateKeySize {
		return nil, fmt.Errorf("invalid private key length: %d bytes", len(raw))
	}
	return raw, nil
}

// deriveAddress hashes the 32-byte public key with SHA3-256 and renders it
// as 0x-prefixed hex, matching the chain's address derivation.
func deriveAddress(pub ed25519.PublicKey) string {
	sum := sha3.Sum256(pub)
	return "0x" + hex.EncodeToString(sum[:])
}

// Address returns the signer's on-chain address.
func (s *Ed25519Signer) Address() string {
	return s.address
}

// Sign signs raw transaction bytes and returns the 64-byte signature.
func (s *Ed25519Signer) Sign(txBytes []byte) []byte {
	return ed25519.Sign(s.priv, txBytes)
}

// SignBase64 signs base64-encoded transaction bytes and returns the
// base64-encoded signature, as the execution RPC expects.
func (s *Ed25519Signer) SignBase64(txBytesB64 string) (string, error) {
	txBytes, err := base64.StdEncoding.DecodeString(txBytesB64)
	if err != nil {
		return "", &SigningError{Reason: "transaction bytes are not valid base64", Err: err}
	}
	return base64.StdEncoding.EncodeToString(s.Sign(txBytes)), nil
}
