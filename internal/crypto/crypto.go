// Package crypto signs and verifies replicated documents with Ed25519 keys encoded in base58.
package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Document fields excluded from the signed bytes.
const (
	HashField      = "hash"
	SignatureField = "signature"
)

var (
	ErrInvalidPubkey    = errors.New("invalid public key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Verifier checks a base64 signature of message by a base58 public key.
type Verifier interface {
	Verify(pubkey string, message []byte, signature string) error
}

// Signer produces base64 signatures for its own public key.
type Signer interface {
	Pubkey() string
	Sign(message []byte) string
}

// Ed25519Verifier verifies Ed25519 signatures.
type Ed25519Verifier struct{}

func (Ed25519Verifier) Verify(pubkey string, message []byte, signature string) error {
	pub, err := DecodePubkey(pubkey)
	if err != nil {
		return err
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: malformed", ErrInvalidSignature)
	}
	if !ed25519.Verify(pub, message, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// DecodePubkey parses a base58 Ed25519 public key.
func DecodePubkey(pubkey string) (ed25519.PublicKey, error) {
	raw := base58.Decode(pubkey)
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPubkey, pubkey)
	}
	return ed25519.PublicKey(raw), nil
}

// KeyPair is an Ed25519 Signer.
type KeyPair struct {
	priv ed25519.PrivateKey
	pub  string
}

var _ Signer = (*KeyPair)(nil)

// GenerateKeyPair creates a random key pair.
func GenerateKeyPair() (*KeyPair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return newKeyPair(priv), nil
}

// KeyPairFromSeed derives a key pair from a base58 32-byte seed.
func KeyPairFromSeed(seed string) (*KeyPair, error) {
	raw := base58.Decode(seed)
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must decode to %d bytes, got %d", ed25519.SeedSize, len(raw))
	}
	return newKeyPair(ed25519.NewKeyFromSeed(raw)), nil
}

func newKeyPair(priv ed25519.PrivateKey) *KeyPair {
	pub := priv.Public().(ed25519.PublicKey)
	return &KeyPair{priv: priv, pub: base58.Encode(pub)}
}

func (k *KeyPair) Pubkey() string {
	return k.pub
}

func (k *KeyPair) Sign(message []byte) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(k.priv, message))
}

// CanonicalBytes re-encodes doc with sorted keys and without hash and signature.
func CanonicalBytes(doc json.RawMessage) ([]byte, error) {
	fields, err := decode(doc)
	if err != nil {
		return nil, err
	}
	delete(fields, HashField)
	delete(fields, SignatureField)
	return encode(fields)
}

// ContentHash returns the uppercase hex hash of the canonical bytes.
func ContentHash(doc json.RawMessage) (string, error) {
	canonical, err := CanonicalBytes(doc)
	if err != nil {
		return "", err
	}
	h := chainhash.HashH(canonical)
	return strings.ToUpper(hex.EncodeToString(h[:])), nil
}

// SignDocument fills the hash and signature fields of doc.
func SignDocument(signer Signer, doc json.RawMessage) (json.RawMessage, error) {
	canonical, err := CanonicalBytes(doc)
	if err != nil {
		return nil, err
	}
	fields, err := decode(canonical)
	if err != nil {
		return nil, err
	}
	h := chainhash.HashH(canonical)
	fields[HashField] = strings.ToUpper(hex.EncodeToString(h[:]))
	fields[SignatureField] = signer.Sign(canonical)
	return encode(fields)
}

// VerifyDocument checks the signature field of doc against issuer.
func VerifyDocument(v Verifier, issuer string, doc json.RawMessage) error {
	fields, err := decode(doc)
	if err != nil {
		return err
	}
	sig, _ := fields[SignatureField].(string)
	if sig == "" {
		return fmt.Errorf("%w: missing", ErrInvalidSignature)
	}
	delete(fields, HashField)
	delete(fields, SignatureField)
	canonical, err := encode(fields)
	if err != nil {
		return err
	}
	return v.Verify(issuer, canonical, sig)
}

func decode(doc json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if fields == nil {
		return nil, errors.New("decode document: not an object")
	}
	return fields, nil
}

func encode(fields map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
