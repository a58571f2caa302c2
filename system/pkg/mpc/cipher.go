package mpc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/curve25519"
)

const (
	KeySize   = 32
	NonceSize = 16
)

// Nonce is a 128-bit counter in little-endian byte order.
type Nonce [NonceSize]byte

// Next returns n+1 (mod 2^128). Results are encrypted under the request nonce's successor.
func (n Nonce) Next() Nonce {
	out := n
	for i := range out {
		out[i]++
		if out[i] != 0 {
			break
		}
	}
	return out
}

func (n Nonce) String() string {
	return hex.EncodeToString(n[:])
}

func NewRandomNonce(rand io.Reader) (Nonce, error) {
	var n Nonce
	_, err := io.ReadFull(rand, n[:])
	return n, err
}

type KeyPair struct {
	Secret [KeySize]byte
	Public [KeySize]byte
}

func GenerateKeyPair(rand io.Reader) (KeyPair, error) {
	var kp KeyPair
	if _, err := io.ReadFull(rand, kp.Secret[:]); err != nil {
		return kp, err
	}
	return KeyPairFromSecret(kp.Secret)
}

func KeyPairFromSecret(secret [KeySize]byte) (KeyPair, error) {
	pub, err := curve25519.X25519(secret[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, err
	}

	kp := KeyPair{Secret: secret}
	copy(kp.Public[:], pub)
	return kp, nil
}

// SharedCipher is a stream cipher keyed by an x25519 shared secret. Both the
// client and the cluster derive the same key from their own secret and the
// other side's public key.
type SharedCipher struct {
	key [KeySize]byte
}

func NewSharedCipher(secret, peerPublic [KeySize]byte) (*SharedCipher, error) {
	shared, err := curve25519.X25519(secret[:], peerPublic[:])
	if err != nil {
		return nil, fmt.Errorf("x25519: %w", err)
	}
	return &SharedCipher{key: sha256.Sum256(shared)}, nil
}

// Encrypt encrypts the chunks as one stream under nonce. Chunk boundaries are
// kept in the output.
func (c *SharedCipher) Encrypt(nonce Nonce, chunks ...[]byte) ([][]byte, error) {
	stream, err := c.stream(nonce)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		out[i] = make([]byte, len(chunk))
		stream.XORKeyStream(out[i], chunk)
	}
	return out, nil
}

// Decrypt is the inverse of Encrypt.
func (c *SharedCipher) Decrypt(nonce Nonce, chunks ...[]byte) ([][]byte, error) {
	return c.Encrypt(nonce, chunks...)
}

func (c *SharedCipher) stream(nonce Nonce) (*chacha20.Cipher, error) {
	var xnonce [chacha20.NonceSizeX]byte
	copy(xnonce[:], nonce[:])
	return chacha20.NewUnauthenticatedCipher(c.key[:], xnonce[:])
}
