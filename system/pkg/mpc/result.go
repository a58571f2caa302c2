package mpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// EncryptedResult is the opaque output of the equality circuit: one encrypted
// byte and the nonce it was encrypted under. Only the holder of the client
// secret can open it.
type EncryptedResult struct {
	Ciphertext [1]byte
	Nonce      Nonce
}

func (r EncryptedResult) String() string {
	return fmt.Sprintf("EncryptedResult{ct:%x nonce:%s}", r.Ciphertext, r.Nonce)
}

func (r EncryptedResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Ciphertext string `json:"ciphertext"`
		Nonce      string `json:"nonce"`
	}{
		Ciphertext: hex.EncodeToString(r.Ciphertext[:]),
		Nonce:      r.Nonce.String(),
	})
}

// Opener decrypts a result. It is held by the party that owns the client
// secret; PublicKey identifies which request key it can open.
type Opener interface {
	PublicKey() [KeySize]byte
	Open(EncryptedResult) (byte, error)
}

// Client is the requester side of a confidential equality check.
type Client struct {
	keys   KeyPair
	cipher *SharedCipher
}

func NewClient(keys KeyPair, clusterPublic [KeySize]byte) (*Client, error) {
	cipher, err := NewSharedCipher(keys.Secret, clusterPublic)
	if err != nil {
		return nil, err
	}
	return &Client{keys: keys, cipher: cipher}, nil
}

func (c *Client) PublicKey() [KeySize]byte {
	return c.keys.Public
}

// EncryptHashes encrypts the two document hashes in argument order.
func (c *Client) EncryptHashes(nonce Nonce, passportHash, panHash [32]byte) ([2][32]byte, error) {
	var out [2][32]byte
	cts, err := c.cipher.Encrypt(nonce, passportHash[:], panHash[:])
	if err != nil {
		return out, err
	}
	copy(out[0][:], cts[0])
	copy(out[1][:], cts[1])
	return out, nil
}

func (c *Client) Open(r EncryptedResult) (byte, error) {
	pts, err := c.cipher.Decrypt(r.Nonce, r.Ciphertext[:])
	if err != nil {
		return 0, err
	}
	if pts[0][0] > 1 {
		return 0, fmt.Errorf("result byte %d is not a boolean", pts[0][0])
	}
	return pts[0][0], nil
}
