package mpc

import (
	"context"
	"fmt"

	"kyc-attestation/system/pkg/logger"
)

// Cluster is the ingress of the MPC network. It owns the cluster x25519 key,
// turns the requester's ciphertexts into secret shares, runs the equality
// circuit and re-encrypts the one-byte result to the requester under
// nonce+1.
type Cluster struct {
	keys    KeyPair
	circuit *EqualityCircuit
	logger  *logger.Logger
}

func NewCluster(keys KeyPair, circuit *EqualityCircuit, log *logger.Logger) *Cluster {
	if log == nil {
		log = logger.Nop()
	}
	return &Cluster{keys: keys, circuit: circuit, logger: log}
}

func (c *Cluster) PublicKey() [KeySize]byte {
	return c.keys.Public
}

// Execute never returns an error: every failure becomes an aborted outcome for
// the same offset.
func (c *Cluster) Execute(ctx context.Context, req ComputationRequest) ComputationOutcome {
	result, err := c.execute(ctx, req)
	if err != nil {
		c.logger.Errorf(err, "Computation %d aborted", req.Offset)
		return Aborted(req.Offset, req.CallbackID, err.Error())
	}

	c.logger.Infof("Computation %d finished on %d nodes", req.Offset, c.circuit.Nodes())
	return ComputationOutcome{
		Offset:     req.Offset,
		CallbackID: req.CallbackID,
		Status:     StatusSuccess,
		Ciphertext: result.Ciphertext,
		Nonce:      result.Nonce,
	}
}

func (c *Cluster) execute(ctx context.Context, req ComputationRequest) (EncryptedResult, error) {
	if len(req.Args) != 2 {
		return EncryptedResult{}, fmt.Errorf("%w: expected 2 arguments, got %d", ErrMalformedRequest, len(req.Args))
	}

	cipher, err := NewSharedCipher(c.keys.Secret, req.PublicKey)
	if err != nil {
		return EncryptedResult{}, err
	}

	plain, err := cipher.Decrypt(req.Nonce, req.Args[0][:], req.Args[1][:])
	if err != nil {
		return EncryptedResult{}, err
	}
	var passport, pan [32]byte
	copy(passport[:], plain[0])
	copy(pan[:], plain[1])

	equal, err := c.circuit.Evaluate(ctx, passport, pan)
	if err != nil {
		return EncryptedResult{}, err
	}

	var out byte
	if equal {
		out = 1
	}

	outNonce := req.Nonce.Next()
	ct, err := cipher.Encrypt(outNonce, []byte{out})
	if err != nil {
		return EncryptedResult{}, err
	}

	result := EncryptedResult{Nonce: outNonce}
	copy(result.Ciphertext[:], ct[0])
	return result, nil
}
