package main

import (
	"crypto/rand"
	"errors"
	"testing"

	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/mpc"
	"kyc-attestation/system/pkg/utilities"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	published []mpc.ComputationOutcome
	err       error
}

func (p *capturePublisher) Publish(body utilities.Serializable) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, body.(mpc.ComputationOutcome))
	return nil
}

func newTestWorker(t *testing.T, publisher *capturePublisher) (*ComputationWorker, *mpc.Client) {
	t.Helper()
	clusterKeys, err := mpc.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	circuit, err := mpc.NewEqualityCircuit(2, rand.Reader)
	require.NoError(t, err)
	clientKeys, err := mpc.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	client, err := mpc.NewClient(clientKeys, clusterKeys.Public)
	require.NoError(t, err)

	return NewComputationWorker(mpc.NewCluster(clusterKeys, circuit, logger.Nop()), nil, publisher, logger.Nop()), client
}

func TestComputationWorkerAnswersRequest(t *testing.T) {
	publisher := &capturePublisher{}
	worker, client := newTestWorker(t, publisher)

	nonce, err := mpc.NewRandomNonce(rand.Reader)
	require.NoError(t, err)
	cts, err := client.EncryptHashes(nonce, [32]byte{9}, [32]byte{8})
	require.NoError(t, err)
	body, err := mpc.ComputationRequest{
		Offset:     3,
		CallbackID: mpc.KycMatchCallback,
		PublicKey:  client.PublicKey(),
		Nonce:      nonce,
		Args:       [][32]byte{cts[0], cts[1]},
	}.Serialize()
	require.NoError(t, err)

	require.NoError(t, worker.HandleDelivery(amqp.Delivery{Body: body}))
	require.Len(t, publisher.published, 1)

	outcome := publisher.published[0]
	assert.Equal(t, uint64(3), outcome.Offset)
	assert.Equal(t, mpc.KycMatchCallback, outcome.CallbackID)
	match, err := client.Open(outcome.Result())
	require.NoError(t, err)
	assert.Equal(t, byte(0), match)
}

func TestComputationWorkerPublishesAbort(t *testing.T) {
	publisher := &capturePublisher{}
	worker, _ := newTestWorker(t, publisher)

	body, err := mpc.ComputationRequest{Offset: 4, CallbackID: mpc.KycMatchCallback}.Serialize()
	require.NoError(t, err)

	require.NoError(t, worker.HandleDelivery(amqp.Delivery{Body: body}))
	require.Len(t, publisher.published, 1)
	assert.Equal(t, mpc.StatusAborted, publisher.published[0].Status)
}

func TestComputationWorkerRejectsGarbage(t *testing.T) {
	worker, _ := newTestWorker(t, &capturePublisher{})
	assert.ErrorIs(t, worker.HandleDelivery(amqp.Delivery{Body: []byte{0xff}}), mpc.ErrMalformedRequest)
}

func TestComputationWorkerSurfacesPublishFailure(t *testing.T) {
	broker := errors.New("channel closed")
	worker, _ := newTestWorker(t, &capturePublisher{err: broker})

	body, err := mpc.ComputationRequest{Offset: 5}.Serialize()
	require.NoError(t, err)
	assert.ErrorIs(t, worker.HandleDelivery(amqp.Delivery{Body: body}), broker)
}

func TestClusterKeyPair(t *testing.T) {
	_, err := ClusterConfig{SecretHex: "abcd"}.KeyPair()
	assert.Error(t, err)

	kp, err := ClusterConfig{SecretHex: "0101010101010101010101010101010101010101010101010101010101010101"}.KeyPair()
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, kp.Public)
}
