package attestation

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"kyc-attestation/system/api/src/computation"
	"kyc-attestation/system/api/src/model"
	dtocommon "kyc-attestation/system/pkg/dto_common"
	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/mpc"
	"kyc-attestation/system/pkg/utilities"
	"kyc-attestation/system/pkg/utilities/timeutil"
	"kyc-attestation/system/pkg/zkp"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	subjectId string
	eventType dtocommon.KycEventType
	payload   []byte
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) NewEvent(subjectId string, eventType dtocommon.KycEventType, payload utilities.Serializable, _ timeutil.TimeUTC) (string, error) {
	body, err := payload.Serialize()
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{subjectId, eventType, body})
	return "evt", nil
}

func (f *fakeEvents) ofType(t dtocommon.KycEventType) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.events {
		if e.eventType == t {
			out = append(out, e)
		}
	}
	return out
}

type stepClock struct {
	mu  sync.Mutex
	now int64
}

func (c *stepClock) Now() timeutil.TimeUTC {
	c.mu.Lock()
	defer c.mu.Unlock()
	return timeutil.TimeUTC{T: c.now}
}

func (c *stepClock) set(t int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// flakyRepository fails the next failSaves calls to Save.
type flakyRepository struct {
	Repository
	mu        sync.Mutex
	failSaves int
}

func (r *flakyRepository) Save(record *model.AttestationRecord) error {
	r.mu.Lock()
	if r.failSaves > 0 {
		r.failSaves--
		r.mu.Unlock()
		return fmt.Errorf("%w: disk full", ErrStorage)
	}
	r.mu.Unlock()
	return r.Repository.Save(record)
}

func (r *flakyRepository) failNextSaves(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failSaves = n
}

// heldDispatcher keeps requests until the test evaluates them.
type heldDispatcher struct {
	mu       sync.Mutex
	requests []mpc.ComputationRequest
}

func (d *heldDispatcher) Dispatch(_ context.Context, req mpc.ComputationRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	return nil
}

type harness struct {
	svc     *Service
	repo    *flakyRepository
	events  *fakeEvents
	clock   *stepClock
	gateway *computation.Gateway
	local   *computation.LocalDispatcher
	held    *heldDispatcher
	cluster *mpc.Cluster
	client  *mpc.Client

	clientSecretHex string
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	clusterKeys, err := mpc.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	circuit, err := mpc.NewEqualityCircuit(3, rand.Reader)
	require.NoError(t, err)
	cluster := mpc.NewCluster(clusterKeys, circuit, logger.Nop())

	clientKeys, err := mpc.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	client, err := mpc.NewClient(clientKeys, cluster.PublicKey())
	require.NoError(t, err)

	h := &harness{
		repo:    &flakyRepository{Repository: NewMemoryRepository()},
		events:  &fakeEvents{},
		clock:   &stepClock{now: 1_700_000_000},
		held:    &heldDispatcher{},
		cluster: cluster,
		client:  client,

		clientSecretHex: hex.EncodeToString(clientKeys.Secret[:]),
	}
	h.gateway = computation.NewGateway(nil, time.Minute, nil, logger.Nop())
	h.local = computation.NewLocalDispatcher(cluster, h.gateway, logger.Nop())
	h.gateway.SetDispatcher(h.local)

	h.svc = NewService(h.repo, h.events, zkp.NewVerifier(nil), h.gateway, h.clock, opts, logger.Nop())
	h.gateway.RegisterCallback(mpc.KycMatchCallback, h.svc.HandleKycMatch)
	return h
}

// holdComputations makes dispatched requests wait for runHeld.
func (h *harness) holdComputations() {
	h.gateway.SetDispatcher(h.held)
}

func (h *harness) runHeld(t *testing.T, reverse bool) []error {
	t.Helper()
	h.held.mu.Lock()
	reqs := append([]mpc.ComputationRequest(nil), h.held.requests...)
	h.held.requests = nil
	h.held.mu.Unlock()

	if reverse {
		for i, j := 0, len(reqs)-1; i < j; i, j = i+1, j-1 {
			reqs[i], reqs[j] = reqs[j], reqs[i]
		}
	}
	errs := make([]error, len(reqs))
	for i, r := range reqs {
		errs[i] = h.gateway.Deliver(context.Background(), h.cluster.Execute(context.Background(), r))
	}
	return errs
}

func (h *harness) mpcRequest(t *testing.T, offset uint64, passport, pan [32]byte) MpcRequest {
	t.Helper()
	nonce, err := mpc.NewRandomNonce(rand.Reader)
	require.NoError(t, err)
	cts, err := h.client.EncryptHashes(nonce, passport, pan)
	require.NoError(t, err)
	return MpcRequest{
		Offset:     offset,
		PassportCt: cts[0],
		PanCt:      cts[1],
		PublicKey:  h.client.PublicKey(),
		Nonce:      nonce,
	}
}

func (h *harness) initialized(t *testing.T) string {
	t.Helper()
	subject := newSubject(t)
	_, err := h.svc.Initialize(subject)
	require.NoError(t, err)
	return subject
}

func (h *harness) submitted(t *testing.T) string {
	t.Helper()
	subject := h.initialized(t)
	_, err := h.svc.SubmitAttestation(subject, []byte(`{"is_valid":true}`))
	require.NoError(t, err)
	return subject
}

func newSubject(t *testing.T) string {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.PublicKey().String()
}

type proofFixture struct {
	vk     *zkp.VerifyingKey
	vkRaw  []byte
	proof  []byte
	inputs [][zkp.ScalarSize]byte
}

var (
	fixtureOnce sync.Once
	fixture     proofFixture
	fixtureErr  error
)

func loadProofFixture(t *testing.T) proofFixture {
	t.Helper()
	fixtureOnce.Do(func() {
		zkp.SilenceGnark()
		prover, err := zkp.SetupProver()
		if err != nil {
			fixtureErr = err
			return
		}
		hash := sha256.Sum256([]byte("P1234567"))
		proof, inputs, err := prover.ProveHashEquality(hash, hash)
		if err != nil {
			fixtureErr = err
			return
		}
		if fixture.vk, fixtureErr = prover.VerifyingKey(); fixtureErr != nil {
			return
		}
		if fixture.vkRaw, fixtureErr = fixture.vk.MarshalBinary(); fixtureErr != nil {
			return
		}
		fixture.proof, fixtureErr = proof.MarshalBinary()
		fixture.inputs = inputs
	})
	require.NoError(t, fixtureErr)
	return fixture
}
