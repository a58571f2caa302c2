package attestation

import (
	"testing"

	"kyc-attestation/system/api/src/database"
	"kyc-attestation/system/api/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repositories(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"gorm":   NewRepository(database.OpenTestDatabase(t)),
		"memory": NewMemoryRepository(),
	}
}

func TestRepositoryLifecycle(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			subject := newSubject(t)

			_, err := repo.Get(subject)
			assert.ErrorIs(t, err, ErrRecordNotFound)

			require.NoError(t, repo.Create(model.NewAttestationRecord(subject, "addr", 10)))
			assert.ErrorIs(t, repo.Create(model.NewAttestationRecord(subject, "addr", 11)), ErrAlreadyInitialized)

			record, err := repo.Get(subject)
			require.NoError(t, err)
			assert.Equal(t, int64(10), record.LastUpdated)

			offset := uint64(42)
			record.AttestationHash = make([]byte, 32)
			record.PendingOffset = &offset
			record.Status = model.StatusPending
			require.NoError(t, repo.Save(record))

			// callers own the records they receive
			record.Status = model.StatusVerified

			stored, err := repo.Get(subject)
			require.NoError(t, err)
			assert.Equal(t, model.StatusPending, stored.Status)
			require.NotNil(t, stored.PendingOffset)
			assert.Equal(t, offset, *stored.PendingOffset)
			assert.True(t, stored.HasAttestation())
		})
	}
}

func TestRepositoryListPending(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			pending := newSubject(t)
			idle := newSubject(t)
			require.NoError(t, repo.Create(model.NewAttestationRecord(pending, "addr-1", 10)))
			require.NoError(t, repo.Create(model.NewAttestationRecord(idle, "addr-2", 10)))

			records, err := repo.ListPending()
			require.NoError(t, err)
			assert.Empty(t, records)

			record, err := repo.Get(pending)
			require.NoError(t, err)
			offset := uint64(7)
			record.PendingOffset = &offset
			record.PendingPublicKey = make([]byte, 32)
			require.NoError(t, repo.Save(record))

			records, err = repo.ListPending()
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, pending, records[0].SubjectId)
			assert.Equal(t, offset, *records[0].PendingOffset)
			assert.Len(t, records[0].PendingPublicKey, 32)
		})
	}
}
