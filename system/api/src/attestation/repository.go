package attestation

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"kyc-attestation/system/api/src/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(record *model.AttestationRecord) error
	Get(subjectId string) (*model.AttestationRecord, error)
	Save(record *model.AttestationRecord) error
	// ListPending returns the records waiting on an MPC computation.
	ListPending() ([]*model.AttestationRecord, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(record *model.AttestationRecord) error {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrStorage, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyInitialized
	}
	return nil
}

func (r *gormRepository) Get(subjectId string) (*model.AttestationRecord, error) {
	var record model.AttestationRecord
	err := r.db.Where("subject_id = ?", subjectId).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &record, nil
}

// Save writes the whole record; concurrent writers resolve to the last one.
func (r *gormRepository) Save(record *model.AttestationRecord) error {
	if err := r.db.Save(record).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (r *gormRepository) ListPending() ([]*model.AttestationRecord, error) {
	var records []*model.AttestationRecord
	if err := r.db.Where("pending_offset IS NOT NULL").Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return records, nil
}

type memoryRepository struct {
	records sync.Map
}

func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Create(record *model.AttestationRecord) error {
	if _, loaded := r.records.LoadOrStore(record.SubjectId, record.Clone()); loaded {
		return ErrAlreadyInitialized
	}
	return nil
}

func (r *memoryRepository) Get(subjectId string) (*model.AttestationRecord, error) {
	v, ok := r.records.Load(subjectId)
	if !ok {
		return nil, ErrRecordNotFound
	}
	return v.(*model.AttestationRecord).Clone(), nil
}

func (r *memoryRepository) Save(record *model.AttestationRecord) error {
	if _, ok := r.records.Load(record.SubjectId); !ok {
		return ErrRecordNotFound
	}
	r.records.Store(record.SubjectId, record.Clone())
	return nil
}

func (r *memoryRepository) ListPending() ([]*model.AttestationRecord, error) {
	var records []*model.AttestationRecord
	r.records.Range(func(_, v any) bool {
		record := v.(*model.AttestationRecord)
		if record.PendingOffset != nil {
			records = append(records, record.Clone())
		}
		return true
	})
	sort.Slice(records, func(i, j int) bool { return records[i].SubjectId < records[j].SubjectId })
	return records, nil
}
