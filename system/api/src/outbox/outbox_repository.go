package outbox

import (
	"errors"

	"kyc-attestation/system/api/src/model"
	dtocommon "kyc-attestation/system/pkg/dto_common"
	"kyc-attestation/system/pkg/utilities"
	"kyc-attestation/system/pkg/utilities/timeutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxRetries = 5

var ErrRetriesExhausted = errors.New("outbox event exceeded retry limit")

type OutboxRepository interface {
	GetEvent(eventId string) (model.OutboxEvent, error)
	NewEvent(subjectId string, eventType dtocommon.KycEventType, payload utilities.Serializable, at timeutil.TimeUTC) (string, error)
	GetUnprocessedEvents(limit int) ([]model.OutboxEvent, error)
	MarkEventAsProcessed(eventId string) error
	UpdateRetryValue(eventId string) error
}

type outboxRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (or *outboxRepository) GetEvent(eventId string) (model.OutboxEvent, error) {
	var event model.OutboxEvent
	result := or.db.First(&event, "event_id = ?", eventId)
	return event, result.Error
}

func (or *outboxRepository) NewEvent(
	subjectId string,
	eventType dtocommon.KycEventType,
	payload utilities.Serializable,
	at timeutil.TimeUTC) (string, error) {
	body, err := payload.Serialize()
	if err != nil {
		return "", err
	}

	eventId := uuid.NewString()
	result := or.db.Create(&model.OutboxEvent{
		EventId:    eventId,
		SubjectId:  subjectId,
		Type:       string(eventType),
		Payload:    body,
		ToProcess:  true,
		OccurredAt: at.T,
	})

	return eventId, result.Error
}

func (or *outboxRepository) GetUnprocessedEvents(limit int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	result := or.db.
		Where("to_process = ?", true).
		Order("id").
		Limit(limit).
		Find(&events)
	return events, result.Error
}

func (or *outboxRepository) MarkEventAsProcessed(eventId string) error {
	return or.db.Where("event_id = ?", eventId).Delete(&model.OutboxEvent{}).Error
}

// UpdateRetryValue counts a failed relay attempt. Events past the retry limit
// are parked (soft deleted) for manual inspection.
func (or *outboxRepository) UpdateRetryValue(eventId string) error {
	event, err := or.GetEvent(eventId)
	if err != nil {
		return err
	}

	err = or.db.Model(&model.OutboxEvent{}).
		Where("event_id = ?", eventId).
		Update("retry", event.Retry+1).Error
	if err != nil {
		return err
	}

	if event.Retry+1 >= maxRetries {
		if err := or.MarkEventAsProcessed(eventId); err != nil {
			return err
		}
		return ErrRetriesExhausted
	}
	return nil
}
