package model

import (
	"time"

	dtocommon "kyc-attestation/system/pkg/dto_common"
	"kyc-attestation/system/pkg/utilities/timeutil"

	"gorm.io/gorm"
)

type OutboxEvent struct {
	Id          int    `gorm:"primaryKey;autoIncrement"`
	EventId     string `gorm:"uniqueIndex"`
	SubjectId   string `gorm:"index"`
	Type        string
	Payload     []byte
	Retry       int
	ToProcess   bool `gorm:"index"`
	OccurredAt  int64
	ProcessedAt gorm.DeletedAt
	CreatedAt   time.Time
}

func (oe OutboxEvent) MapToKycEvent() dtocommon.KycEventDto {
	return dtocommon.KycEventDto{
		EventId:   oe.EventId,
		Type:      dtocommon.KycEventType(oe.Type),
		SubjectId: oe.SubjectId,
		Timestamp: timeutil.TimeUTC{T: oe.OccurredAt},
		Payload:   oe.Payload,
	}
}
