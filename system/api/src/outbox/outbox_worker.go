package outbox

import (
	"errors"

	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/rabbitmq"

	"github.com/robfig/cron"
)

const (
	outboxWorkerName = "OutboxCronWorker"
	relayBatchSize   = 100
)

// OutboxWorker relays recorded KYC events to the events exchange.
type OutboxWorker struct {
	publisher  rabbitmq.IRabbitmqPublisher
	repository OutboxRepository
	schedule   string
	cron       *cron.Cron
	logger     *logger.Logger
}

func NewOutboxWorker(
	publisher rabbitmq.IRabbitmqPublisher,
	repository OutboxRepository,
	schedule string,
	log *logger.Logger) *OutboxWorker {
	if schedule == "" {
		schedule = "@every 10s"
	}
	return &OutboxWorker{
		publisher:  publisher,
		repository: repository,
		schedule:   schedule,
		cron:       cron.New(),
		logger:     log.Named(outboxWorkerName),
	}
}

func (ow *OutboxWorker) GetServiceName() string {
	return outboxWorkerName
}

func (ow *OutboxWorker) StartService() {
	if err := ow.cron.AddFunc(ow.schedule, func() { ow.ProcessOutboxEvents() }); err != nil {
		ow.logger.Errorf(err, "Could not add function to %s", outboxWorkerName)
		return
	}

	ow.cron.Start()
}

func (ow *OutboxWorker) Stop() {
	ow.cron.Stop()
}

// ProcessOutboxEvents relays one batch and returns how many events were published.
func (ow *OutboxWorker) ProcessOutboxEvents() int {
	events, err := ow.repository.GetUnprocessedEvents(relayBatchSize)
	if err != nil {
		ow.logger.Error(err, "Could not read events from database")
		return 0
	}

	published := 0
	for _, e := range events {
		if err := ow.publisher.Publish(e.MapToKycEvent()); err != nil {
			ow.logger.Errorf(err, "Can't publish event %s to queue", e.EventId)
			if err := ow.repository.UpdateRetryValue(e.EventId); err != nil {
				if errors.Is(err, ErrRetriesExhausted) {
					ow.logger.Warnf("Event %s parked after %d attempts", e.EventId, maxRetries)
				} else {
					ow.logger.Error(err, "Could not update retry counter")
				}
			}
			continue
		}

		if err := ow.repository.MarkEventAsProcessed(e.EventId); err != nil {
			ow.logger.Errorf(err, "Could not mark event %s as processed", e.EventId)
			continue
		}
		published++
	}

	return published
}
