package computation

import (
	"context"
	"errors"
	"time"

	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/mpc"
	"kyc-attestation/system/pkg/rabbitmq"
	reasoncodes "kyc-attestation/system/pkg/reason_codes"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron"
)

const (
	sweeperWorkerName  = "ComputationSweeperWorker"
	callbackWorkerName = "ComputationCallbackWorker"
)

// SweeperWorker periodically aborts computations past their deadline.
type SweeperWorker struct {
	gateway  *Gateway
	schedule string
	cron     *cron.Cron
	logger   *logger.Logger
}

func NewSweeperWorker(gateway *Gateway, schedule string, log *logger.Logger) *SweeperWorker {
	if schedule == "" {
		schedule = "@every 5s"
	}
	return &SweeperWorker{
		gateway:  gateway,
		schedule: schedule,
		cron:     cron.New(),
		logger:   log.Named(sweeperWorkerName),
	}
}

func (sw *SweeperWorker) GetServiceName() string {
	return sweeperWorkerName
}

func (sw *SweeperWorker) StartService() {
	err := sw.cron.AddFunc(sw.schedule, func() {
		if n := sw.gateway.SweepExpired(context.Background(), time.Now()); n > 0 {
			sw.logger.Infof("Aborted %d expired computations", n)
		}
	})
	if err != nil {
		sw.logger.Errorf(err, "Could not schedule %s", sweeperWorkerName)
		return
	}
	sw.cron.Start()
}

func (sw *SweeperWorker) Stop() {
	sw.cron.Stop()
}

// CallbackWorker consumes computation outcomes published by the cluster.
type CallbackWorker struct {
	gateway  *Gateway
	consumer rabbitmq.IRabbitmqConsumer
	logger   *logger.Logger
}

func NewCallbackWorker(gateway *Gateway, consumer rabbitmq.IRabbitmqConsumer, log *logger.Logger) *CallbackWorker {
	return &CallbackWorker{
		gateway:  gateway,
		consumer: consumer,
		logger:   log.Named(callbackWorkerName),
	}
}

func (cw *CallbackWorker) GetServiceName() string {
	return callbackWorkerName
}

func (cw *CallbackWorker) StartService() {
	if err := cw.consumer.StartConsuming(cw.HandleDelivery); err != nil {
		cw.logger.Error(err, "Callback consumer stopped")
	}
}

// HandleDelivery decodes one outcome and delivers it. Outcomes for offsets
// that are no longer in flight are acknowledged and dropped; transient handler
// failures requeue the message.
func (cw *CallbackWorker) HandleDelivery(d amqp.Delivery) error {
	outcome, err := mpc.DecodeComputationOutcome(d.Body)
	if err != nil {
		return err
	}

	err = cw.gateway.Deliver(context.Background(), outcome)
	if errors.Is(err, ErrUnknownOffset) {
		cw.logger.Warnf("Dropping outcome for computation %d: not in flight", outcome.Offset)
		return nil
	}
	if reasoncodes.IsRetryable(err) {
		return rabbitmq.Requeue(err)
	}
	if err != nil {
		cw.logger.Errorf(err, "Outcome for computation %d refused", outcome.Offset)
	}
	return nil
}
