package main

import (
	"context"
	"fmt"

	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/mpc"
	"kyc-attestation/system/pkg/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

const computationWorkerName = "ComputationWorker"

// ComputationWorker evaluates queued requests and publishes one outcome per
// request, aborted or not.
type ComputationWorker struct {
	cluster   *mpc.Cluster
	consumer  rabbitmq.IRabbitmqConsumer
	publisher rabbitmq.IRabbitmqPublisher
	logger    *logger.Logger
}

func NewComputationWorker(
	cluster *mpc.Cluster,
	consumer rabbitmq.IRabbitmqConsumer,
	publisher rabbitmq.IRabbitmqPublisher,
	log *logger.Logger) *ComputationWorker {
	return &ComputationWorker{
		cluster:   cluster,
		consumer:  consumer,
		publisher: publisher,
		logger:    log.Named(computationWorkerName),
	}
}

func (cw *ComputationWorker) GetServiceName() string {
	return computationWorkerName
}

func (cw *ComputationWorker) StartService() {
	if err := cw.consumer.StartConsuming(cw.HandleDelivery); err != nil {
		cw.logger.Error(err, "Computation consumer stopped")
	}
}

func (cw *ComputationWorker) HandleDelivery(d amqp.Delivery) error {
	req, err := mpc.DecodeComputationRequest(d.Body)
	if err != nil {
		return err
	}

	outcome := cw.cluster.Execute(context.Background(), req)
	if err := cw.publisher.Publish(outcome); err != nil {
		return fmt.Errorf("publish outcome of computation %d: %w", req.Offset, err)
	}

	cw.logger.Infof("Computation %d answered with %s", req.Offset, outcome.Status)
	return nil
}
