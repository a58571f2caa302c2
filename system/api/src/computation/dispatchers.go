package computation

import (
	"context"
	"sync"

	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/mpc"
	"kyc-attestation/system/pkg/rabbitmq"
)

// RabbitmqDispatcher publishes borsh encoded requests to the cluster's queue.
type RabbitmqDispatcher struct {
	publisher rabbitmq.IRabbitmqPublisher
}

func NewRabbitmqDispatcher(publisher rabbitmq.IRabbitmqPublisher) *RabbitmqDispatcher {
	return &RabbitmqDispatcher{publisher: publisher}
}

func (d *RabbitmqDispatcher) Dispatch(ctx context.Context, req mpc.ComputationRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.publisher.Publish(req)
}

type Deliverer interface {
	Deliver(ctx context.Context, outcome mpc.ComputationOutcome) error
}

// LocalDispatcher evaluates requests on an in-process cluster and delivers the
// outcome asynchronously, the way the broker round trip would.
type LocalDispatcher struct {
	cluster  *mpc.Cluster
	deliver  Deliverer
	inflight sync.WaitGroup
	logger   *logger.Logger
}

func NewLocalDispatcher(cluster *mpc.Cluster, deliver Deliverer, log *logger.Logger) *LocalDispatcher {
	return &LocalDispatcher{
		cluster: cluster,
		deliver: deliver,
		logger:  log.Named("LocalDispatcher"),
	}
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, req mpc.ComputationRequest) error {
	// Round trip through the wire format so local runs see what the broker sees.
	body, err := req.Serialize()
	if err != nil {
		return err
	}
	decoded, err := mpc.DecodeComputationRequest(body)
	if err != nil {
		return err
	}

	runCtx := context.WithoutCancel(ctx)
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		outcome := d.cluster.Execute(runCtx, decoded)
		if err := d.deliver.Deliver(runCtx, outcome); err != nil {
			d.logger.Errorf(err, "Delivering computation %d failed", outcome.Offset)
		}
	}()
	return nil
}

// Wait blocks until every dispatched computation has been delivered.
func (d *LocalDispatcher) Wait() {
	d.inflight.Wait()
}
