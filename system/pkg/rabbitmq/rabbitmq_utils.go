package rabbitmq

import (
	"time"

	"kyc-attestation/system/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

func ConnectToRabbitmq(cfg RabbitmqConfig) (*amqp.Connection, error) {
	queueLogger := logger.Default()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxElapsedTime = 0

	var conn *amqp.Connection
	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			c, err := amqp.Dial(cfg.Address())
			if err != nil {
				return err
			}
			conn = c
			return nil
		},
		backoff.WithMaxRetries(policy, cfg.MaxRetries),
		func(err error, wait time.Duration) {
			queueLogger.Warnf("Attempt %d failed: %v. Retrying in %v...", attempt, err, wait)
		},
	)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// DeclareTopology declares durable direct exchanges and queues and binds them.
func DeclareTopology(conn *amqp.Connection, topology RabbitmqTopologyConfig) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	for _, exchange := range topology.Exchanges {
		if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
			return err
		}
	}

	for _, q := range topology.Queues {
		if _, err := ch.QueueDeclare(q.Name, true, false, false, false, nil); err != nil {
			return err
		}
		if q.Exchange == "" {
			continue
		}
		if err := ch.QueueBind(q.Name, q.RoutingKey, q.Exchange, false, nil); err != nil {
			return err
		}
	}

	return nil
}
