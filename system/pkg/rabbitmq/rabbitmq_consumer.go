package rabbitmq

import (
	"errors"
	"fmt"
	"sync"

	"kyc-attestation/system/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type ConsumerAlias string

var (
	ConsumerRegistry    map[ConsumerAlias]IRabbitmqConsumer
	onceConsumer        sync.Once
	initializedConsumer bool
)

func GetConsumer(alias ConsumerAlias) IRabbitmqConsumer {
	if !initializedConsumer {
		panic("Consumer registry not initialized: call InitializeConsumerRegistry() first")
	}
	consumer, ok := ConsumerRegistry[alias]
	if !ok {
		panic(fmt.Sprintf("consumer %q is not configured", alias))
	}
	return consumer
}

func InitializeConsumerRegistry(conn *amqp.Connection, consumerConfig []RabbitmqConsumerConfig) {
	onceConsumer.Do(func() {
		ConsumerRegistry = make(map[ConsumerAlias]IRabbitmqConsumer)

		for _, consumer := range consumerConfig {
			channel, err := conn.Channel()
			if err != nil {
				logger.Default().Panicf(err, "Could not obtain channel for consumer %s", consumer.ConsumerAlias)
			}

			ConsumerRegistry[consumer.ConsumerAlias] = NewConsumer(
				channel,
				consumer.QueueName,
				consumer.ConsumerTag,
			)
		}

		initializedConsumer = true
	})
}

// MessageHandler processes one delivery. A nil error acks it. An error rejects
// it; errors wrapped with Requeue put it back on the queue.
type MessageHandler func(amqp.Delivery) error

// ErrRequeue marks a handler error as transient.
var ErrRequeue = errors.New("requeue")

func Requeue(err error) error {
	return fmt.Errorf("%w: %w", ErrRequeue, err)
}

type IRabbitmqConsumer interface {
	StartConsuming(MessageHandler) error
}

type RabbitmqConsumer struct {
	Channel     *amqp.Channel
	QueueName   string
	ConsumerTag string
}

func NewConsumer(ch *amqp.Channel, queueName, consumerTag string) *RabbitmqConsumer {
	return &RabbitmqConsumer{
		Channel:     ch,
		QueueName:   queueName,
		ConsumerTag: consumerTag,
	}
}

// StartConsuming blocks until the delivery channel is closed.
func (rc *RabbitmqConsumer) StartConsuming(messageHandler MessageHandler) error {
	msgs, err := rc.Channel.Consume(
		rc.QueueName,   // queue
		rc.ConsumerTag, // consumer
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", rc.QueueName, err)
	}

	consumerLogger := logger.Default()
	consumerLogger.Infof("Waiting for messages in queue: %s", rc.QueueName)

	for d := range msgs {
		rc.handle(consumerLogger, d, messageHandler)
	}

	consumerLogger.Warnf("Delivery channel for %s closed", rc.QueueName)
	return nil
}

func (rc *RabbitmqConsumer) handle(consumerLogger *logger.Logger, d amqp.Delivery, messageHandler MessageHandler) {
	defer func() {
		if r := recover(); r != nil {
			consumerLogger.Errorf(nil, "[%s] Recovered from panic for consumer %s: %v", rc.QueueName, rc.ConsumerTag, r)
			_ = d.Nack(false, false)
		}
	}()

	if err := messageHandler(d); err != nil {
		requeue := errors.Is(err, ErrRequeue)
		consumerLogger.Errorf(err, "[%s] Rejecting message %s (requeue=%t)", rc.QueueName, d.MessageId, requeue)
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}
