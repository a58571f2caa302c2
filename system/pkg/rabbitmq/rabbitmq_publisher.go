package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/utilities"

	amqp "github.com/rabbitmq/amqp091-go"
)

type PublisherAlias string

var (
	PublisherRegistry map[PublisherAlias]IRabbitmqPublisher
	oncePublisher     sync.Once
)

// GetPublisher panics for unknown aliases so misconfiguration surfaces at startup.
func GetPublisher(alias PublisherAlias) IRabbitmqPublisher {
	publisher, ok := PublisherRegistry[alias]
	if !ok {
		panic(fmt.Sprintf("publisher %q is not configured", alias))
	}
	return publisher
}

func InitializePublisherRegistry(conn *amqp.Connection, publisherConfig []RabbitmqPublishersConfig) {
	oncePublisher.Do(func() {
		PublisherRegistry = make(map[PublisherAlias]IRabbitmqPublisher)

		for _, publisher := range publisherConfig {
			channel, err := conn.Channel()
			if err != nil {
				logger.Default().Panicf(err, "Could not obtain channel for publisher %s", publisher.PublisherAlias)
			}

			PublisherRegistry[publisher.PublisherAlias] = NewPublisher(
				channel,
				publisher.Exchange,
				publisher.RoutingKey,
			)
		}
	})
}

// ContentTyped lets a message choose its wire content type. JSON is assumed otherwise.
type ContentTyped interface {
	ContentType() string
}

type IRabbitmqPublisher interface {
	Publish(body utilities.Serializable) error
}

type RabbitmqPublisher struct {
	mu         sync.Mutex
	Channel    *amqp.Channel
	Exchange   string
	RoutingKey string
}

func NewPublisher(ch *amqp.Channel, exchange, routingKey string) *RabbitmqPublisher {
	return &RabbitmqPublisher{
		Channel:    ch,
		Exchange:   exchange,
		RoutingKey: routingKey,
	}
}

func (rp *RabbitmqPublisher) Publish(body utilities.Serializable) error {
	payload, err := body.Serialize()
	if err != nil {
		return err
	}

	contentType := "application/json"
	if typed, ok := body.(ContentTyped); ok {
		contentType = typed.ContentType()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rp.mu.Lock()
	defer rp.mu.Unlock()

	return rp.Channel.PublishWithContext(
		ctx,
		rp.Exchange,
		rp.RoutingKey,
		false, false,
		amqp.Publishing{
			ContentType:  contentType,
			Body:         payload,
			Timestamp:    time.Now(),
			DeliveryMode: amqp.Persistent,
		},
	)
}
