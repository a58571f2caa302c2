package rabbitmq

import (
	"strconv"

	"kyc-attestation/system/pkg/utilities"
)

const (
	EnvRabbitmqUser     = "RABBITMQ_USER"
	EnvRabbitmqPassword = "RABBITMQ_PASSWORD"
	EnvRabbitmqHost     = "RABBITMQ_HOST"
)

type RabbimqConfigJson struct {
	User             string                         `json:"user"`
	Password         string                         `json:"password"`
	Host             string                         `json:"host"`
	Port             int                            `json:"port"`
	MaxRetries       uint64                         `json:"max_retries"`
	Topology         RabbitmqTopologyConfigJson     `json:"topology"`
	PublishersConfig []RabbitmqPublishersConfigJson `json:"publishers"`
	ConsumersConfig  []RabbitmqConsumerConfigJson   `json:"consumers"`
}

type RabbitmqConfig struct {
	User             string
	Password         string
	Host             string
	Port             int
	MaxRetries       uint64
	Topology         RabbitmqTopologyConfig
	PublishersConfig []RabbitmqPublishersConfig
	ConsumersConfig  []RabbitmqConsumerConfig
}

// ConvertToDomain applies RABBITMQ_* environment overrides on top of the file values.
func (rcj RabbimqConfigJson) ConvertToDomain() RabbitmqConfig {
	port := rcj.Port
	if port == 0 {
		port = 5672
	}
	retries := rcj.MaxRetries
	if retries == 0 {
		retries = 7
	}

	return RabbitmqConfig{
		User:       utilities.EnvOrDefault(EnvRabbitmqUser, rcj.User),
		Password:   utilities.EnvOrDefault(EnvRabbitmqPassword, rcj.Password),
		Host:       utilities.EnvOrDefault(EnvRabbitmqHost, utilities.Ternary(rcj.Host == "", "rabbitmq", rcj.Host)),
		Port:       port,
		MaxRetries: retries,
		Topology:   rcj.Topology.ConvertToDomain(),
		PublishersConfig: utilities.ConvertJsonArrayToDomain[
			RabbitmqPublishersConfigJson,
			RabbitmqPublishersConfig,
		](rcj.PublishersConfig),
		ConsumersConfig: utilities.ConvertJsonArrayToDomain[
			RabbitmqConsumerConfigJson,
			RabbitmqConsumerConfig,
		](rcj.ConsumersConfig),
	}
}

func (rc RabbitmqConfig) Address() string {
	return "amqp://" + rc.User + ":" + rc.Password + "@" + rc.Host + ":" + strconv.Itoa(rc.Port) + "/"
}

type RabbitmqTopologyConfigJson struct {
	Exchanges []string                  `json:"exchanges"`
	Queues    []RabbitmqQueueConfigJson `json:"queues"`
}

type RabbitmqTopologyConfig struct {
	Exchanges []string
	Queues    []RabbitmqQueueConfig
}

func (rtcj RabbitmqTopologyConfigJson) ConvertToDomain() RabbitmqTopologyConfig {
	return RabbitmqTopologyConfig{
		Exchanges: rtcj.Exchanges,
		Queues: utilities.ConvertJsonArrayToDomain[
			RabbitmqQueueConfigJson,
			RabbitmqQueueConfig,
		](rtcj.Queues),
	}
}

type RabbitmqQueueConfigJson struct {
	Name       string `json:"name"`
	Exchange   string `json:"exchange"`
	RoutingKey string `json:"routing_key"`
}

type RabbitmqQueueConfig struct {
	Name       string
	Exchange   string
	RoutingKey string
}

func (rqcj RabbitmqQueueConfigJson) ConvertToDomain() RabbitmqQueueConfig {
	return RabbitmqQueueConfig(rqcj)
}

type RabbitmqPublishersConfigJson struct {
	PublisherAlias string `json:"publisher_alias"`
	Exchange       string `json:"exchange"`
	RoutingKey     string `json:"routing_key"`
}

type RabbitmqPublishersConfig struct {
	PublisherAlias PublisherAlias
	Exchange       string
	RoutingKey     string
}

func (rpcj RabbitmqPublishersConfigJson) ConvertToDomain() RabbitmqPublishersConfig {
	return RabbitmqPublishersConfig{
		PublisherAlias: PublisherAlias(rpcj.PublisherAlias),
		Exchange:       rpcj.Exchange,
		RoutingKey:     rpcj.RoutingKey,
	}
}

type RabbitmqConsumerConfigJson struct {
	ConsumerAlias string `json:"consumer_alias"`
	ConsumerTag   string `json:"consumer_tag"`
	QueueName     string `json:"queue_name"`
}

type RabbitmqConsumerConfig struct {
	ConsumerAlias ConsumerAlias
	ConsumerTag   string
	QueueName     string
}

func (rccj RabbitmqConsumerConfigJson) ConvertToDomain() RabbitmqConsumerConfig {
	return RabbitmqConsumerConfig{
		ConsumerAlias: ConsumerAlias(rccj.ConsumerAlias),
		QueueName:     rccj.QueueName,
		ConsumerTag:   rccj.ConsumerTag,
	}
}
