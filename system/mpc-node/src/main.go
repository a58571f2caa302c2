package main

import (
	"crypto/rand"
	"encoding/hex"

	appbuilder "kyc-attestation/system/pkg/app_builder"
	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/mpc"
	"kyc-attestation/system/pkg/rabbitmq"
)

const (
	serviceName = "mpc-node"

	ComputationRequestConsumer  rabbitmq.ConsumerAlias  = "ComputationRequestConsumer"
	ComputationOutcomePublisher rabbitmq.PublisherAlias = "ComputationOutcomePublisher"
	LogPublisher                rabbitmq.PublisherAlias = "LogPublisher"
)

type Builder = appbuilder.AppBuilder[MpcNodeConfigJson, MpcNodeConfig]

func main() {
	builder := appbuilder.New[MpcNodeConfigJson, MpcNodeConfig]().
		InitLogger(logger.GlobalLoggerConfig{Args: []logger.LoggerArg{{Key: "service", Value: serviceName}}}).
		ResolveEnvironment().
		LoadConfig("config.json").
		InitRabbitmqConnection().
		InitRabbitmqRegistries().
		WithOption(func(a *Builder) {
			logSink := rabbitmq.CreateRabbitmqLoggerSink(serviceName, rabbitmq.GetPublisher(LogPublisher))
			logger.AddSinkToLoggerInstance(a.Logger, logSink)
		})

	worker := newComputationWorker(builder)

	builder.
		AddWorkerServices(worker).
		Build().
		Start()
}

func newComputationWorker(a *Builder) *ComputationWorker {
	keys, err := a.Config.ClusterConf.KeyPair()
	if err != nil {
		a.Logger.Fatal(err, "Invalid cluster key")
	}
	circuit, err := mpc.NewEqualityCircuit(a.Config.ClusterConf.Nodes, rand.Reader)
	if err != nil {
		a.Logger.Fatal(err, "Could not build equality circuit")
	}
	a.Logger.Infof("Cluster public key %s, %d nodes", hex.EncodeToString(keys.Public[:]), circuit.Nodes())

	return NewComputationWorker(
		mpc.NewCluster(keys, circuit, a.Logger.Named("Cluster")),
		rabbitmq.GetConsumer(ComputationRequestConsumer),
		rabbitmq.GetPublisher(ComputationOutcomePublisher),
		a.Logger,
	)
}
