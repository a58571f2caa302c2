package main

import (
	"crypto/rand"

	"kyc-attestation/system/api/src/attestation"
	"kyc-attestation/system/api/src/computation"
	"kyc-attestation/system/api/src/database"
	"kyc-attestation/system/api/src/outbox"
	"kyc-attestation/system/api/src/verifyingkey"
	appbuilder "kyc-attestation/system/pkg/app_builder"
	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/mpc"
	"kyc-attestation/system/pkg/rabbitmq"
	"kyc-attestation/system/pkg/rest"
	"kyc-attestation/system/pkg/utilities/timeutil"
	"kyc-attestation/system/pkg/zkp"
)

const (
	serviceName = "kyc-api"

	ComputationRequestPublisher rabbitmq.PublisherAlias = "ComputationRequestPublisher"
	KycEventPublisher           rabbitmq.PublisherAlias = "KycEventPublisher"
	LogPublisher                rabbitmq.PublisherAlias = "LogPublisher"
	ComputationCallbackConsumer rabbitmq.ConsumerAlias  = "ComputationCallbackConsumer"
)

type Builder = appbuilder.AppBuilder[ApiConfigJson, ApiConfig]

func main() {
	builder := appbuilder.New[ApiConfigJson, ApiConfig]().
		InitLogger(logger.GlobalLoggerConfig{Args: []logger.LoggerArg{{Key: "service", Value: serviceName}}}).
		ResolveEnvironment().
		LoadConfig("config.json").
		WithOption(func(a *Builder) {
			database.ConnectToDatabase(a)
			database.RunMigrations(a)
		}).
		InitRabbitmqConnection().
		InitRabbitmqRegistries().
		WithOption(func(a *Builder) {
			logSink := rabbitmq.CreateRabbitmqLoggerSink(serviceName, rabbitmq.GetPublisher(LogPublisher))
			logger.AddSinkToLoggerInstance(a.Logger, logSink)
		})

	handler, workers := wireAttestation(builder)

	builder.
		AddWorkerServices(workers...).
		AddGinMiddleware(rest.NewMiddleware("*", rest.RequestLogger(builder.Logger))).
		AddGinRoutes(handler.Routes()...).
		AddMetrics().
		InitGinRouter().
		Build().
		Start()
}

func wireAttestation(a *Builder) (*attestation.Handler, []rabbitmq.WorkerService) {
	cfg := a.Config
	db := database.GetDatabaseConnection()
	zkp.SilenceGnark()

	programId, err := cfg.AttestationConf.ProgramKey()
	if err != nil {
		a.Logger.Fatal(err, "Invalid attestation program id")
	}
	options := attestation.Options{
		AllowSelfAttested: cfg.AttestationConf.AllowSelfAttested,
		ProgramId:         programId,
	}
	if cfg.AttestationConf.IssuerJwkPath != "" {
		options.Issuer, err = attestation.LoadIssuerKey(cfg.AttestationConf.IssuerJwkPath, cfg.AttestationConf.IssuerAlg)
		if err != nil {
			a.Logger.Fatal(err, "Could not load attestation issuer key")
		}
	}
	if options.AllowSelfAttested {
		a.Logger.Warn("Self attested verification is enabled")
	}

	keys, err := verifyingkey.NewSource(cfg.VerifyingKeyConf)
	if err != nil {
		a.Logger.Fatal(err, "Invalid verifying key source")
	}

	clusterKeys, err := cfg.ComputationConf.ClusterKeys()
	if err != nil {
		a.Logger.Fatal(err, "Invalid MPC cluster keys")
	}

	gateway := computation.NewGateway(nil, cfg.ComputationConf.CallbackTimeout, computation.NewMetrics(a.Registry), a.Logger)
	workers := []rabbitmq.WorkerService{
		computation.NewSweeperWorker(gateway, cfg.ComputationConf.SweepSpec, a.Logger),
	}

	switch cfg.ComputationConf.Mode {
	case ComputationLocal:
		circuit, err := mpc.NewEqualityCircuit(cfg.ComputationConf.LocalNodes, rand.Reader)
		if err != nil {
			a.Logger.Fatal(err, "Could not build local MPC cluster")
		}
		cluster := mpc.NewCluster(clusterKeys, circuit, a.Logger.Named("LocalCluster"))
		gateway.SetDispatcher(computation.NewLocalDispatcher(cluster, gateway, a.Logger))
		a.Logger.Warnf("MPC computations run in process on %d nodes", circuit.Nodes())
	default:
		gateway.SetDispatcher(computation.NewRabbitmqDispatcher(rabbitmq.GetPublisher(ComputationRequestPublisher)))
		workers = append(workers, computation.NewCallbackWorker(gateway, rabbitmq.GetConsumer(ComputationCallbackConsumer), a.Logger))
	}

	outboxRepo := outbox.NewRepository(db)
	workers = append(workers, outbox.NewOutboxWorker(
		rabbitmq.GetPublisher(KycEventPublisher),
		outboxRepo,
		cfg.OutboxConf.RelaySpec,
		a.Logger,
	))

	service := attestation.NewService(
		attestation.NewRepository(db),
		outboxRepo,
		zkp.NewVerifier(zkp.NewMetrics(a.Registry)),
		gateway,
		timeutil.SystemClock{},
		options,
		a.Logger,
	)
	gateway.RegisterCallback(mpc.KycMatchCallback, service.HandleKycMatch)
	if _, err := service.ResumePending(gateway); err != nil {
		a.Logger.Fatal(err, "Could not resume pending computations")
	}

	return attestation.NewHandler(service, keys, clusterKeys.Public), workers
}
