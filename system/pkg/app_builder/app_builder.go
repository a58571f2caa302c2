package appbuilder

import (
	"fmt"

	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/rabbitmq"
	"kyc-attestation/system/pkg/rest"
	"kyc-attestation/system/pkg/utilities"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
)

type AppConfig interface {
	GetLoggerConfig() logger.LoggerConfig
	GetRabbitmqConfig() rabbitmq.RabbitmqConfig
	// GetRestApiPort returns 0 for services without an HTTP surface.
	GetRestApiPort() uint16
}

type AppBuilder[T utilities.JsonConfigObj[U], U AppConfig] struct {
	Logger   *logger.Logger
	Config   U
	Conn     *amqp.Connection
	Registry *prometheus.Registry

	workerServices []rabbitmq.WorkerService
	middleware     []rest.Middleware
	routes         []rest.Route
	engine         *gin.Engine
	closers        []func()
}

func New[T utilities.JsonConfigObj[U], U AppConfig]() *AppBuilder[T, U] {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &AppBuilder[T, U]{Registry: registry}
}

func (a *AppBuilder[T, U]) InitLogger(loggerArgs logger.GlobalLoggerConfig) *AppBuilder[T, U] {
	logger.InitDefaultLogger(loggerArgs)
	a.Logger = logger.Default()
	a.Logger.Info("Logger initialized")

	return a
}

// ResolveEnvironment loads .env files into the process environment before the config is read.
func (a *AppBuilder[T, U]) ResolveEnvironment(files ...string) *AppBuilder[T, U] {
	if err := utilities.LoadEnvironment(files...); err != nil {
		a.Logger.Fatal(err, "Failed to load environment files")
	}
	return a
}

func (a *AppBuilder[T, U]) LoadConfig(filePath string) *AppBuilder[T, U] {
	a.Logger.Infof("Preparing to load config from %s ...", filePath)
	config, err := utilities.ReadConfig[T, U](filePath)
	if err != nil {
		a.Logger.Fatal(err, "Failed to load config")
	}

	a.Config = config
	a.Logger = a.Logger.WithLevel(config.GetLoggerConfig().LogLevel)
	a.Logger.Info("Config successfully loaded.")
	return a
}

// WithOption runs arbitrary wiring against the builder, in chain order.
func (a *AppBuilder[T, U]) WithOption(option func(*AppBuilder[T, U])) *AppBuilder[T, U] {
	option(a)
	return a
}

func (a *AppBuilder[T, U]) InitRabbitmqConnection() *AppBuilder[T, U] {
	a.Logger.Info("Preparing to connect to Rabbitmq server...")
	conn, err := rabbitmq.ConnectToRabbitmq(a.Config.GetRabbitmqConfig())
	if err != nil {
		a.Logger.Fatal(err, "Could not connect to Rabbitmq")
	}

	a.Conn = conn
	a.closers = append(a.closers, func() { _ = conn.Close() })
	a.Logger.Info("Connection with Rabbitmq server established")

	return a
}

func (a *AppBuilder[T, U]) InitRabbitmqRegistries() *AppBuilder[T, U] {
	a.Logger.Info("Initializing Rabbitmq topology and registries from config")
	rabbitmqConf := a.Config.GetRabbitmqConfig()

	if err := rabbitmq.DeclareTopology(a.Conn, rabbitmqConf.Topology); err != nil {
		a.Logger.Fatal(err, "Could not declare Rabbitmq topology")
	}
	rabbitmq.InitializeConsumerRegistry(a.Conn, rabbitmqConf.ConsumersConfig)
	rabbitmq.InitializePublisherRegistry(a.Conn, rabbitmqConf.PublishersConfig)
	a.Logger.Info("Successfully initialized Rabbitmq registries from config")

	return a
}

func (a *AppBuilder[T, U]) AddWorkerServices(workerServices ...rabbitmq.WorkerService) *AppBuilder[T, U] {
	a.Logger.Info("Adding Worker Services to Application...")
	a.workerServices = append(a.workerServices, workerServices...)
	return a
}

func (a *AppBuilder[T, U]) AddGinMiddleware(middleware ...rest.Middleware) *AppBuilder[T, U] {
	a.middleware = append(a.middleware, middleware...)
	return a
}

func (a *AppBuilder[T, U]) AddGinRoutes(routes ...rest.Route) *AppBuilder[T, U] {
	a.Logger.Info("Adding Gin REST API routes to Application...")
	a.routes = append(a.routes, routes...)
	return a
}

// AddMetrics exposes the builder's prometheus registry on GET /metrics.
func (a *AppBuilder[T, U]) AddMetrics() *AppBuilder[T, U] {
	a.Logger.Info("Adding Prometheus metrics endpoint...")
	handler := promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
	a.routes = append(a.routes, rest.NewRoute(rest.GET, "", "metrics", gin.WrapH(handler)))
	return a
}

// OnShutdown registers a cleanup function run after the application stops.
func (a *AppBuilder[T, U]) OnShutdown(closer func()) *AppBuilder[T, U] {
	a.closers = append(a.closers, closer)
	return a
}

func (a *AppBuilder[T, U]) InitGinRouter() *AppBuilder[T, U] {
	a.Logger.Info("Initializing Gin Router...")
	router := gin.New()
	router.Use(gin.Recovery())

	a.Logger.Info("Registering REST API routes...")
	rest.Register(router, a.middleware, a.routes)

	a.engine = router
	a.Logger.Infof("Successfully registered %d REST API routes.", len(a.routes))
	return a
}

func (a *AppBuilder[T, U]) Build() *Application {
	app := &Application{
		Logger:         a.Logger,
		Conn:           a.Conn,
		WorkerServices: a.workerServices,
		Engine:         a.engine,
		closers:        a.closers,
	}
	if port := a.Config.GetRestApiPort(); port != 0 && a.engine != nil {
		app.Addr = fmt.Sprintf("0.0.0.0:%d", port)
	}
	return app
}
