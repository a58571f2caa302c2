package rabbitmq

// WorkerService is a long running background component started by the application.
type WorkerService interface {
	GetServiceName() string
	StartService()
}
