package services

import (
	"vidsense/config"
	"vidsense/repositories"
)

type Container struct {
	Auth       AuthService
	Video      VideoService
	Processing ProcessingService
}

func NewContainer(repos repositories.Container, notifier Notifier, classifier Classifier) *Container {
	cfg := config.AppConfig.Processing
	locks := newVideoLocks()

	processing := NewProcessingService(repos.Videos, locks, notifier, classifier, ProcessingOptions{
		Tick:        cfg.TickInterval(),
		Step:        cfg.ProgressStep,
		WorkerCount: cfg.WorkerCount,
		QueueSize:   cfg.QueueSize,
	})

	return &Container{
		Auth:       NewAuthService(repos.TxManager, repos.Users),
		Video:      NewVideoService(repos.Videos, locks, processing),
		Processing: processing,
	}
}
