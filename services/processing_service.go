package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"vidsense/logger"
	"vidsense/models"
	"vidsense/repositories"

	"gorm.io/gorm"
)

// ProcessingScheduler is the slice of the processing service the upload
// path needs: hand a video over and return immediately.
type ProcessingScheduler interface {
	Schedule(videoID string, userID string) error
}

type ProcessingService interface {
	ProcessingScheduler
	Start()
	Stop()
}

type ProcessingOptions struct {
	Tick        time.Duration
	Step        int
	WorkerCount int
	QueueSize   int
}

func (o *ProcessingOptions) normalize() {
	if o.Tick <= 0 {
		o.Tick = 500 * time.Millisecond
	}
	if o.Step <= 0 || o.Step > 100 {
		o.Step = 10
	}
	if o.WorkerCount <= 0 {
		o.WorkerCount = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
}

type processingJob struct {
	videoID string
	userID  string
}

// processingService owns the bounded job queue and the worker pool that
// drains it. One job simulates the processing of one video: progress
// ticks from 0 to 100, each tick persisting before notifying, then a
// classification decides the terminal outcome. Any failure, including a
// panic, lands the video in the failed state without touching other jobs.
type processingService struct {
	videos     repositories.VideoRepository
	locks      *videoLocks
	notifier   Notifier
	classifier Classifier
	opts       ProcessingOptions

	jobs chan processingJob
	quit chan struct{}
	wg   sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewProcessingService(
	videos repositories.VideoRepository,
	locks *videoLocks,
	notifier Notifier,
	classifier Classifier,
	opts ProcessingOptions,
) ProcessingService {
	opts.normalize()
	return &processingService{
		videos:     videos,
		locks:      locks,
		notifier:   notifier,
		classifier: classifier,
		opts:       opts,
		jobs:       make(chan processingJob, opts.QueueSize),
		quit:       make(chan struct{}),
	}
}

func (s *processingService) Start() {
	s.startOnce.Do(func() {
		for i := 0; i < s.opts.WorkerCount; i++ {
			s.wg.Add(1)
			go s.worker()
		}
	})
}

// Stop lets in-flight jobs run to their terminal state, then stops the
// workers. Queued but unstarted jobs are dropped; the queue is not durable.
func (s *processingService) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.wg.Wait()
	})
}

func (s *processingService) Schedule(videoID string, userID string) error {
	job := processingJob{videoID: videoID, userID: userID}
	select {
	case s.jobs <- job:
		return nil
	default:
		return newAppError(http.StatusServiceUnavailable, "processing queue is full", nil)
	}
}

func (s *processingService) worker() {
	defer s.wg.Done()
	for {
		select {
		case job := <-s.jobs:
			s.runJob(job)
		case <-s.quit:
			return
		}
	}
}

func (s *processingService) runJob(job processingJob) {
	s.locks.Lock(job.videoID)
	defer s.locks.Unlock(job.videoID)

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("processing video %s panicked: %v", job.videoID, r)
			s.markFailed(context.Background(), job)
		}
	}()

	ctx := context.Background()

	video, err := s.videos.GetByID(ctx, nil, job.videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debugf("video %s gone before processing started", job.videoID)
			return
		}
		s.markFailed(ctx, job)
		return
	}

	for progress := 0; progress <= 100; progress += s.opts.Step {
		time.Sleep(s.opts.Tick)

		// Persist first, then notify: a reader that saw the event can
		// always observe at least that progress in the store.
		err := s.videos.UpdateByID(ctx, nil, job.videoID, map[string]interface{}{
			"processing_progress": progress,
		})
		if err != nil {
			s.markFailed(ctx, job)
			return
		}

		p := progress
		s.notifier.Publish(ctx, job.userID, Event{
			Event:    EventProcessingProgress,
			VideoID:  job.videoID,
			Progress: &p,
			Status:   models.VideoStatusProcessing,
		})
	}

	sensitivity, err := s.classifier.Classify(video.Filename)
	if err != nil {
		s.markFailed(ctx, job)
		return
	}

	err = s.videos.UpdateByID(ctx, nil, job.videoID, map[string]interface{}{
		"status":              models.VideoStatusCompleted,
		"sensitivity":         sensitivity,
		"processing_progress": 100,
	})
	if err != nil {
		s.markFailed(ctx, job)
		return
	}

	s.notifier.Publish(ctx, job.userID, Event{
		Event:       EventProcessingComplete,
		VideoID:     job.videoID,
		Sensitivity: sensitivity,
		Status:      models.VideoStatusCompleted,
	})
}

// markFailed freezes progress at its last persisted value and leaves
// sensitivity unset. Failed is terminal; there is no retry.
func (s *processingService) markFailed(ctx context.Context, job processingJob) {
	err := s.videos.UpdateByID(ctx, nil, job.videoID, map[string]interface{}{
		"status": models.VideoStatusFailed,
	})
	if err != nil {
		logger.Errorf("mark video %s failed: %v", job.videoID, err)
	}

	s.notifier.Publish(ctx, job.userID, Event{
		Event:   EventProcessingFailed,
		VideoID: job.videoID,
		Status:  models.VideoStatusFailed,
	})
}
