package camunda

import (
	"sync"
	"time"

	"mindfork-recommender/internal/common/config"
	"mindfork-recommender/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is implemented by every recommendation worker.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// WorkerSet opens job workers and closes them together on shutdown.
type WorkerSet struct {
	client  zbc.Client
	logger  logger.Logger
	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewWorkerSet(client zbc.Client, log logger.Logger) *WorkerSet {
	return &WorkerSet{
		client:  client,
		logger:  log,
		workers: make(map[string]worker.JobWorker),
	}
}

// Start opens a worker for taskType unless it is disabled in config.
// Returns false when the worker was skipped.
func (s *WorkerSet) Start(taskType string, wcfg config.WorkerConfig, handler JobHandler) bool {
	if !wcfg.Enabled {
		s.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	jw := s.client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	s.mu.Lock()
	s.workers[taskType] = jw
	s.mu.Unlock()

	s.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

// Running lists the task types with an open worker.
func (s *WorkerSet) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.workers))
	for taskType := range s.workers {
		out = append(out, taskType)
	}
	return out
}

// Close stops every worker and waits for in-flight jobs.
func (s *WorkerSet) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for taskType, jw := range s.workers {
		jw.Close()
		jw.AwaitClose()
		s.logger.Info("worker stopped", map[string]interface{}{"taskType": taskType})
	}
	s.workers = make(map[string]worker.JobWorker)
}
