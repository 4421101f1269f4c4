// internal/common/camunda/worker.go
package camunda

import (
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"transmission-api/internal/common/logger"
)

// WorkerOptions configures a job worker subscription.
type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
	// RequestTimeout bounds each activate-jobs poll. Zero keeps the client default.
	RequestTimeout time.Duration
}

// Worker is an open job subscription.
type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// OpenWorker subscribes handler to opts.TaskType.
func OpenWorker(client zbc.Client, opts WorkerOptions, handler worker.JobHandler, log logger.Logger) *Worker {
	log = logger.ForComponent(log, "camunda").With(map[string]interface{}{"taskType": opts.TaskType})

	step := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(handler).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Name(fmt.Sprintf("%s-worker", opts.TaskType))
	if opts.RequestTimeout > 0 {
		step = step.RequestTimeout(opts.RequestTimeout)
	}

	w := &Worker{worker: step.Open(), logger: log, taskType: opts.TaskType}
	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})
	return w
}

// Close stops polling and waits for in-flight jobs.
func (w *Worker) Close() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
