package features

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"reviewdesk/internal/models"
)

type RecomputeJob struct {
	ResponseID string
	FormID     string
	Role       models.ApplicantRole
	EnqueuedAt time.Time
}

// RecomputePool processes status recomputations triggered by submission
// events, bounded to a fixed worker count so a submission burst cannot
// flood the store.
type RecomputePool struct {
	jobQueue          chan RecomputeJob
	workerCount       int
	maxTasksPerWorker int
	maxIdleTime       time.Duration
	maxTaskWaitTime   time.Duration
	ctx               context.Context
	cancel            context.CancelFunc
	wg                sync.WaitGroup
	// Metrics
	totalJobsEnqueued  int64
	totalJobsProcessed int64
	totalJobsDropped   int64
	activeWorkers      int64
}

func NewRecomputePool(size, maxTasksPerWorker, maxIdleTime, maxTaskWaitTime int) *RecomputePool {
	ctx, cancel := context.WithCancel(context.Background())
	pool := &RecomputePool{
		jobQueue:          make(chan RecomputeJob, size*maxTasksPerWorker),
		workerCount:       size,
		maxTasksPerWorker: maxTasksPerWorker,
		maxIdleTime:       time.Duration(maxIdleTime) * time.Second,
		maxTaskWaitTime:   time.Duration(maxTaskWaitTime) * time.Second,
		ctx:               ctx,
		cancel:            cancel,
	}

	return pool
}

// Start attaches the pool to a portal and launches the workers.
func (wp *RecomputePool) Start(portal *Portal) {
	portal.pool = wp
	portal.logger.Info("Starting recompute worker pool",
		zap.Int("workerCount", wp.workerCount),
		zap.Int("queueCapacity", cap(wp.jobQueue)),
		zap.Duration("maxIdleTime", wp.maxIdleTime))

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(portal, i)
	}
}

func (wp *RecomputePool) Stop() {
	wp.cancel()
	close(wp.jobQueue)
	wp.wg.Wait()
}

func (wp *RecomputePool) worker(portal *Portal, workerID int) {
	defer wp.wg.Done()
	atomic.AddInt64(&wp.activeWorkers, 1)
	defer atomic.AddInt64(&wp.activeWorkers, -1)

	idleTimer := time.NewTimer(wp.maxIdleTime)
	defer idleTimer.Stop()

	jobsProcessed := 0

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				portal.logger.Info("Worker stopping - job queue closed",
					zap.Int("workerID", workerID),
					zap.Int("jobsProcessed", jobsProcessed))
				return
			}

			startTime := time.Now()
			if err := portal.recomputeStatus(wp.ctx, job); err != nil {
				portal.logger.Error("Failed to recompute status",
					zap.Int("workerID", workerID),
					zap.String("responseId", job.ResponseID),
					zap.Error(err))
			}

			atomic.AddInt64(&wp.totalJobsProcessed, 1)
			jobsProcessed++

			portal.logger.Debug("Worker completed job",
				zap.Int("workerID", workerID),
				zap.String("responseId", job.ResponseID),
				zap.Duration("processingTime", time.Since(startTime)),
				zap.Duration("totalTime", time.Since(job.EnqueuedAt)))

			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(wp.maxIdleTime)

		case <-idleTimer.C:
			portal.logger.Info("Worker idle timeout, exiting", zap.Int("workerID", workerID),
				zap.Int("jobsProcessed", jobsProcessed))
			return

		case <-wp.ctx.Done():
			portal.logger.Info("Worker stopping - context cancelled", zap.Int("workerID", workerID),
				zap.Int("jobsProcessed", jobsProcessed))
			return
		}
	}
}

func (wp *RecomputePool) EnqueueJob(logger *zap.Logger, job RecomputeJob) bool {
	job.EnqueuedAt = time.Now()

	select {
	case wp.jobQueue <- job:
		atomic.AddInt64(&wp.totalJobsEnqueued, 1)
		logger.Debug("Enqueued recompute job", zap.String("responseId", job.ResponseID),
			zap.Int("queueSize", len(wp.jobQueue)),
			zap.Int("queueCapacity", cap(wp.jobQueue)))
		return true

	case <-time.After(wp.maxTaskWaitTime):
		atomic.AddInt64(&wp.totalJobsDropped, 1)
		logger.Error("Job enqueue timeout - queue may be full or workers unavailable",
			zap.String("responseId", job.ResponseID),
			zap.Duration("timeout", wp.maxTaskWaitTime),
			zap.Int("queueSize", len(wp.jobQueue)),
			zap.Int64("activeWorkers", atomic.LoadInt64(&wp.activeWorkers)))
		return false
	}
}

// GetMetrics returns worker pool metrics
func (wp *RecomputePool) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"total_jobs_enqueued":  atomic.LoadInt64(&wp.totalJobsEnqueued),
		"total_jobs_processed": atomic.LoadInt64(&wp.totalJobsProcessed),
		"total_jobs_dropped":   atomic.LoadInt64(&wp.totalJobsDropped),
		"active_workers":       atomic.LoadInt64(&wp.activeWorkers),
		"queue_size":           len(wp.jobQueue),
		"queue_capacity":       cap(wp.jobQueue),
	}
}
