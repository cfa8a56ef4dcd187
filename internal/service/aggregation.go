package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/gradtrack/mentor-api/internal/models"
	"github.com/gradtrack/mentor-api/pkg/jobs"
)

// Aggregation components reported in results and metrics.
const (
	ComponentMaterializer = "task_materializer"
	ComponentTopicRollup  = "topic_rollup"
	ComponentRoster       = "university_roster"
)

// StudentCoursesChangedEvent fires after a student's course roster is written.
type StudentCoursesChangedEvent struct {
	Student *models.Student
	// Courses carries the roster entries affected by the write. For a full
	// student save this is the entire roster.
	Courses []models.StudentCourse
	By      string
}

// TopicChangedEvent fires after a topic create or update.
type TopicChangedEvent struct {
	Topic *models.Topic
}

// AggregationResult reports the outcome of one aggregator run. Failures are
// swallowed by the pipeline; callers inspect results instead of receiving
// errors.
type AggregationResult struct {
	Component string
	Key       string
	Err       error
}

// Failed reports whether the run errored.
func (r AggregationResult) Failed() bool {
	return r.Err != nil
}

// keyedMutex serializes critical sections per string key, so concurrent
// triggers for the same task or student/course pair never interleave.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

// Lock acquires the mutex for key and returns the unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// AggregationPipeline subscribes the aggregators to domain events. Every run
// is serialized per affected key and its failure is logged and swallowed so
// the triggering write always succeeds; outcomes surface through results,
// metrics and the optional retry queue.
type AggregationPipeline struct {
	materializer *TaskMaterializerService
	rollup       *TopicRollupService
	locks        *keyedMutex
	metrics      *MetricsService
	retryQueue   *jobs.Queue
	logger       *zap.Logger
}

// NewAggregationPipeline wires the pipeline. Metrics and retry queue are
// optional.
func NewAggregationPipeline(materializer *TaskMaterializerService, rollup *TopicRollupService, metrics *MetricsService, logger *zap.Logger) *AggregationPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregationPipeline{
		materializer: materializer,
		rollup:       rollup,
		locks:        newKeyedMutex(),
		metrics:      metrics,
		logger:       logger,
	}
}

// WithRetryQueue attaches a queue that re-runs failed aggregations in the
// background. The queue must be started by the caller.
func (p *AggregationPipeline) WithRetryQueue(queue *jobs.Queue) *AggregationPipeline {
	p.retryQueue = queue
	return p
}

// StudentCoursesChanged materializes tasks for every affected roster entry.
// One result is returned per entry; a failing entry never aborts the rest.
func (p *AggregationPipeline) StudentCoursesChanged(ctx context.Context, event StudentCoursesChangedEvent) []AggregationResult {
	if event.Student == nil {
		return nil
	}

	results := make([]AggregationResult, 0, len(event.Courses))
	for _, entry := range event.Courses {
		key := fmt.Sprintf("materialize:%s:%s", event.Student.ID, entry.CourseID)
		unlock := p.locks.Lock(key)
		err := p.materializer.MaterializeCourse(ctx, event.Student, entry, event.By)
		unlock()

		result := AggregationResult{Component: ComponentMaterializer, Key: key, Err: err}
		p.record(result, jobs.Job{
			ID:      key,
			Type:    ComponentMaterializer,
			Payload: event,
		})
		results = append(results, result)
	}
	return results
}

// TopicChanged recomputes the owning task's rollup.
func (p *AggregationPipeline) TopicChanged(ctx context.Context, event TopicChangedEvent) AggregationResult {
	if event.Topic == nil || event.Topic.TaskID == "" {
		return AggregationResult{Component: ComponentTopicRollup}
	}

	key := fmt.Sprintf("rollup:%s", event.Topic.TaskID)
	unlock := p.locks.Lock(key)
	err := p.rollup.Recompute(ctx, event.Topic)
	unlock()

	result := AggregationResult{Component: ComponentTopicRollup, Key: key, Err: err}
	p.record(result, jobs.Job{
		ID:      key,
		Type:    ComponentTopicRollup,
		Payload: event,
	})
	return result
}

// RetryHandler processes queued aggregation retries.
func (p *AggregationPipeline) RetryHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		switch job.Type {
		case ComponentMaterializer:
			event, ok := job.Payload.(StudentCoursesChangedEvent)
			if !ok {
				return fmt.Errorf("unexpected payload for %s retry", job.Type)
			}
			for _, result := range p.retryRun(ctx, event) {
				if result.Failed() {
					return result.Err
				}
			}
			return nil
		case ComponentTopicRollup:
			event, ok := job.Payload.(TopicChangedEvent)
			if !ok {
				return fmt.Errorf("unexpected payload for %s retry", job.Type)
			}
			key := fmt.Sprintf("rollup:%s", event.Topic.TaskID)
			unlock := p.locks.Lock(key)
			defer unlock()
			return p.rollup.Recompute(ctx, event.Topic)
		default:
			return fmt.Errorf("unknown aggregation job type %q", job.Type)
		}
	}
}

func (p *AggregationPipeline) retryRun(ctx context.Context, event StudentCoursesChangedEvent) []AggregationResult {
	results := make([]AggregationResult, 0, len(event.Courses))
	for _, entry := range event.Courses {
		key := fmt.Sprintf("materialize:%s:%s", event.Student.ID, entry.CourseID)
		unlock := p.locks.Lock(key)
		err := p.materializer.MaterializeCourse(ctx, event.Student, entry, event.By)
		unlock()
		results = append(results, AggregationResult{Component: ComponentMaterializer, Key: key, Err: err})
	}
	return results
}

func (p *AggregationPipeline) record(result AggregationResult, retry jobs.Job) {
	p.metrics.RecordAggregation(result.Component, result.Failed())
	if !result.Failed() {
		return
	}

	p.logger.Sugar().Errorw("aggregation failed",
		"component", result.Component,
		"key", result.Key,
		"error", result.Err,
	)
	if p.retryQueue != nil {
		if err := p.retryQueue.Enqueue(retry); err != nil {
			p.logger.Sugar().Warnw("failed to enqueue aggregation retry", "key", result.Key, "error", err)
		}
	}
}
