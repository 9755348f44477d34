package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmissao   = "jobs:emissao"
	QueueRelatorio = "jobs:relatorio"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EmissaoJobPayload asks a worker to emit one fiscal pool entry.
type EmissaoJobPayload struct {
	EntryID string `json:"entry_id"`
}

// RelatorioJobPayload asks a worker to render and mail a closing report.
type RelatorioJobPayload struct {
	SessionID string `json:"session_id"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueEmission pushes a fiscal emission job to Redis.
func (d *Dispatcher) EnqueueEmission(ctx context.Context, entryID uuid.UUID) error {
	return d.enqueue(ctx, QueueEmissao, "emissao", EmissaoJobPayload{EntryID: entryID.String()})
}

// EnqueueReport pushes a cashier closing-report job to Redis.
func (d *Dispatcher) EnqueueReport(ctx context.Context, sessionID uuid.UUID) error {
	return d.enqueue(ctx, QueueRelatorio, "relatorio", RelatorioJobPayload{SessionID: sessionID.String()})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handlers routes dequeued jobs to their workers.
type Handlers struct {
	Emissao   *EmissionWorker
	Relatorio *ReportWorker
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers Handlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers Handlers, id int) {
	queues := []string{QueueEmissao, QueueRelatorio}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, handlers Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	switch queue {
	case QueueEmissao:
		if handlers.Emissao != nil {
			handlers.Emissao.Process(ctx, job.Payload)
		}
	case QueueRelatorio:
		if handlers.Relatorio != nil {
			handlers.Relatorio.Process(ctx, job.Payload)
		}
	default:
		log.Warn().Str("queue", queue).Str("type", job.Type).Msg("job from unknown queue dropped")
	}
}
