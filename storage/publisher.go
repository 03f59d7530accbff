package storage

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
)

// Change kinds carried by board events.
const (
	ChangeReorder = "reorder"
	ChangeUpdate  = "update"
)

// BoardEvent notifies downstream consumers that a project's board changed.
type BoardEvent struct {
	ProjectID string   `json:"projectId"`
	Change    string   `json:"change"`
	TaskIDs   []string `json:"taskIds,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

type eventQueue interface {
	Enqueue(ctx context.Context, payload string) error
}

type queueAdapter struct {
	client *azqueue.QueueClient
}

func (q queueAdapter) Enqueue(ctx context.Context, payload string) error {
	_, err := q.client.EnqueueMessage(ctx, payload, nil)
	return err
}

// Publisher flushes board events to the queue from a small worker pool.
// Delivery is best effort: the queue feeds read models, not the source of
// truth, so commit paths never block or fail on it. Saturation drops the
// event with a warning.
type Publisher struct {
	queue   eventQueue
	logger  *log.Logger
	events  chan BoardEvent
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPublisher starts the worker pool. Worker count and buffer size come
// from EVENTS_WORKERS and EVENTS_BUFFER, with small defaults.
func NewPublisher(queue eventQueue, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	p := &Publisher{
		queue:   queue,
		logger:  logger,
		events:  make(chan BoardEvent, envInt("EVENTS_BUFFER", 1024)),
		timeout: envDur("EVENTS_TIMEOUT", 30*time.Second),
	}
	workers := envInt("EVENTS_WORKERS", 4)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Publish hands the event to the pool without blocking. It returns false
// when the buffer is saturated or the publisher is closed.
func (p *Publisher) Publish(ev BoardEvent) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	select {
	case p.events <- ev:
		p.mu.Unlock()
		return true
	default:
		p.mu.Unlock()
		p.logger.WithField("project", ev.ProjectID).Warn("event buffer saturated, dropping board event")
		return false
	}
}

// Close drains pending events and stops the workers.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) worker() {
	defer p.wg.Done()
	for ev := range p.events {
		payload, err := json.Marshal(ev)
		if err != nil {
			p.logger.WithField("project", ev.ProjectID).Errorf("encode board event: %v", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err = p.queue.Enqueue(ctx, string(payload))
		cancel()
		if err != nil {
			p.logger.WithFields(log.Fields{"project": ev.ProjectID, "change": ev.Change}).Errorf("enqueue board event: %v", err)
		}
	}
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDur(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
