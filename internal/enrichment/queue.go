package enrichment

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"homescout/server/internal/models"
)

var ErrQueueClosed = errors.New("request queue is closed")

// submission is one queued fetch request tagged with its supersession
// sequence number.
type submission struct {
	seq uint64
	req models.FetchRequest
}

// RequestQueue serializes enrichment runs. Rapid successive submissions
// coalesce: the processing loop always drains to the most recent submission
// before running, so intermediate requests are never executed and cache
// reads/writes of concurrent runs cannot interleave.
type RequestQueue struct {
	items    chan submission
	done     chan struct{}
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(submission)
}

func NewRequestQueue(bufferSize int, logger *logrus.Logger) *RequestQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &RequestQueue{
		items:  make(chan submission, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Push enqueues a submission, displacing the oldest queued entry when the
// buffer is full. Push never blocks.
func (q *RequestQueue) Push(s submission) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	for {
		select {
		case q.items <- s:
			q.logger.WithField("seq", s.seq).Debug("Queued fetch request")
			return nil
		default:
			// Displace the oldest entry; it is superseded anyway.
			select {
			case <-q.items:
			default:
			}
		}
	}
}

// Subscribe adds a handler called for each processed submission.
func (q *RequestQueue) Subscribe(handler func(submission)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins the processing loop.
func (q *RequestQueue) Start() {
	go q.process()
}

func (q *RequestQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case s, ok := <-q.items:
			if !ok {
				return
			}
			s = q.drainToLatest(s)
			q.dispatch(s)
		}
	}
}

// drainToLatest discards every queued submission older than the newest one
// available right now.
func (q *RequestQueue) drainToLatest(s submission) submission {
	for {
		select {
		case newer, ok := <-q.items:
			if !ok {
				return s
			}
			if newer.seq > s.seq {
				s = newer
			}
		default:
			return s
		}
	}
}

func (q *RequestQueue) dispatch(s submission) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		handler(s)
	}
}

// Close stops the queue and rejects further submissions.
func (q *RequestQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

// Len returns the number of queued submissions.
func (q *RequestQueue) Len() int {
	return len(q.items)
}

// IsClosed reports whether the queue has been closed.
func (q *RequestQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
