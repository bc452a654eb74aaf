// Package notify carries transient user-facing messages from flows to
// whatever is rendering them.
package notify

import "sync"

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Queue buffers notifications until the renderer drains them.
type Queue struct {
	mu      sync.Mutex
	pending []Notification
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Info(msg string)    { q.push(LevelInfo, msg) }
func (q *Queue) Success(msg string) { q.push(LevelSuccess, msg) }
func (q *Queue) Error(msg string)   { q.push(LevelError, msg) }

func (q *Queue) push(level Level, msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, Notification{Level: level, Message: msg})
}

// Drain returns everything queued so far, oldest first, and empties the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}
