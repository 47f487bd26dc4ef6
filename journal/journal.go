package journal

import (
	"context"
	"log"
	"sync"
	"time"
)

// Level tags the severity of a journal event.
type Level string

const (
	Info  Level = "INFO"
	Warn  Level = "WARN"
	Error Level = "ERROR"
)

// Event is a structured audit record. Path names the producer, e.g. "filter.flag".
type Event struct {
	Path      string
	GuildID   string
	ChannelID string
	Content   string
	Level     Level
	Icon      string
	Time      time.Time
}

// Emitter accepts events without blocking the caller.
type Emitter interface {
	Emit(e Event)
}

// Sink delivers events somewhere. Write errors are logged and dropped.
type Sink interface {
	Name() string
	Write(ctx context.Context, e Event) error
}

// Journal fans events out to its sinks from a single dispatcher goroutine.
type Journal struct {
	events chan Event
	sinks  []Sink

	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// New creates a journal buffering up to buffer pending events.
func New(buffer int, sinks ...Sink) *Journal {
	if buffer <= 0 {
		buffer = 256
	}
	return &Journal{events: make(chan Event, buffer), sinks: sinks}
}

// Start launches the dispatcher.
func (j *Journal) Start() {
	j.startOnce.Do(func() {
		j.wg.Add(1)
		go j.run()
	})
}

func (j *Journal) run() {
	defer j.wg.Done()
	for e := range j.events {
		for _, sink := range j.sinks {
			j.write(sink, e)
		}
	}
}

func (j *Journal) write(sink Sink, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Journal] Sink %s panicked: %v", sink.Name(), r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sink.Write(ctx, e); err != nil {
		log.Printf("[Journal] Sink %s failed to write %s: %v", sink.Name(), e.Path, err)
	}
}

// Emit queues an event. When the buffer is full or the journal is closed the
// event is logged and dropped.
func (j *Journal) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if e.Level == "" {
		e.Level = Info
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		log.Printf("[Journal] Dropping %s after close: %s", e.Path, e.Content)
		return
	}
	select {
	case j.events <- e:
	default:
		log.Printf("[Journal] Buffer full, dropping %s: %s", e.Path, e.Content)
	}
}

// Close stops accepting events and waits until the queued ones were delivered.
func (j *Journal) Close() {
	j.closeOnce.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.events)
		j.mu.Unlock()
		j.Start()
		j.wg.Wait()
	})
}
