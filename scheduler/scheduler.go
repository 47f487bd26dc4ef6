package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"navi/journal"
	"navi/model"
)

// Store persists task records.
type Store interface {
	InsertTask(ctx context.Context, task *model.TaskRecord) (int64, error)
	ListTasks(ctx context.Context) ([]model.TaskRecord, error)
	DeleteTask(ctx context.Context, id int64) (bool, error)
}

// Directory resolves the guilds and users referenced by rehydrated tasks.
type Directory interface {
	GuildName(ctx context.Context, guildID string) (string, error)
	User(ctx context.Context, userID string) (Identity, error)
}

// idleWait is how long the loop sleeps with nothing queued.
const idleWait = time.Hour

// Scheduler owns every armed task. A single loop goroutine pops due entries
// from a priority queue and hands them to worker goroutines.
type Scheduler struct {
	store   Store
	dir     Directory
	svc     Services
	journal journal.Emitter
	now     func() time.Time

	mu    sync.Mutex
	tasks map[int64]*Task
	queue entryQueue

	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	loopWg  sync.WaitGroup
	workWg  sync.WaitGroup
	started bool
}

// New creates a stopped scheduler.
func New(store Store, dir Directory, svc Services, j journal.Emitter) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:   store,
		dir:     dir,
		svc:     svc,
		journal: j,
		now:     time.Now,
		tasks:   make(map[int64]*Task),
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the scheduling loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.loopWg.Add(1)
	go s.loop()
	log.Println("[Scheduler] Started")
}

// Stop halts the loop and waits for running executions to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.loopWg.Wait()
	s.workWg.Wait()
	log.Println("[Scheduler] Stopped")
}

// Schedule persists a new record, assigning its ID, and arms it.
func (s *Scheduler) Schedule(ctx context.Context, rec *model.TaskRecord) (int64, error) {
	causer := Identity{ID: rec.CauserID, Name: "<@" + rec.CauserID + ">"}
	task, err := NewTask(*rec, causer)
	if err != nil {
		return 0, err
	}
	id, err := s.store.InsertTask(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("failed to persist task: %w", err)
	}
	rec.ID = id
	task.Record.ID = id
	if err := s.ExecuteLater(ctx, task); err != nil {
		return id, err
	}
	return id, nil
}

// ExecuteLater arms a persisted task. Arming the same task twice returns
// ErrAlreadyArmed. A task that is already complete is removed from storage
// without running.
func (s *Scheduler) ExecuteLater(ctx context.Context, task *Task) error {
	_, err := s.arm(ctx, task)
	return err
}

// arm reports whether the task was queued; it is false for expired tasks.
func (s *Scheduler) arm(ctx context.Context, task *Task) (bool, error) {
	if task.Record.ID == 0 {
		return false, fmt.Errorf("task of kind %s has not been persisted", task.Record.Kind)
	}

	s.mu.Lock()
	if task.armed {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: task %d", ErrAlreadyArmed, task.Record.ID)
	}
	if _, ok := s.tasks[task.Record.ID]; ok {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: task %d", ErrAlreadyArmed, task.Record.ID)
	}
	task.armed = true

	due, ok := DueNext(&task.Record, s.now())
	if !ok {
		task.state = Done
		s.mu.Unlock()
		log.Printf("[Scheduler] Task %d expired while offline, removing it", task.Record.ID)
		if _, err := s.store.DeleteTask(ctx, task.Record.ID); err != nil {
			return false, fmt.Errorf("failed to remove expired task %d: %w", task.Record.ID, err)
		}
		return false, nil
	}
	task.Record.DueAt = due
	task.state = Pending
	s.tasks[task.Record.ID] = task
	heap.Push(&s.queue, &entry{due: due, id: task.Record.ID})
	s.mu.Unlock()

	s.signal()
	return true, nil
}

// Cancel stops a task from running again and deletes its record.
func (s *Scheduler) Cancel(ctx context.Context, id int64) error {
	s.mu.Lock()
	task, armed := s.tasks[id]
	if armed {
		task.state = Cancelled
		delete(s.tasks, id)
	}
	s.mu.Unlock()

	existed, err := s.store.DeleteTask(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete task %d: %w", id, err)
	}
	if !armed && !existed {
		return fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	s.signal()
	return nil
}

// Rehydrate arms every persisted task. Tasks whose guild cannot be resolved
// or whose payload cannot be decoded are logged and skipped; unresolved
// causers get a placeholder identity.
func (s *Scheduler) Rehydrate(ctx context.Context) (int, error) {
	records, err := s.store.ListTasks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load tasks: %w", err)
	}

	armed := 0
	for _, rec := range records {
		if _, err := s.dir.GuildName(ctx, rec.GuildID); err != nil {
			s.fail(rec, fmt.Errorf("guild %s unavailable: %w", rec.GuildID, err))
			continue
		}
		causer, err := s.dir.User(ctx, rec.CauserID)
		if err != nil {
			log.Printf("[Scheduler] Causer %s of task %d unavailable, using placeholder: %v", rec.CauserID, rec.ID, err)
			causer = PlaceholderIdentity(rec.CauserID)
		}
		task, err := NewTask(rec, causer)
		if err != nil {
			s.fail(rec, err)
			continue
		}
		queued, err := s.arm(ctx, task)
		if err != nil {
			s.fail(rec, err)
			continue
		}
		if queued {
			armed++
		}
	}
	log.Printf("[Scheduler] Rehydrated %d of %d tasks", armed, len(records))
	return armed, nil
}

func (s *Scheduler) fail(rec model.TaskRecord, err error) {
	log.Printf("[Scheduler] Skipping task %d (%s): %v", rec.ID, rec.Kind, err)
	s.journal.Emit(journal.Event{
		Path:    "scheduler.rehydrate",
		GuildID: rec.GuildID,
		Level:   journal.Error,
		Content: fmt.Sprintf("task %d (%s) was not scheduled: %v", rec.ID, rec.Kind, err),
	})
}

// TaskInfo is a read-only view of an armed task.
type TaskInfo struct {
	Record      model.TaskRecord
	Causer      Identity
	State       State
	Description string
}

// List returns the armed tasks of a guild ordered by due time. An empty
// guildID lists every guild.
func (s *Scheduler) List(guildID string) []TaskInfo {
	s.mu.Lock()
	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		if guildID != "" && t.Record.GuildID != guildID {
			continue
		}
		out = append(out, TaskInfo{Record: t.Record, Causer: t.Causer, State: t.state, Description: t.action.Describe()})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Record.DueAt.Equal(out[j].Record.DueAt) {
			return out[i].Record.DueAt.Before(out[j].Record.DueAt)
		}
		return out[i].Record.ID < out[j].Record.ID
	})
	return out
}

// Get returns a single armed task.
func (s *Scheduler) Get(id int64) (TaskInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return TaskInfo{}, false
	}
	return TaskInfo{Record: t.Record, Causer: t.Causer, State: t.state, Description: t.action.Describe()}, true
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	defer s.loopWg.Done()
	timer := time.NewTimer(idleWait)
	defer timer.Stop()

	for {
		s.mu.Lock()
		wait := s.dispatchLocked()
		s.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// dispatchLocked starts every due task and returns how long until the next one.
func (s *Scheduler) dispatchLocked() time.Duration {
	now := s.now()
	for s.queue.Len() > 0 {
		next := s.queue[0]
		task, ok := s.tasks[next.id]
		if !ok || task.state != Pending || !task.Record.DueAt.Equal(next.due) {
			heap.Pop(&s.queue)
			continue
		}
		if next.due.After(now) {
			return next.due.Sub(now)
		}
		heap.Pop(&s.queue)
		task.state = Running
		s.workWg.Add(1)
		go s.run(task)
	}
	return idleWait
}

func (s *Scheduler) run(task *Task) {
	defer s.workWg.Done()

	s.mu.Lock()
	if task.state != Running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	err := s.execute(task)
	id := task.Record.ID
	if err != nil {
		log.Printf("[Scheduler] Task %d (%s) failed: %v", id, task.Record.Kind, err)
		s.journal.Emit(journal.Event{
			Path:    "scheduler.execute",
			GuildID: task.Record.GuildID,
			Level:   journal.Error,
			Content: fmt.Sprintf("task %d (%s) failed: %v", id, task.action.Describe(), err),
		})
	} else {
		log.Printf("[Scheduler] Task %d (%s) executed", id, task.Record.Kind)
	}

	s.mu.Lock()
	if task.state == Cancelled {
		s.mu.Unlock()
		return
	}
	if task.Record.Recurring() {
		next := task.Record.DueAt.Add(task.Record.Interval())
		if now := s.now(); next.Before(now) {
			realigned := task.Record
			realigned.DueAt = next
			next, _ = DueNext(&realigned, now)
		}
		task.Record.DueAt = next
		task.state = Pending
		heap.Push(&s.queue, &entry{due: next, id: id})
		s.mu.Unlock()
		s.signal()
		return
	}
	task.state = Done
	delete(s.tasks, id)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.store.DeleteTask(ctx, id); err != nil {
		log.Printf("[Scheduler] Failed to remove completed task %d: %v", id, err)
	}
}

func (s *Scheduler) execute(task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(s.ctx, time.Minute)
	defer cancel()
	return task.action.Execute(ctx, s.svc, task)
}

type entry struct {
	due time.Time
	id  int64
}

type entryQueue []*entry

func (q entryQueue) Len() int { return len(q) }

func (q entryQueue) Less(i, j int) bool {
	if !q[i].due.Equal(q[j].due) {
		return q[i].due.Before(q[j].due)
	}
	return q[i].id < q[j].id
}

func (q entryQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *entryQueue) Push(x interface{}) { *q = append(*q, x.(*entry)) }

func (q *entryQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}
