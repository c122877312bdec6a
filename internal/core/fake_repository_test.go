package core

import (
	"context"
	"sync"
	"time"
)

// fakeRepository is an in-memory stand-in for internal/store.Store, used so
// the engine/executor/control-surface tests in this package don't need a
// real database.
type fakeRepository struct {
	mu        sync.Mutex
	targets   map[string]*Target
	schedules map[string]*Schedule
	runs      map[string]*Run
	attempts  map[string][]*Attempt // run id -> attempts, in insertion order
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		targets:   make(map[string]*Target),
		schedules: make(map[string]*Schedule),
		runs:      make(map[string]*Run),
		attempts:  make(map[string][]*Attempt),
	}
}

func cloneTarget(t *Target) *Target {
	c := *t
	return &c
}

func cloneSchedule(s *Schedule) *Schedule {
	c := *s
	return &c
}

func (f *fakeRepository) CreateTarget(ctx context.Context, t *Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets[t.ID] = cloneTarget(t)
	return nil
}

func (f *fakeRepository) GetTarget(ctx context.Context, id string) (*Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.targets[id]
	if !ok {
		return nil, ErrTargetMissing
	}
	return cloneTarget(t), nil
}

func (f *fakeRepository) ListTargets(ctx context.Context) ([]*Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Target, 0, len(f.targets))
	for _, t := range f.targets {
		out = append(out, cloneTarget(t))
	}
	return out, nil
}

func (f *fakeRepository) UpdateTarget(ctx context.Context, t *Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.targets[t.ID]; !ok {
		return ErrNotFound
	}
	f.targets[t.ID] = cloneTarget(t)
	return nil
}

func (f *fakeRepository) DeleteTarget(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.targets, id)
	return nil
}

func (f *fakeRepository) CreateSchedule(ctx context.Context, s *Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedules[s.ID] = cloneSchedule(s)
	return nil
}

func (f *fakeRepository) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSchedule(s), nil
}

func (f *fakeRepository) ListSchedules(ctx context.Context) ([]*Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Schedule, 0, len(f.schedules))
	for _, s := range f.schedules {
		out = append(out, cloneSchedule(s))
	}
	return out, nil
}

func (f *fakeRepository) ListActiveSchedules(ctx context.Context) ([]*Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Schedule, 0)
	for _, s := range f.schedules {
		if s.Status == ScheduleStatusActive {
			out = append(out, cloneSchedule(s))
		}
	}
	return out, nil
}

func (f *fakeRepository) UpdateScheduleStatus(ctx context.Context, id string, status ScheduleStatus, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = now
	return nil
}

func (f *fakeRepository) UpdateScheduleLastRun(ctx context.Context, id string, lastRunAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return ErrNotFound
	}
	t := lastRunAt
	s.LastRunAt = &t
	s.UpdatedAt = lastRunAt
	return nil
}

func (f *fakeRepository) DeleteSchedule(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.schedules, id)
	return nil
}

func (f *fakeRepository) CreateRunAndMarkSchedule(ctx context.Context, run *Run, scheduleID string, startedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[scheduleID]
	if !ok {
		return ErrNotFound
	}
	c := *run
	f.runs[run.ID] = &c
	t := startedAt
	s.LastRunAt = &t
	s.UpdatedAt = startedAt
	return nil
}

func (f *fakeRepository) GetRunWithAttempts(ctx context.Context, id string) (*RunWithAttempts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	rc := *r
	atts := make([]*Attempt, len(f.attempts[id]))
	for i, a := range f.attempts[id] {
		ac := *a
		atts[i] = &ac
	}
	return &RunWithAttempts{Run: &rc, Attempts: atts}, nil
}

func (f *fakeRepository) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Run, 0)
	for _, r := range f.runs {
		if filter.ScheduleID != nil && r.ScheduleID != *filter.ScheduleID {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeRepository) FinalizeRun(ctx context.Context, id string, status RunStatus, completedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	t := completedAt
	r.CompletedAt = &t
	return nil
}

func (f *fakeRepository) MarkOrphansOnStartup(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for id, r := range f.runs {
		if r.Status != RunStatusPending {
			continue
		}
		r.Status = RunStatusFailed
		t := now
		r.CompletedAt = &t
		if len(f.attempts[id]) == 0 {
			msg := "interrupted"
			f.attempts[id] = append(f.attempts[id], &Attempt{
				ID:            NewID(),
				RunID:         id,
				AttemptNumber: 1,
				ErrorType:     ErrorTypeUnknown,
				ErrorMessage:  &msg,
				StartedAt:     now,
				CompletedAt:   now,
			})
		}
		count++
	}
	return count, nil
}

func (f *fakeRepository) AppendAttempt(ctx context.Context, a *Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.runs[a.RunID]; !ok {
		return ErrNotFound
	}
	c := *a
	f.attempts[a.RunID] = append(f.attempts[a.RunID], &c)
	return nil
}

func (f *fakeRepository) Aggregate(ctx context.Context) (*MetricsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := &MetricsSnapshot{}
	for _, s := range f.schedules {
		snap.TotalSchedules++
		switch s.Status {
		case ScheduleStatusActive:
			snap.ActiveSchedules++
		case ScheduleStatusPaused:
			snap.PausedSchedules++
		}
	}
	for _, r := range f.runs {
		snap.TotalRuns++
		switch r.Status {
		case RunStatusSuccess:
			snap.TotalSuccess++
		case RunStatusFailed:
			snap.TotalFailures++
		}
	}
	return snap, nil
}

// attemptsFor returns a snapshot of the attempts recorded for run id, for
// test assertions.
func (f *fakeRepository) attemptsFor(id string) []*Attempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Attempt(nil), f.attempts[id]...)
}
