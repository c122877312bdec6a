package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Vsjangal/httpsched/internal/clock"
)

// ControlSurface implements the five schedule-lifecycle operations from
// spec §4.5, plus Target CRUD. Each runs as a single repository call and
// is safe to invoke concurrently with the Engine's tick loop.
type ControlSurface struct {
	repo  Repository
	clock clock.Clock
}

// NewControlSurface constructs a ControlSurface.
func NewControlSurface(repo Repository, c clock.Clock) *ControlSurface {
	return &ControlSurface{repo: repo, clock: c}
}

// CreateTarget validates and persists a new Target.
func (c *ControlSurface) CreateTarget(ctx context.Context, name, url, method string, headers map[string]string, body map[string]any) (*Target, error) {
	if err := ValidateTargetURL(url); err != nil {
		return nil, err
	}
	normalizedMethod, err := ValidateMethod(method)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	target := &Target{
		ID:           NewID(),
		Name:         name,
		URL:          url,
		Method:       normalizedMethod,
		Headers:      headers,
		BodyTemplate: body,
	}
	if err := c.repo.CreateTarget(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// UpdateTarget applies a partial update to an existing Target. Name, URL
// and method are only overwritten when their pointer argument is non-nil;
// headers and body only when headersSet / bodySet is true, in which case a
// nil map clears the field.
func (c *ControlSurface) UpdateTarget(ctx context.Context, id string, name, url, method *string, headers map[string]string, body map[string]any, headersSet, bodySet bool) (*Target, error) {
	target, err := c.repo.GetTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		target.Name = *name
	}
	if url != nil {
		if err := ValidateTargetURL(*url); err != nil {
			return nil, err
		}
		target.URL = *url
	}
	if method != nil {
		normalized, err := ValidateMethod(*method)
		if err != nil {
			return nil, err
		}
		target.Method = normalized
	}
	if headersSet {
		target.Headers = headers
	}
	if bodySet {
		target.BodyTemplate = body
	}
	if err := c.repo.UpdateTarget(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// DeleteTarget removes a Target and cascades to its schedules, runs, and
// attempts.
func (c *ControlSurface) DeleteTarget(ctx context.Context, id string) error {
	return c.repo.DeleteTarget(ctx, id)
}

// CreateSchedule validates the input, derives started_at/expires_at for
// window schedules, and persists a new active Schedule.
func (c *ControlSurface) CreateSchedule(ctx context.Context, in ScheduleInput) (*Schedule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := c.repo.GetTarget(ctx, in.TargetID); err != nil {
		return nil, err
	}

	now := c.clock.Now()
	schedule := &Schedule{
		ID:                    NewID(),
		TargetID:              in.TargetID,
		Type:                  in.Type,
		IntervalSeconds:       in.IntervalSeconds,
		DurationSeconds:       in.DurationSeconds,
		Status:                ScheduleStatusActive,
		StartedAt:             now,
		MaxRetries:            in.MaxRetries,
		RequestTimeoutSeconds: in.RequestTimeoutSeconds,
	}
	if in.Type == ScheduleTypeWindow {
		expires := now.Add(time.Duration(*in.DurationSeconds) * time.Second)
		schedule.ExpiresAt = &expires
	}
	if err := c.repo.CreateSchedule(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// PauseSchedule transitions an active schedule to paused (spec §4.5,
// I3). An in-flight Run started before the pause runs to completion; the
// pause only takes effect on the next tick.
func (c *ControlSurface) PauseSchedule(ctx context.Context, id string) (*Schedule, error) {
	return c.transition(ctx, id, ScheduleStatusActive, ScheduleStatusPaused)
}

// ResumeSchedule transitions a paused schedule back to active. started_at
// and expires_at are left untouched — paused time counts against a
// window schedule's deadline (spec §4.5, reference behavior).
func (c *ControlSurface) ResumeSchedule(ctx context.Context, id string) (*Schedule, error) {
	return c.transition(ctx, id, ScheduleStatusPaused, ScheduleStatusActive)
}

func (c *ControlSurface) transition(ctx context.Context, id string, from, to ScheduleStatus) (*Schedule, error) {
	schedule, err := c.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status != from {
		return nil, fmt.Errorf("%w: schedule is %s, not %s", ErrInvalidTransition, schedule.Status, from)
	}
	now := c.clock.Now()
	if err := c.repo.UpdateScheduleStatus(ctx, id, to, now); err != nil {
		return nil, err
	}
	schedule.Status = to
	schedule.UpdatedAt = now
	return schedule, nil
}

// DeleteSchedule removes a Schedule and cascades to its runs and
// attempts.
func (c *ControlSurface) DeleteSchedule(ctx context.Context, id string) error {
	return c.repo.DeleteSchedule(ctx, id)
}

// IsNotFound reports whether err originated from a missing entity,
// allowing callers to avoid depending on the store package directly.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ErrNotFound is the sentinel core error wrapping store-level not-found
// errors; see internal/store for the concrete sentinel values that wrap
// it.
var ErrNotFound = errors.New("not found")
