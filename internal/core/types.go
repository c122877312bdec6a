package core

import "time"

// ScheduleType selects whether a Schedule runs forever on an interval or
// auto-completes after a fixed window.
type ScheduleType string

const (
	ScheduleTypeInterval ScheduleType = "interval"
	ScheduleTypeWindow   ScheduleType = "window"
)

// ScheduleStatus is the lifecycle state of a Schedule.
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusPaused    ScheduleStatus = "paused"
	ScheduleStatusCompleted ScheduleStatus = "completed"
)

// RunStatus is the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// ErrorType classifies how an Attempt failed. The zero value (empty string)
// means the attempt succeeded.
type ErrorType string

const (
	ErrorTypeNone       ErrorType = ""
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeDNS        ErrorType = "dns"
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeHTTP4xx    ErrorType = "http_4xx"
	ErrorTypeHTTP5xx    ErrorType = "http_5xx"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// AllowedMethods is the set of HTTP methods a Target may use.
var AllowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// Target is a persisted descriptor of an external HTTP endpoint.
type Target struct {
	ID           string
	Name         string
	URL          string
	Method       string
	Headers      map[string]string
	BodyTemplate map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Schedule is a recurring dispatch rule over a Target.
type Schedule struct {
	ID                    string
	TargetID              string
	Type                  ScheduleType
	IntervalSeconds       int
	DurationSeconds       *int
	Status                ScheduleStatus
	StartedAt             time.Time
	ExpiresAt             *time.Time
	LastRunAt             *time.Time
	MaxRetries            int
	RequestTimeoutSeconds int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Run is one scheduled trigger, containing 1..N Attempts.
type Run struct {
	ID          string
	ScheduleID  string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// Attempt is one outbound HTTP request — initial or retry — with a
// measured outcome.
type Attempt struct {
	ID                string
	RunID             string
	AttemptNumber     int
	StatusCode        *int
	LatencyMs         float64
	ResponseSizeBytes int
	ErrorType         ErrorType
	ErrorMessage      *string
	StartedAt         time.Time
	CompletedAt       time.Time
	CreatedAt         time.Time
}

// IsSuccess reports whether the attempt landed a 2xx/3xx response.
func (a *Attempt) IsSuccess() bool {
	return a.ErrorType == ErrorTypeNone
}
