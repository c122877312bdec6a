package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/Vsjangal/httpsched/internal/clock"
)

// Outcome is the structured result of a single dispatched HTTP request.
type Outcome struct {
	StatusCode        *int
	LatencyMs         float64
	ResponseSizeBytes int
	ErrorType         ErrorType
	ErrorMessage      *string
	StartedAt         time.Time
	CompletedAt       time.Time
}

// Dispatcher performs a single outbound HTTP request with a timeout and
// classifies the result deterministically (see the table in spec §4.4).
type Dispatcher struct {
	client         *http.Client
	clock          clock.Clock
	maxResponseLen int64
}

// NewDispatcher constructs a Dispatcher. maxResponseBytes bounds how much
// of a response body is read before it is treated as oversize; a
// non-positive value selects the default cap of 10 MiB.
func NewDispatcher(c clock.Clock, maxResponseBytes int64) *Dispatcher {
	return &Dispatcher{
		client:         &http.Client{},
		clock:          c,
		maxResponseLen: maxResponseBytes,
	}
}

// Dispatch fires one HTTP request against the target's URL/method/headers,
// optionally with a JSON body, and returns a fully populated Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, target *Target, timeoutSeconds int) Outcome {
	started := d.clock.Now()
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	req, err := d.buildRequest(reqCtx, target)
	if err != nil {
		return d.errorOutcome(ErrorTypeUnknown, err.Error(), started, start)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return d.classifyTransportError(err, started, start, reqCtx)
	}
	defer resp.Body.Close()

	return d.recordResponse(resp, started, start)
}

func (d *Dispatcher) buildRequest(ctx context.Context, target *Target) (*http.Request, error) {
	var bodyReader io.Reader
	hasJSONBody := len(target.BodyTemplate) > 0
	if hasJSONBody {
		encoded, err := json.Marshal(target.BodyTemplate)
		if err != nil {
			return nil, fmt.Errorf("encode body template: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, target.Method, target.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}
	if hasJSONBody && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (d *Dispatcher) recordResponse(resp *http.Response, started time.Time, start time.Time) Outcome {
	limit := d.maxResponseLen
	if limit <= 0 {
		limit = 10 * 1024 * 1024
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	latency := elapsedMs(start)
	completed := d.clock.Now()

	if readErr != nil {
		return Outcome{
			ErrorType:    ErrorTypeUnknown,
			ErrorMessage: ptr(readErr.Error()),
			LatencyMs:    latency,
			StartedAt:    started,
			CompletedAt:  completed,
		}
	}
	if int64(len(body)) > limit {
		return Outcome{
			ErrorType:    ErrorTypeUnknown,
			ErrorMessage: ptr("response too large"),
			LatencyMs:    latency,
			StartedAt:    started,
			CompletedAt:  completed,
		}
	}

	code := resp.StatusCode
	outcome := Outcome{
		StatusCode:        &code,
		LatencyMs:         latency,
		ResponseSizeBytes: len(body),
		StartedAt:         started,
		CompletedAt:       completed,
	}
	switch {
	case code >= 200 && code < 400:
		outcome.ErrorType = ErrorTypeNone
	case code >= 400 && code < 500:
		outcome.ErrorType = ErrorTypeHTTP4xx
		outcome.ErrorMessage = ptr(fmt.Sprintf("HTTP %d", code))
	case code >= 500 && code < 600:
		outcome.ErrorType = ErrorTypeHTTP5xx
		outcome.ErrorMessage = ptr(fmt.Sprintf("HTTP %d", code))
	default:
		outcome.ErrorType = ErrorTypeUnknown
		outcome.ErrorMessage = ptr(fmt.Sprintf("unexpected status %d", code))
	}
	return outcome
}

func (d *Dispatcher) classifyTransportError(err error, started time.Time, start time.Time, reqCtx context.Context) Outcome {
	if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
		return d.errorOutcome(ErrorTypeTimeout, err.Error(), started, start)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return d.errorOutcome(ErrorTypeDNS, err.Error(), started, start)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return d.errorOutcome(ErrorTypeConnection, err.Error(), started, start)
	}
	if errors.Is(err, context.Canceled) {
		return d.errorOutcome(ErrorTypeUnknown, "canceled", started, start)
	}

	return d.errorOutcome(ErrorTypeUnknown, err.Error(), started, start)
}

func (d *Dispatcher) errorOutcome(t ErrorType, message string, started, start time.Time) Outcome {
	return Outcome{
		ErrorType:    t,
		ErrorMessage: ptr(truncate(message, 500)),
		LatencyMs:    elapsedMs(start),
		StartedAt:    started,
		CompletedAt:  d.clock.Now(),
	}
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func ptr[T any](v T) *T {
	return &v
}
