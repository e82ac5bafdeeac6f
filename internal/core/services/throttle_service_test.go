package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tanguilp/apiac-filter-throttler/internal/core/domain"
	"github.com/tanguilp/apiac-filter-throttler/internal/core/ports"
)

func TestThrottleService_AllowPassesCountThrough(t *testing.T) {
	backend := &mockBackend{checkResult: ports.CheckResult{Allowed: true, Count: 3}}
	service := newTestThrottler(t, backend)

	dec := service.Check(context.Background(), "ip:1.2.3.4", testParams())

	if dec.Outcome != domain.Allowed {
		t.Fatalf("expected Allowed, got %v (err=%v)", dec.Outcome, dec.Err)
	}
	if dec.CurrentCount != 3 {
		t.Fatalf("expected current count 3, got %d", dec.CurrentCount)
	}
	if backend.inspectCalls != 0 {
		t.Fatalf("inspect must not be called on allow, got %d calls", backend.inspectCalls)
	}
}

func TestThrottleService_DenyInspectsSameBucket(t *testing.T) {
	backend := &mockBackend{
		checkResult: ports.CheckResult{Allowed: false, Count: 6},
		inspectInfo: domain.BucketInfo{Count: 6, ToNextBucket: 4200 * time.Millisecond},
	}
	service := newTestThrottler(t, backend)

	params := testParams()
	dec := service.Check(context.Background(), "ip:1.2.3.4", params)

	if dec.Outcome != domain.Denied {
		t.Fatalf("expected Denied, got %v", dec.Outcome)
	}
	if dec.RetryIn != 4200*time.Millisecond {
		t.Fatalf("expected retry in 4200ms, got %s", dec.RetryIn)
	}
	if backend.inspectCalls != 1 {
		t.Fatalf("expected exactly one inspect call, got %d", backend.inspectCalls)
	}

	// A inspeção deve endereçar a mesma tupla (key, scale, limit) do check.
	if backend.lastInspectKey != "ip:1.2.3.4" ||
		backend.lastInspectScale != params.Scale ||
		backend.lastInspectLimit != params.Limit {
		t.Fatalf("inspect used a different bucket identity: key=%q scale=%s limit=%d",
			backend.lastInspectKey, backend.lastInspectScale, backend.lastInspectLimit)
	}
}

func TestThrottleService_ExactlyOneCheckPerRequest(t *testing.T) {
	backend := &mockBackend{checkErr: errors.New("connection refused")}
	service := newTestThrottler(t, backend)

	dec := service.Check(context.Background(), "ip:1.2.3.4", testParams())

	if dec.Outcome != domain.BackendFailure {
		t.Fatalf("expected BackendFailure, got %v", dec.Outcome)
	}
	if dec.Err == nil {
		t.Fatalf("expected the backend error to be propagated")
	}
	if backend.checkCalls != 1 {
		t.Fatalf("no internal retries allowed, got %d check calls", backend.checkCalls)
	}
}

func TestThrottleService_InspectFailureDegradesToFullWindow(t *testing.T) {
	backend := &mockBackend{
		checkResult: ports.CheckResult{Allowed: false, Count: 6},
		inspectErr:  errors.New("connection reset"),
	}
	service := newTestThrottler(t, backend)

	params := testParams()
	dec := service.Check(context.Background(), "ip:1.2.3.4", params)

	if dec.Outcome != domain.Denied {
		t.Fatalf("a deny already happened, expected Denied, got %v", dec.Outcome)
	}
	if dec.RetryIn != params.Scale {
		t.Fatalf("expected worst-case retry of the full window (%s), got %s", params.Scale, dec.RetryIn)
	}
}

func TestThrottleService_RejectsInvalidParams(t *testing.T) {
	backend := &mockBackend{checkResult: ports.CheckResult{Allowed: true}}
	service := newTestThrottler(t, backend)

	invalid := []domain.ThrottleParams{
		{Scale: 0, Limit: 5, Increment: 1},
		{Scale: 500 * time.Microsecond, Limit: 5, Increment: 1},
		{Scale: time.Second, Limit: -1, Increment: 1},
		{Scale: time.Second, Limit: 5, Increment: 0},
	}

	for _, params := range invalid {
		dec := service.Check(context.Background(), "k", params)
		if dec.Outcome != domain.BackendFailure || dec.Err == nil {
			t.Fatalf("expected failure for params %+v, got %+v", params, dec)
		}
	}
	if backend.checkCalls != 0 {
		t.Fatalf("invalid params must not reach the backend, got %d calls", backend.checkCalls)
	}
}

func TestNewThrottleService_RequiresBackend(t *testing.T) {
	if _, err := NewThrottleService(nil); err == nil {
		t.Fatalf("expected error for nil backend")
	}
}

func testParams() domain.ThrottleParams {
	return domain.ThrottleParams{Scale: 10 * time.Second, Limit: 5, Increment: 1}
}

// newTestThrottler is a helper that fails the test immediately if creation fails.
func newTestThrottler(t *testing.T, backend ports.Backend) *ThrottleService {
	t.Helper()
	service, err := NewThrottleService(backend)
	if err != nil {
		t.Fatalf("failed to create throttle service: %v", err)
	}
	return service
}

type mockBackend struct {
	checkResult ports.CheckResult
	checkErr    error
	inspectInfo domain.BucketInfo
	inspectErr  error

	checkCalls   int
	inspectCalls int

	lastInspectKey   string
	lastInspectScale time.Duration
	lastInspectLimit int64
}

func (m *mockBackend) CheckAndIncrement(_ context.Context, _ string, _ time.Duration, _, _ int64) (ports.CheckResult, error) {
	m.checkCalls++
	return m.checkResult, m.checkErr
}

func (m *mockBackend) Inspect(_ context.Context, key string, scale time.Duration, limit int64) (domain.BucketInfo, error) {
	m.inspectCalls++
	m.lastInspectKey = key
	m.lastInspectScale = scale
	m.lastInspectLimit = limit
	return m.inspectInfo, m.inspectErr
}
