package server_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/go-phonepunct/internal/pipeline"
	"github.com/example/go-phonepunct/internal/server"
	"github.com/example/go-phonepunct/internal/yamlutil"
)

// ---------------------------------------------------------------------------
// request validation and limits
// ---------------------------------------------------------------------------

func TestPhonemize_OversizedTextRejectedAs413(t *testing.T) {
	h := server.NewHandler(newStub(t), server.WithMaxTextBytes(10))

	rec := post(t, h, "/phonemize", `{"text":"`+strings.Repeat("x", 11)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rec.Code)
	}

	body := decode[map[string]string](t, rec)
	if body["error"] == "" {
		t.Error("want non-empty error field")
	}
}

func TestRemove_OversizedYAMLBodyRejectedAs413(t *testing.T) {
	orig := yamlutil.MaxInputSize
	yamlutil.MaxInputSize = 16
	t.Cleanup(func() { yamlutil.MaxInputSize = orig })

	h := server.NewHandler(newStub(t))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/remove", strings.NewReader("text: \""+strings.Repeat("x", 32)+"\"\n"))
	req.Header.Set("Content-Type", "application/yaml")
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d: %s", rec.Code, rec.Body)
	}
}

func TestPreserve_LimitCountsAllUnits(t *testing.T) {
	h := server.NewHandler(newStub(t), server.WithMaxTextBytes(10))

	rec := post(t, h, "/preserve", `{"units":["hello,","world!"]}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rec.Code)
	}
}

func TestPhonemize_TextAtExactLimitIsAccepted(t *testing.T) {
	h := server.NewHandler(newStub(t), server.WithMaxTextBytes(5))

	rec := post(t, h, "/phonemize", `{"text":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 for exactly-limit text, got %d", rec.Code)
	}
}

func TestPhonemize_RequestTimeoutCancelsInFlight(t *testing.T) {
	blocked := make(chan struct{})
	stub := newStub(t)
	stub.run = blockingRun(blocked)

	h := server.NewHandler(stub, server.WithRequestTimeout(20*time.Millisecond))

	rec := post(t, h, "/phonemize", `{"text":"Hello."}`)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("want 504 on timeout, got %d", rec.Code)
	}

	body := decode[map[string]string](t, rec)
	if body["error"] == "" {
		t.Error("want non-empty error field")
	}
}

// ---------------------------------------------------------------------------
// worker pool / concurrency throttling
// ---------------------------------------------------------------------------

func TestPhonemize_ConcurrencyThrottling(t *testing.T) {
	const workers = 2
	const totalRequests = 5

	var (
		mu         sync.Mutex
		peak       int
		current    int32
		releaseAll = make(chan struct{})
	)
	stub := newStub(t)
	stub.run = func(_ context.Context, units []string) (pipeline.Result, error) {
		n := int(atomic.AddInt32(&current, 1))
		defer atomic.AddInt32(&current, -1)

		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		<-releaseAll

		return pipeline.Result{Units: units}, nil
	}

	h := server.NewHandler(stub, server.WithWorkers(workers))

	var wg sync.WaitGroup

	codes := make([]int, totalRequests)
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/phonemize", bytes.NewBufferString(`{"text":"Hi."}`))
			h.ServeHTTP(rec, req)
			codes[idx] = rec.Code
		}(i)
	}

	// Give goroutines time to enter the pipeline.
	time.Sleep(50 * time.Millisecond)
	close(releaseAll)
	wg.Wait()

	mu.Lock()
	got := peak
	mu.Unlock()

	if got > workers {
		t.Errorf("peak concurrency %d exceeded worker limit %d", got, workers)
	}

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d: want 200, got %d", i, code)
		}
	}
}

func TestPhonemize_WaiterCancelledWhileThrottled(t *testing.T) {
	release := make(chan struct{})
	stub := newStub(t)
	stub.run = blockingRun(release)

	h := server.NewHandler(stub, server.WithWorkers(1))

	// First request occupies the single worker slot.
	go func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/phonemize", bytes.NewBufferString(`{"text":"First."}`))
		h.ServeHTTP(rec, req)
	}()

	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/phonemize", bytes.NewBufferString(`{"text":"Second."}`)).WithContext(ctx)
	h.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Fatalf("expected non-200 when waiter context cancelled, got 200")
	}

	close(release)
}

func TestRemove_NotThrottledByWorkers(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	stub := newStub(t)
	stub.run = blockingRun(release)

	h := server.NewHandler(stub, server.WithWorkers(1))

	go func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/phonemize", bytes.NewBufferString(`{"text":"busy"}`))
		h.ServeHTTP(rec, req)
	}()

	time.Sleep(20 * time.Millisecond)

	rec := post(t, h, "/remove", `{"text":"a, b."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 while the worker is busy, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// blockingRun blocks until release is closed (simulates a slow backend).
func blockingRun(release chan struct{}) func(context.Context, []string) (pipeline.Result, error) {
	return func(ctx context.Context, units []string) (pipeline.Result, error) {
		select {
		case <-release:
			return pipeline.Result{Units: units}, nil
		case <-ctx.Done():
			return pipeline.Result{}, ctx.Err()
		}
	}
}
