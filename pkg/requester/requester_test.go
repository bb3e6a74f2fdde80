package requester

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type countingTransport struct {
	calls atomic.Int64
	err   error
	next  http.RoundTripper
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	if t.err != nil {
		return nil, t.err
	}
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

func resetSession(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { Configure(SessionConfig{}) })
}

func waitTerminal[T any](t *testing.T, sig *Signal[T]) Outcome[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := sig.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	return out
}

func TestExecuteInvalidURLSkipsNetwork(t *testing.T) {
	resetSession(t)
	transport := &countingTransport{err: errors.New("must not be reached")}
	Configure(SessionConfig{Transport: transport})

	sig := Execute(context.Background(), "://missing-scheme", MethodGet, nil, 3, JSONConstructor[map[string]any]())
	out := waitTerminal(t, sig)

	if out.State != StateFailed {
		t.Fatalf("expected failed outcome, got state %d", out.State)
	}
	if out.Err == nil || out.Err.Kind != KindInvalidURL {
		t.Fatalf("expected invalid_url kind, got %v", out.Err)
	}
	if n := transport.calls.Load(); n != 0 {
		t.Fatalf("expected no network calls, got %d", n)
	}
}

func TestExecuteRelativeURLFails(t *testing.T) {
	sig := Execute(context.Background(), "/just/a/path", MethodGet, nil, 0, JSONConstructor[map[string]any]())
	out := waitTerminal(t, sig)
	if out.Err == nil || out.Err.Kind != KindInvalidURL {
		t.Fatalf("expected invalid_url for relative url, got %v", out.Err)
	}
}

func TestExecuteGetAppendsFlatQuery(t *testing.T) {
	resetSession(t)
	var rawQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery.Store(r.URL.RawQuery)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	params := map[string]any{"page": 2, "q": "golang"}
	sig := Execute(context.Background(), srv.URL, MethodGet, params, 0, JSONConstructor[map[string]any]())
	out := waitTerminal(t, sig)

	if out.State != StateSuccess {
		t.Fatalf("expected success, got %+v", out)
	}
	if got := rawQuery.Load(); got != "page=2&q=golang" {
		t.Fatalf("unexpected query string: %v", got)
	}
}

func TestExecutePostSendsJSONBody(t *testing.T) {
	resetSession(t)
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		got.Store(payload)
		w.Write([]byte(`{"accepted":true}`))
	}))
	defer srv.Close()

	params := map[string]any{"name": "pulse", "count": float64(3)}
	sig := Execute(context.Background(), srv.URL, MethodPost, params, 0, JSONConstructor[map[string]any]())
	out := waitTerminal(t, sig)

	if out.State != StateSuccess {
		t.Fatalf("expected success, got %+v", out)
	}
	payload, _ := got.Load().(map[string]any)
	if payload["name"] != "pulse" || payload["count"] != float64(3) {
		t.Fatalf("unexpected body payload: %#v", payload)
	}
}

func TestExecutePostSetsNoContentType(t *testing.T) {
	resetSession(t)
	var contentType atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType.Store(r.Header.Get("Content-Type"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sig := Execute(context.Background(), srv.URL, MethodPost, map[string]any{"a": 1}, 0, JSONConstructor[map[string]any]())
	out := waitTerminal(t, sig)

	if out.State != StateSuccess {
		t.Fatalf("expected success, got %+v", out)
	}
	// resty sniffs raw byte bodies as text/plain; an application/json
	// header would mean this layer set one itself.
	if got := contentType.Load(); got == "application/json" {
		t.Fatalf("request layer must not set Content-Type, got %q", got)
	}
}

func TestExecutePostMarshalFailureSendsNoBody(t *testing.T) {
	resetSession(t)
	var bodyLen atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
		}
		bodyLen.Store(int64(len(raw)))
		w.Write([]byte(`{"accepted":true}`))
	}))
	defer srv.Close()

	// NaN has no JSON encoding; the body build fails and is swallowed.
	params := map[string]any{"value": math.NaN()}
	sig := Execute(context.Background(), srv.URL, MethodPost, params, 0, JSONConstructor[map[string]any]())
	out := waitTerminal(t, sig)

	if out.State != StateSuccess {
		t.Fatalf("expected the request to proceed without a body, got %+v", out)
	}
	if n := bodyLen.Load(); n != 0 {
		t.Fatalf("expected an empty request body, got %d bytes", n)
	}
}

func TestExecuteTransportErrorExhaustsRetries(t *testing.T) {
	resetSession(t)
	transport := &countingTransport{err: errors.New("connection refused")}
	Configure(SessionConfig{Transport: transport})

	sig := Execute(context.Background(), "http://pulse.invalid/api", MethodGet, nil, 2, JSONConstructor[map[string]any]())

	ch := sig.Subscribe()
	terminals := 0
	var last Outcome[map[string]any]
	for out := range ch {
		if out.Terminal() {
			terminals++
			last = out
		}
	}

	if terminals != 1 {
		t.Fatalf("expected exactly one terminal event, got %d", terminals)
	}
	if last.Err == nil || last.Err.Kind != KindTransport {
		t.Fatalf("expected transport failure, got %v", last.Err)
	}
	if n := transport.calls.Load(); n != 3 {
		t.Fatalf("expected 3 attempts for retries=2, got %d", n)
	}
}

func TestExecuteClientErrorNoRetry(t *testing.T) {
	resetSession(t)
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	sig := Execute(context.Background(), srv.URL, MethodGet, nil, 0, JSONConstructor[map[string]any]())
	out := waitTerminal(t, sig)

	if out.Err == nil || out.Err.Kind != KindClient {
		t.Fatalf("expected client_error, got %v", out.Err)
	}
	if out.Err.Status != http.StatusNotFound {
		t.Fatalf("expected status 404 on error, got %d", out.Err.Status)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", hits.Load())
	}
}

func TestExecuteStatusRetryThenSuccess(t *testing.T) {
	resetSession(t)
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sig := Execute(context.Background(), srv.URL, MethodGet, nil, 1, JSONConstructor[map[string]bool]())
	out := waitTerminal(t, sig)

	if out.State != StateSuccess {
		t.Fatalf("expected success after retry, got %+v", out)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", hits.Load())
	}
	if out.Result.Item == nil || !(*out.Result.Item)["ok"] {
		t.Fatalf("unexpected parsed item: %+v", out.Result)
	}
}

func TestExecuteServerErrorClassification(t *testing.T) {
	resetSession(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	sig := Execute(context.Background(), srv.URL, MethodGet, nil, 0, JSONConstructor[map[string]any]())
	out := waitTerminal(t, sig)
	if out.Err == nil || out.Err.Kind != KindServer {
		t.Fatalf("expected server_error, got %v", out.Err)
	}
}

type record struct {
	ID int `json:"id"`
}

func TestExecuteCollectionDropsBadElements(t *testing.T) {
	resetSession(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"id":1},{"id":2},"bad"]`))
	}))
	defer srv.Close()

	sig := Execute(context.Background(), srv.URL, MethodGet, nil, 0, JSONConstructor[record]())
	out := waitTerminal(t, sig)

	if out.State != StateSuccess {
		t.Fatalf("expected success, got %+v", out)
	}
	if !out.Result.Collection {
		t.Fatalf("expected a collection result")
	}
	if len(out.Result.Items) != 2 || out.Result.Items[0].ID != 1 || out.Result.Items[1].ID != 2 {
		t.Fatalf("unexpected collection: %+v", out.Result.Items)
	}
}

func TestExecuteInProgressPrecedesTerminal(t *testing.T) {
	resetSession(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sig := Execute(context.Background(), srv.URL, MethodGet, nil, 0, JSONConstructor[map[string]any]())
	ch := sig.Subscribe()

	var events []State
	for out := range ch {
		events = append(events, out.State)
	}

	if len(events) != 2 {
		t.Fatalf("expected InProgress then terminal, got %v", events)
	}
	if events[0] != StateInProgress || events[1] != StateSuccess {
		t.Fatalf("unexpected event order: %v", events)
	}
}

func TestExecuteUndecodableBodyLeavesSignalPending(t *testing.T) {
	resetSession(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer srv.Close()

	sig := Execute(context.Background(), srv.URL, MethodGet, nil, 0, JSONConstructor[map[string]any]())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := sig.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline waiting on a stalled signal, got %v", err)
	}
}
