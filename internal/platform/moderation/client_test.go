package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/httpx"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
)

func newTestClient(t *testing.T, url string, retries int) Gate {
	t.Helper()
	g, err := NewClient(logger.Nop(), ClientConfig{
		URL:            url,
		APIKey:         "k-123",
		MaxRetries:     retries,
		Timeout:        2 * time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return g
}

func TestClientCheckDecodesVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer k-123" {
			t.Errorf("authorization: want=Bearer k-123 got=%q", got)
		}
		var in Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if in.Title != "Storms" {
			t.Errorf("title: want=Storms got=%q", in.Title)
		}
		_, _ = w.Write([]byte(`{"status":"BLOCKED","riskScore":0.97,"reasons":["graphic","spam"]}`))
	}))
	defer srv.Close()

	v, err := newTestClient(t, srv.URL, 0).Check(context.Background(), Input{Title: "Storms", BodyText: "Lightning"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v.Status != publishing.ModerationBlocked || v.RiskScore != 0.97 {
		t.Fatalf("verdict: %+v", v)
	}
	if len(v.Reasons) != 2 || v.Reasons[0] != "graphic" || v.Reasons[1] != "spam" {
		t.Fatalf("reasons order: got=%v", v.Reasons)
	}
}

func TestClientCheckUnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"verdict":"maybe","risk_score":0.5}`))
	}))
	defer srv.Close()

	v, err := newTestClient(t, srv.URL, 0).Check(context.Background(), Input{Title: "x", BodyText: "y"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v.Status != publishing.ModerationUnknown || v.RiskScore != 0.5 {
		t.Fatalf("verdict: %+v", v)
	}
}

func TestClientRetriesRetryableStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"pass"}`))
	}))
	defer srv.Close()

	v, err := newTestClient(t, srv.URL, 3).Check(context.Background(), Input{Title: "x", BodyText: "y"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v.Status != publishing.ModerationPass {
		t.Fatalf("status: want=pass got=%s", v.Status)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls: want=3 got=%d", got)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 3).Check(context.Background(), Input{Title: "x", BodyText: "y"})
	var se *httpx.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 status error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls: want=1 got=%d", got)
	}
}

func TestStaticGate(t *testing.T) {
	g := NewStaticGate(publishing.ModerationReview)
	v, err := g.Check(context.Background(), Input{})
	if err != nil || v.Status != publishing.ModerationReview {
		t.Fatalf("static verdict: %+v err=%v", v, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Check(ctx, Input{}); err == nil {
		t.Fatalf("canceled context should fail")
	}
}
