package astro

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestChatSendsChartContext(t *testing.T) {
	t.Parallel()

	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{Response: "Namaste!"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	resp, err := c.Chat(context.Background(), ChatRequest{
		Message:   "shaadi kab hogi?",
		ChartData: json.RawMessage(`{"lagna":"Mesh"}`),
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Response != "Namaste!" {
		t.Errorf("response = %q", resp.Response)
	}
	if got.Message != "shaadi kab hogi?" {
		t.Errorf("message = %q", got.Message)
	}
	if len(got.ChartData) == 0 {
		t.Error("chart_data was not forwarded")
	}
}

func TestChatRetriesOnceWithoutChartData(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var second ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			http.Error(w, "overloaded", http.StatusBadGateway)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&second); err != nil {
			t.Fatalf("decode retry: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{Response: "phir se"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	resp, err := c.Chat(context.Background(), ChatRequest{
		Message:   "career ke baare mein batao",
		ChartData: json.RawMessage(`{"big":"payload"}`),
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Response != "phir se" {
		t.Errorf("response = %q", resp.Response)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
	if len(second.ChartData) != 0 {
		t.Errorf("retry still carried chart_data: %s", second.ChartData)
	}
}

func TestChatFailsAfterSecondError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	if _, err := c.Chat(context.Background(), ChatRequest{Message: "hello"}); err == nil {
		t.Fatal("expected error after retry exhausted")
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want exactly 2", calls.Load())
	}
}

func TestKundliDecodesSuccessEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/kundli" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var d BirthDetails
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if d.Timezone != "Asia/Kolkata" {
			t.Errorf("timezone = %q", d.Timezone)
		}
		_, _ = w.Write([]byte(`{"success":true,"chart_data":{"lagna":"Mesh"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	raw, err := c.Kundli(context.Background(), BirthDetails{
		Name: "Rajesh", DOB: "1990-05-15", TOB: "14:30:00",
		Place: "Delhi", Timezone: "Asia/Kolkata",
	})
	if err != nil {
		t.Fatalf("Kundli: %v", err)
	}
	if string(raw) != `{"lagna":"Mesh"}` {
		t.Errorf("chart_data = %s", raw)
	}
}

func TestChartFailureEnvelopes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"explicit failure", `{"success":false,"error":"ephemeris unavailable"}`},
		{"missing success flag", `{"chart_data":{"x":1}}`},
		{"success without data", `{"success":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL)
			if _, err := c.Chart(context.Background(), BirthDetails{Name: "A"}); err == nil {
				t.Error("expected failure")
			}
		})
	}
}

func TestSubmitFormSwallowsErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	// Must not panic or propagate anything.
	c := NewHTTPClient(srv.URL)
	c.SubmitForm(context.Background(), BirthDetails{Name: "Rajesh"})
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/health" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"ok","features":{"rag":true}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	hs, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if hs.Status != "ok" || !hs.Features["rag"] {
		t.Errorf("status = %+v", hs)
	}
}
