package transcript

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/astroremedis/astrochat/internal/domain"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string // "typing-on", "typing-off", "msg:<text>", "chart"
	msgs   chan domain.Message
}

func newRecordingSink() *recordingSink {
	return &recordingSink{msgs: make(chan domain.Message, 8)}
}

func (r *recordingSink) Typing(_ string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if active {
		r.events = append(r.events, "typing-on")
	} else {
		r.events = append(r.events, "typing-off")
	}
}

func (r *recordingSink) Message(_ string, msg domain.Message) {
	r.mu.Lock()
	r.events = append(r.events, "msg:"+msg.Text)
	r.mu.Unlock()
	r.msgs <- msg
}

func (r *recordingSink) Chart(_ string, msg domain.Message) {
	r.mu.Lock()
	r.events = append(r.events, "chart")
	r.mu.Unlock()
	r.msgs <- msg
}

func (r *recordingSink) waitMsg(t *testing.T) domain.Message {
	t.Helper()
	select {
	case m := <-r.msgs:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return domain.Message{}
	}
}

func (r *recordingSink) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func fastConfig() Config {
	return Config{
		PredictionDelay: 20 * time.Millisecond,
		BaseDelay:       5 * time.Millisecond,
		MaxChunks:       3,
	}
}

func TestIsPrediction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"Aapki shaadi 2027 mein ho sakti hai", true},
		{"Mangal dosha ka asar hai", true},
		{"Your future looks bright", true},
		{"Namaste! Kaise ho aap?", false},
		{"CAREER mein growth aayegi", true},
	}
	for _, tt := range tests {
		if got := IsPrediction(tt.text); got != tt.want {
			t.Errorf("IsPrediction(%q) = %v", tt.text, got)
		}
	}
}

func TestSplitChunks(t *testing.T) {
	t.Parallel()

	got := SplitChunks("one\n\ntwo\n\nthree\n\nfour\n\nfive", 3)
	if len(got) != 3 {
		t.Fatalf("chunks = %d", len(got))
	}
	if got[0] != "one" || got[1] != "two" {
		t.Errorf("chunks = %q", got)
	}
	// Overflow is folded into the last chunk, nothing dropped.
	if !strings.Contains(got[2], "five") {
		t.Errorf("last chunk lost text: %q", got[2])
	}

	if got := SplitChunks("   \n\n  ", 3); got != nil {
		t.Errorf("blank input produced chunks: %q", got)
	}
}

func TestSingleReplyPacing(t *testing.T) {
	t.Parallel()

	sink := newRecordingSink()
	p := NewPacer(sink, fastConfig())
	s := domain.NewSession("s1")

	p.PublishText(s, "Namaste! Kaise ho aap?")
	msg := sink.waitMsg(t)

	if msg.Sender != domain.SenderAssistant || msg.Text != "Namaste! Kaise ho aap?" {
		t.Fatalf("message = %+v", msg)
	}
	if got := len(s.Transcript()); got != 1 {
		t.Fatalf("transcript length = %d", got)
	}
	events := sink.snapshot()
	if events[0] != "typing-on" {
		t.Errorf("first event = %q", events[0])
	}
}

func TestChunksRevealSequentially(t *testing.T) {
	t.Parallel()

	sink := newRecordingSink()
	p := NewPacer(sink, fastConfig())
	s := domain.NewSession("s1")

	p.PublishText(s, "pehla hissa\n\ndoosra hissa\n\nteesra hissa")
	first := sink.waitMsg(t)
	second := sink.waitMsg(t)
	third := sink.waitMsg(t)

	if first.Text != "pehla hissa" || second.Text != "doosra hissa" || third.Text != "teesra hissa" {
		t.Fatalf("order: %q %q %q", first.Text, second.Text, third.Text)
	}

	// Each chunk gets its own typing indicator before reveal, strictly
	// interleaved: on, msg, on, msg, on, msg.
	events := sink.snapshot()
	var seq []string
	for _, e := range events {
		if e == "typing-on" || strings.HasPrefix(e, "msg:") {
			seq = append(seq, e)
		}
	}
	want := []string{"typing-on", "msg:pehla hissa", "typing-on", "msg:doosra hissa", "typing-on", "msg:teesra hissa"}
	if len(seq) != len(want) {
		t.Fatalf("sequence = %v", seq)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("sequence[%d] = %q, want %q (full: %v)", i, seq[i], want[i], seq)
		}
	}
}

func TestPredictionGetsLongerDelay(t *testing.T) {
	t.Parallel()

	cfg := Config{
		PredictionDelay: 150 * time.Millisecond,
		BaseDelay:       time.Millisecond,
		MaxChunks:       3,
	}
	sink := newRecordingSink()
	p := NewPacer(sink, cfg)
	s := domain.NewSession("s1")

	start := time.Now()
	p.PublishText(s, "Aapki kundli mein raj yog hai")
	sink.waitMsg(t)
	if elapsed := time.Since(start); elapsed < cfg.PredictionDelay {
		t.Errorf("prediction revealed after %v, want at least %v", elapsed, cfg.PredictionDelay)
	}
}

func TestRefreshStopsPendingReveal(t *testing.T) {
	t.Parallel()

	cfg := Config{
		PredictionDelay: 100 * time.Millisecond,
		BaseDelay:       100 * time.Millisecond,
		MaxChunks:       3,
	}
	sink := newRecordingSink()
	p := NewPacer(sink, cfg)
	s := domain.NewSession("s1")

	p.PublishText(s, "Namaste ji")
	s.Refresh()

	select {
	case m := <-sink.msgs:
		t.Fatalf("reveal fired after refresh: %+v", m)
	case <-time.After(250 * time.Millisecond):
	}
	if got := len(s.Transcript()); got != 0 {
		t.Fatalf("transcript length = %d", got)
	}
}

func TestPublishChart(t *testing.T) {
	t.Parallel()

	sink := newRecordingSink()
	p := NewPacer(sink, fastConfig())
	s := domain.NewSession("s1")

	epoch := s.Epoch()
	s.TryRequestGeneration()
	s.BeginGeneration(epoch, time.Now())
	msg, ok := s.RevealChart(epoch, []byte(`{"svg":"x"}`))
	if !ok {
		t.Fatal("RevealChart refused")
	}
	p.PublishChart(s, msg)
	got := sink.waitMsg(t)
	if !got.IsChart() {
		t.Fatalf("message = %+v", got)
	}
}
