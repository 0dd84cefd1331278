package domain

import (
	"encoding/json"
	"sync"
	"time"
)

// Session is the per-visitor aggregate owning the profile, transcript, dialog
// step and generation latch. All mutation goes through its mutex, so the
// gateway can serve many widget sessions concurrently while each session
// behaves as a single logical thread of control.
type Session struct {
	ID string

	mu         sync.Mutex
	profile    Profile
	step       Step
	generation GenerationState
	genStarted time.Time

	transcript []Message
	nextMsgID  int64
	hasChart   bool

	chartData   json.RawMessage
	visualChart json.RawMessage

	lastTopic string

	timers map[*time.Timer]struct{}
	epoch  uint64

	createdAt time.Time
	lastSeen  time.Time
}

// NewSession creates an empty session starting at ask_name.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		step:      StepAskName,
		nextMsgID: 1,
		timers:    make(map[*time.Timer]struct{}),
		createdAt: now,
		lastSeen:  now,
		profile:   Profile{Timezone: DefaultTimezone},
	}
}

// Profile returns a copy of the current profile.
func (s *Session) Profile() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SetProfileField overwrites a single profile field.
func (s *Session) SetProfileField(set func(p *Profile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set(&s.profile)
}

// SetProfile replaces the whole profile, defaulting the timezone.
func (s *Session) SetProfile(p Profile) {
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
}

// Step returns the active dialog step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// SetStep moves the dialog to a new step.
func (s *Session) SetStep(st Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = st
}

// Generation returns the current generation state.
func (s *Session) Generation() GenerationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// TryRequestGeneration attempts the Idle/Failed -> Requested transition.
// Returns false when a generation is already pending, in flight or done.
func (s *Session) TryRequestGeneration() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.generation.CanTrigger() {
		return false
	}
	s.generation = GenRequested
	return true
}

// BeginGeneration marks the Requested -> InFlight transition and records the
// start timestamp used for the minimum reveal floor. It refuses when the
// session was refreshed since epoch or the trigger was never accepted.
func (s *Session) BeginGeneration(epoch uint64, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.generation != GenRequested {
		return false
	}
	s.generation = GenInFlight
	s.genStarted = now
	return true
}

// GenerationStarted returns the in-flight start timestamp.
func (s *Session) GenerationStarted() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.genStarted
}

// FailGeneration parks the latch at Failed so the dialog can offer the
// confirmation step again. A refresh since epoch makes it a no-op: the fresh
// session starts idle, not failed.
func (s *Session) FailGeneration(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.generation = GenFailed
	return true
}

// SetChartData stores the raw kundli payload, unless the session was
// refreshed since epoch.
func (s *Session) SetChartData(epoch uint64, data json.RawMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.chartData = data
	return true
}

// SetVisualChart stores the renderable chart payload, unless the session was
// refreshed since epoch.
func (s *Session) SetVisualChart(epoch uint64, data json.RawMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.visualChart = data
	return true
}

// ChartContext returns the payload forwarded to the chat backend, preferring
// the raw kundli data over the visual chart when both exist.
func (s *Session) ChartContext() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chartData) > 0 {
		return s.chartData
	}
	return s.visualChart
}

// LastTopic returns the last detected conversation topic.
func (s *Session) LastTopic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTopic
}

// SetLastTopic records the last detected conversation topic.
func (s *Session) SetLastTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTopic = topic
}

// AppendUser appends a user message and returns it.
func (s *Session) AppendUser(text string) Message {
	return s.append(Message{Sender: SenderUser, Text: text})
}

// AppendAssistant appends an assistant text message and returns it.
func (s *Session) AppendAssistant(text string) Message {
	return s.append(Message{Sender: SenderAssistant, Text: text})
}

// RevealChart atomically appends the chart-kind message, moves the step to
// chart_generated and completes the generation latch. It refuses when the
// session was refreshed since epoch, the generation is no longer in flight,
// or a chart message already exists: at most one chart per session, and a
// reset session never receives a stale one.
func (s *Session) RevealChart(epoch uint64, chart json.RawMessage) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.generation != GenInFlight || s.hasChart {
		return Message{}, false
	}
	s.hasChart = true
	s.step = StepChartGenerated
	s.generation = GenDone
	return s.appendLocked(Message{Sender: SenderAssistant, Chart: chart}), true
}

func (s *Session) append(m Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(m)
}

func (s *Session) appendLocked(m Message) Message {
	m.ID = s.nextMsgID
	s.nextMsgID++
	m.At = time.Now()
	s.transcript = append(s.transcript, m)
	s.lastSeen = m.At
	return m
}

// Transcript returns a copy of the ordered message list.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// TrackTimer registers a pending timer so Refresh can cancel it.
func (s *Session) TrackTimer(t *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[t] = struct{}{}
}

// UntrackTimer forgets a timer that has fired or been stopped.
func (s *Session) UntrackTimer(t *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, t)
}

// Epoch returns the refresh epoch. Work that spans a blocking call captures
// it up front and hands it back to the epoch-checked mutators, so results
// computed before a refresh cannot land on the reset session.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Schedule runs fn after d unless the session is refreshed first. The timer
// is tracked for cancellation and forgotten once it fires; the refresh epoch
// guard covers timers that slip past Stop.
func (s *Session) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked(s.epoch, d, fn)
}

// ScheduleAt is Schedule pinned to a caller-supplied epoch: when the session
// has been refreshed since epoch the timer is never armed. Used by work that
// began before a potential refresh and must not chain into the reset session.
func (s *Session) ScheduleAt(epoch uint64, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked(epoch, d, fn)
}

func (s *Session) scheduleLocked(epoch uint64, d time.Duration, fn func()) {
	if s.epoch != epoch {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return
		}
		delete(s.timers, t)
		s.mu.Unlock()
		fn()
	})
	s.timers[t] = struct{}{}
}

// Touch updates the last-activity timestamp used by the TTL sweep.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
}

// LastSeen returns the last-activity timestamp.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Refresh clears profile, transcript, step and generation latch and stops
// every pending timer. Callers observe the reset atomically: no scheduled
// reveal or debounce can interleave with a half-cleared session.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[*time.Timer]struct{})
	s.epoch++
	s.profile = Profile{Timezone: DefaultTimezone}
	s.step = StepAskName
	s.generation = GenIdle
	s.genStarted = time.Time{}
	s.transcript = nil
	s.hasChart = false
	s.chartData = nil
	s.visualChart = nil
	s.lastTopic = ""
	s.lastSeen = time.Now()
}
