package changestream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
)

type doc struct {
	ID    string
	Value string
}

type fakeStream struct {
	changes []Change[doc]
	pos     int
	err     error
	hold    bool
	closed  bool
}

func (s *fakeStream) Next(ctx context.Context) bool {
	if s.pos < len(s.changes) {
		s.pos++
		return true
	}
	if s.hold {
		<-ctx.Done()
	}
	return false
}

func (s *fakeStream) Change() Change[doc]             { return s.changes[s.pos-1] }
func (s *fakeStream) Err() error                      { return s.err }
func (s *fakeStream) Close(ctx context.Context) error { s.closed = true; return nil }

// scriptedSource returns the scripted results in order, then holds an empty
// stream open.
type scriptedSource struct {
	mu     sync.Mutex
	script []interface{}
	opens  int
}

func (s *scriptedSource) Open(ctx context.Context) (Stream[doc], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if len(s.script) == 0 {
		return &fakeStream{hold: true}, nil
	}
	next := s.script[0]
	s.script = s.script[1:]
	switch v := next.(type) {
	case error:
		return nil, v
	case *fakeStream:
		return v, nil
	}
	panic("bad script entry")
}

type fakeTimer struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (f *fakeTimer) after(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.delays = append(f.delays, d)
	f.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func (f *fakeTimer) recorded() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.delays...)
}

type MockReporter struct {
	mu   sync.Mutex
	errs []error
}

func (m *MockReporter) Report(ctx context.Context, err error, kv ...interface{}) {
	m.mu.Lock()
	m.errs = append(m.errs, err)
	m.mu.Unlock()
}

func (m *MockReporter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errs)
}

type recorder struct {
	mu     sync.Mutex
	events []string
	fail   map[string]bool
}

func (r *recorder) hooks() entity.Hooks[doc] {
	add := func(kind, id string) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.fail[id] {
			return errors.New("publish failed")
		}
		r.events = append(r.events, kind+":"+id)
		return nil
	}
	return entity.Hooks[doc]{
		Created: func(ctx context.Context, d *doc) error { return add("created", d.ID) },
		Updated: func(ctx context.Context, d *doc) error { return add("updated", d.ID) },
		Deleted: func(ctx context.Context, id string) error { return add("deleted", id) },
	}
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPolicy(t *testing.T) {
	p := Policy{InitialDelay: 2 * time.Second, MaxRetries: 5}

	tests := []struct {
		n         int
		delay     time.Duration
		exhausted bool
	}{
		{1, 2 * time.Second, false},
		{2, 4 * time.Second, false},
		{3, 8 * time.Second, false},
		{4, 16 * time.Second, false},
		{5, 32 * time.Second, true},
		{6, 64 * time.Second, true},
		{8, 256 * time.Second, true},
		{9, MaxDelay, true},
		{40, MaxDelay, true},
		{64, MaxDelay, true},
		{1000, MaxDelay, true},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.n); got != tt.delay {
			t.Errorf("Delay(%d) = %v, want %v", tt.n, got, tt.delay)
		}
		if got := p.Exhausted(tt.n); got != tt.exhausted {
			t.Errorf("Exhausted(%d) = %v, want %v", tt.n, got, tt.exhausted)
		}
	}
}

func TestPolicyDelayCeiling(t *testing.T) {
	tests := []struct {
		name    string
		initial time.Duration
		n       int
		want    time.Duration
	}{
		{"zero initial", 0, 10, 0},
		{"initial above cap", 10 * time.Minute, 1, 10 * time.Minute},
		{"initial above cap grows no further", 10 * time.Minute, 5, 10 * time.Minute},
		{"nanosecond initial at large n", time.Nanosecond, 62, MaxDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Policy{InitialDelay: tt.initial, MaxRetries: 5}
			if got := p.Delay(tt.n); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestBridgeRecoversBelowCeiling(t *testing.T) {
	for n := 0; n < DefaultMaxRetries; n++ {
		src := &scriptedSource{}
		for i := 0; i < n; i++ {
			src.script = append(src.script, errors.New("connection reset"))
		}
		timer := &fakeTimer{}
		shutdowns := 0
		b := NewBridge[doc]("sessions", src, entity.Hooks[doc]{}, nil,
			WithTimer(timer.after),
			WithShutdown(func(error) { shutdowns++ }),
		)

		if err := b.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		waitFor(t, func() bool {
			st, _ := b.State()
			return st == Running
		})

		st, retries := b.State()
		if st != Running || retries != 0 {
			t.Errorf("n=%d: state = %v/%d, want running/0", n, st, retries)
		}
		if got := len(timer.recorded()); got != n {
			t.Errorf("n=%d: waited %d times, want %d", n, got, n)
		}
		_ = b.Stop(context.Background())
		if shutdowns != 0 {
			t.Errorf("n=%d: shutdown called %d times", n, shutdowns)
		}
	}
}

func TestBridgeFatalAfterCeiling(t *testing.T) {
	src := &scriptedSource{}
	for i := 0; i < DefaultMaxRetries+2; i++ {
		src.script = append(src.script, errors.New("not primary"))
	}
	timer := &fakeTimer{}

	var mu sync.Mutex
	var causes []error
	b := NewBridge[doc]("sessions", src, entity.Hooks[doc]{}, nil,
		WithTimer(timer.after),
		WithShutdown(func(err error) {
			mu.Lock()
			causes = append(causes, err)
			mu.Unlock()
		}),
	)

	_ = b.Start(context.Background())
	waitFor(t, func() bool {
		st, _ := b.State()
		return st == Fatal
	})
	_ = b.Stop(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(causes) != 1 {
		t.Fatalf("shutdown called %d times, want 1", len(causes))
	}
	if !errors.Is(causes[0], ErrRetriesExhausted) {
		t.Errorf("cause = %v, want ErrRetriesExhausted", causes[0])
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	got := timer.recorded()
	if len(got) != len(want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, got[i], want[i])
		}
	}
	if st, _ := b.State(); st != Fatal {
		t.Errorf("state after stop = %v, want fatal", st)
	}
}

func TestBridgeMapsOperations(t *testing.T) {
	rec := &recorder{}
	stream := &fakeStream{
		changes: []Change[doc]{
			{Operation: OpInsert, Key: "s1", Document: &doc{ID: "s1"}},
			{Operation: OpUpdate, Key: "s1", Document: &doc{ID: "s1", Value: "x"}},
			{Operation: OpReplace, Key: "s1", Document: &doc{ID: "s1", Value: "y"}},
			{Operation: OpDelete, Key: "s1"},
			{Operation: "invalidate", Key: ""},
		},
		hold: true,
	}
	src := &scriptedSource{script: []interface{}{stream}}
	b := NewBridge[doc]("sessions", src, rec.hooks(), nil)

	_ = b.Start(context.Background())
	waitFor(t, func() bool { return len(rec.got()) == 4 })
	_ = b.Stop(context.Background())

	want := []string{"created:s1", "updated:s1", "updated:s1", "deleted:s1"}
	for i, w := range want {
		if rec.got()[i] != w {
			t.Errorf("event %d = %s, want %s", i, rec.got()[i], w)
		}
	}
	if !stream.closed {
		t.Error("stream should be closed on stop")
	}
}

func TestBridgeHandlerErrorKeepsStreamOpen(t *testing.T) {
	rec := &recorder{fail: map[string]bool{"bad": true}}
	reporter := &MockReporter{}
	src := &scriptedSource{script: []interface{}{
		&fakeStream{
			changes: []Change[doc]{
				{Operation: OpInsert, Key: "bad", Document: &doc{ID: "bad"}},
				{Operation: OpUpdate, Key: "nodoc"},
				{Operation: OpInsert, Key: "ok", Document: &doc{ID: "ok"}},
			},
			hold: true,
		},
	}}
	b := NewBridge[doc]("sessions", src, rec.hooks(), nil, WithReporter(reporter))

	_ = b.Start(context.Background())
	waitFor(t, func() bool { return len(rec.got()) == 1 })
	_ = b.Stop(context.Background())

	if rec.got()[0] != "created:ok" {
		t.Errorf("events = %v, want [created:ok]", rec.got())
	}
	if reporter.count() != 2 {
		t.Errorf("reported %d errors, want 2", reporter.count())
	}
	if src.opens != 1 {
		t.Errorf("opened %d times, want 1", src.opens)
	}
}

func TestBridgeHookPanicKeepsStreamOpen(t *testing.T) {
	rec := &recorder{}
	reporter := &MockReporter{}
	hooks := rec.hooks()
	created := hooks.Created
	hooks.Created = func(ctx context.Context, d *doc) error {
		if d.ID == "boom" {
			panic("nil map write")
		}
		return created(ctx, d)
	}
	src := &scriptedSource{script: []interface{}{
		&fakeStream{
			changes: []Change[doc]{
				{Operation: OpInsert, Key: "boom", Document: &doc{ID: "boom"}},
				{Operation: OpInsert, Key: "ok", Document: &doc{ID: "ok"}},
			},
			hold: true,
		},
	}}
	b := NewBridge[doc]("sessions", src, hooks, nil, WithReporter(reporter))

	_ = b.Start(context.Background())
	waitFor(t, func() bool { return len(rec.got()) == 1 })
	_ = b.Stop(context.Background())

	if rec.got()[0] != "created:ok" {
		t.Errorf("events = %v, want [created:ok]", rec.got())
	}
	if reporter.count() != 1 {
		t.Errorf("reported %d errors, want 1", reporter.count())
	}
	if src.opens != 1 {
		t.Errorf("opened %d times, want 1", src.opens)
	}
}

func TestBridgeStreamErrorResetsAfterReconnect(t *testing.T) {
	timer := &fakeTimer{}
	src := &scriptedSource{script: []interface{}{
		errors.New("dial"),
		&fakeStream{err: errors.New("cursor killed")},
		errors.New("dial"),
	}}
	b := NewBridge[doc]("sessions", src, entity.Hooks[doc]{}, nil, WithTimer(timer.after))

	_ = b.Start(context.Background())
	waitFor(t, func() bool {
		st, _ := b.State()
		src.mu.Lock()
		defer src.mu.Unlock()
		return st == Running && src.opens == 4
	})
	_ = b.Stop(context.Background())

	// The stream that opened reset the counter, so its failure waited the
	// initial delay again.
	want := []time.Duration{2 * time.Second, 2 * time.Second, 4 * time.Second}
	got := timer.recorded()
	if len(got) != len(want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBridgeStopIsIdempotent(t *testing.T) {
	b := NewBridge[doc]("sessions", &scriptedSource{}, entity.Hooks[doc]{}, nil)

	if err := b.Stop(context.Background()); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
	_ = b.Start(context.Background())
	waitFor(t, func() bool {
		st, _ := b.State()
		return st == Running
	})
	for i := 0; i < 2; i++ {
		if err := b.Stop(context.Background()); err != nil {
			t.Errorf("Stop() #%d error = %v", i+1, err)
		}
	}
	if st, _ := b.State(); st != Stopped {
		t.Errorf("state = %v, want stopped", st)
	}
}

func TestBridgeStopCancelsBackoff(t *testing.T) {
	src := &scriptedSource{script: []interface{}{errors.New("down")}}
	never := func(time.Duration) <-chan time.Time { return make(chan time.Time) }
	b := NewBridge[doc]("sessions", src, entity.Hooks[doc]{}, nil, WithTimer(never))

	_ = b.Start(context.Background())
	waitFor(t, func() bool {
		st, _ := b.State()
		return st == Retrying
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if src.opens != 1 {
		t.Errorf("opened %d times after stop, want 1", src.opens)
	}
}
