package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/BTreeMap/WellnessPipe/internal/store"
)

// fakeTimer runs callbacks on demand instead of on the clock.
type fakeTimer struct {
	mu      sync.Mutex
	nextID  int
	pending map[string]func()
	delays  []time.Duration
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{pending: make(map[string]func())}
}

func (t *fakeTimer) ScheduleAfter(delay time.Duration, fn func()) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := fmt.Sprintf("t%d", t.nextID)
	t.pending[id] = fn
	t.delays = append(t.delays, delay)
	return id, nil
}

func (t *fakeTimer) ScheduleAt(when time.Time, fn func()) (string, error) {
	return t.ScheduleAfter(time.Until(when), fn)
}

func (t *fakeTimer) Cancel(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, id)
	return nil
}

func (t *fakeTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = make(map[string]func())
}

func (t *fakeTimer) fireAll() {
	t.mu.Lock()
	fns := make([]func(), 0, len(t.pending))
	for id, fn := range t.pending {
		fns = append(fns, fn)
		delete(t.pending, id)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (t *fakeTimer) pendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Send(ctx context.Context, to string, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to+": "+body)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func TestRegisterSchedulesWithCadenceInterval(t *testing.T) {
	timer := newFakeTimer()
	svc := NewReminderService(timer, &recordingNotifier{}, nil)

	err := svc.Register(context.Background(), "u1", models.ReminderSpec{Cadence: models.CadenceWeekly, Subject: "weigh-in"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(timer.delays) != 1 || timer.delays[0] != weeklyInterval {
		t.Errorf("expected one weekly-interval schedule, got %v", timer.delays)
	}
}

func TestRegisterDuplicateIsNoOp(t *testing.T) {
	timer := newFakeTimer()
	svc := NewReminderService(timer, &recordingNotifier{}, nil)
	spec := models.ReminderSpec{Cadence: models.CadenceDaily, Subject: "workout"}

	_ = svc.Register(context.Background(), "u1", spec)
	_ = svc.Register(context.Background(), "u1", spec)
	if timer.pendingCount() != 1 {
		t.Errorf("duplicate registration must not double-schedule, got %d", timer.pendingCount())
	}
}

func TestFireDeliversAndRearms(t *testing.T) {
	timer := newFakeTimer()
	notifier := &recordingNotifier{}
	svc := NewReminderService(timer, notifier, nil)

	_ = svc.Register(context.Background(), "u1", models.ReminderSpec{Cadence: models.CadenceDaily, Subject: "workout"})
	timer.fireAll()

	if notifier.count() != 1 {
		t.Errorf("expected one delivery, got %d", notifier.count())
	}
	if timer.pendingCount() != 1 {
		t.Errorf("recurrence must re-arm after firing, got %d pending", timer.pendingCount())
	}
}

func TestCancelStopsRecurrence(t *testing.T) {
	timer := newFakeTimer()
	notifier := &recordingNotifier{}
	svc := NewReminderService(timer, notifier, nil)
	spec := models.ReminderSpec{Cadence: models.CadenceDaily, Subject: "workout"}

	_ = svc.Register(context.Background(), "u1", spec)
	svc.Cancel("u1", spec)
	timer.fireAll()

	if notifier.count() != 0 {
		t.Errorf("cancelled reminder must not deliver, got %d", notifier.count())
	}
	if timer.pendingCount() != 0 {
		t.Errorf("cancelled reminder must not re-arm, got %d pending", timer.pendingCount())
	}
}

func TestRecoverRestoresPersistedReminders(t *testing.T) {
	st := store.NewInMemoryStore()
	ctx := context.Background()
	_ = st.SaveReminder(ctx, "u1", models.ReminderSpec{Cadence: models.CadenceDaily, Subject: "workout"})
	_ = st.SaveReminder(ctx, "u2", models.ReminderSpec{Cadence: models.CadenceWeekly, Subject: "weigh-in"})

	timer := newFakeTimer()
	svc := NewReminderService(timer, &recordingNotifier{}, st)
	if err := svc.Recover(ctx); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if timer.pendingCount() != 2 {
		t.Errorf("expected 2 recovered schedules, got %d", timer.pendingCount())
	}
}

func TestSimpleTimerScheduleAndCancel(t *testing.T) {
	timer := NewSimpleTimer()
	defer timer.Stop()

	fired := make(chan struct{})
	id, err := timer.ScheduleAfter(10*time.Millisecond, func() { close(fired) })
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if id == "" {
		t.Fatal("expected a timer id")
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	id2, _ := timer.ScheduleAfter(time.Hour, func() { t.Error("cancelled timer fired") })
	if err := timer.Cancel(id2); err != nil {
		t.Fatalf("cancel: %v", err)
	}
}
