package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingNotifier struct {
	sent []string
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, text string) error {
	r.sent = append(r.sent, text)
	return r.err
}

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestDispatcher(n Notifier) *Dispatcher {
	return NewDispatcher(n, map[Kind]time.Duration{
		KindRange: 300 * time.Second,
		KindRapid: 120 * time.Second,
	}, zerolog.Nop())
}

func TestDispatchCooldownScenario(t *testing.T) {
	// Detections at t=0 (fires), t=100 (suppressed), t=305 (fires again).
	n := &recordingNotifier{}
	d := newTestDispatcher(n)
	ctx := context.Background()

	if !d.Dispatch(ctx, t0, KindRange, "first") {
		t.Fatal("first detection must fire")
	}
	if d.Dispatch(ctx, t0.Add(100*time.Second), KindRange, "second") {
		t.Fatal("detection inside cooldown must be suppressed")
	}
	if !d.Dispatch(ctx, t0.Add(305*time.Second), KindRange, "third") {
		t.Fatal("detection after cooldown must fire")
	}

	if len(n.sent) != 2 || n.sent[0] != "first" || n.sent[1] != "third" {
		t.Fatalf("sent = %v, want [first third]", n.sent)
	}
}

func TestDispatchSuppressionDoesNotExtendCooldown(t *testing.T) {
	n := &recordingNotifier{}
	d := newTestDispatcher(n)
	ctx := context.Background()

	d.Dispatch(ctx, t0, KindRange, "a")
	// Suppressed detection right before expiry must not reset the timer.
	d.Dispatch(ctx, t0.Add(299*time.Second), KindRange, "b")
	if !d.Dispatch(ctx, t0.Add(300*time.Second), KindRange, "c") {
		t.Fatal("cooldown boundary is inclusive and unaffected by suppressed detections")
	}
}

func TestDispatchKindsAreIndependent(t *testing.T) {
	n := &recordingNotifier{}
	d := newTestDispatcher(n)
	ctx := context.Background()

	d.Dispatch(ctx, t0, KindRange, "range")
	if !d.Dispatch(ctx, t0.Add(time.Second), KindRapid, "rapid") {
		t.Fatal("rapid cooldown must not be affected by a range fire")
	}
	if !d.Dispatch(ctx, t0.Add(121*time.Second+time.Second), KindRapid, "rapid2") {
		t.Fatal("rapid kind uses its own cooldown duration")
	}
}

func TestDispatchDeliveryFailureStillMarksFired(t *testing.T) {
	n := &recordingNotifier{err: errors.New("telegram down")}
	d := newTestDispatcher(n)
	ctx := context.Background()

	if !d.Dispatch(ctx, t0, KindRapid, "x") {
		t.Fatal("forward happens even when delivery fails")
	}
	if d.Dispatch(ctx, t0.Add(time.Second), KindRapid, "y") {
		t.Fatal("failed delivery must not re-open the cooldown window")
	}
}

func TestDispatchNilNotifier(t *testing.T) {
	d := newTestDispatcher(nil)
	if !d.Dispatch(context.Background(), t0, KindRange, "x") {
		t.Fatal("dispatch without notifier still counts as fired")
	}
}
