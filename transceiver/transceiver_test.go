package transceiver

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/relaysync/gamesync/wire"
)

func head(id wire.ObjectId, t wire.DateTimeMs) AuthoredObject {
	return AuthoredObject{Object: &wire.Head1{ObjID: id, Time: t}, Author: 1}
}

func TestSetLocalMonotonicRejection(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_000_000))
	tr := New(Config{Mode: Bidirectional, Clock: clock})

	now := wire.DateTimeMs(clock.Now().UnixMilli())
	if err := tr.SetLocal(head(1, now)); err != nil {
		t.Fatalf("first SetLocal: %v", err)
	}
	if err := tr.SetLocal(head(1, now-1000)); err != ErrNonMonotonic {
		t.Fatalf("second SetLocal error = %v, want ErrNonMonotonic", err)
	}
	if tr.lastLocalMsgTime != int64(now) {
		t.Fatalf("state mutated after rejected SetLocal: lastLocalMsgTime = %d, want %d", tr.lastLocalMsgTime, now)
	}
}

func TestSetLocalFutureRejection(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_000_000))
	tr := New(Config{Mode: Bidirectional, Clock: clock})

	future := wire.DateTimeMs(clock.Now().UnixMilli() + 10_000)
	if err := tr.SetLocal(head(1, future)); err != ErrFutureTimestamp {
		t.Fatalf("SetLocal error = %v, want ErrFutureTimestamp", err)
	}
}

func TestSetLocalRejectedInReceiveOnly(t *testing.T) {
	tr := New(Config{Mode: ReceiveOnly, Clock: clockwork.NewRealClock()})
	if err := tr.SetLocal(head(1, 0)); err != ErrModeViolation {
		t.Fatalf("SetLocal error = %v, want ErrModeViolation", err)
	}
}

func TestSetRemoteRejectedInSendOnly(t *testing.T) {
	tr := New(Config{Mode: SendOnly, Clock: clockwork.NewRealClock()})
	if err := tr.SetRemote(head(1, 0)); err != ErrModeViolation {
		t.Fatalf("SetRemote error = %v, want ErrModeViolation", err)
	}
}

func TestRenderRemoteThenNewerLocalPicksLocal(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(10_000_000))
	var sent []AuthoredObject
	tr := New(Config{Mode: Bidirectional, Clock: clock})
	tr.Subscribe(func(a AuthoredObject) {
		sent = append(sent, a)
	})

	now := clock.Now().UnixMilli()
	if err := tr.SetRemote(head(1, wire.DateTimeMs(now-60_000))); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}
	if err := tr.SetLocal(head(1, wire.DateTimeMs(now))); err != nil {
		t.Fatalf("SetLocal: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("expected send event on SetLocal, got %d events", len(sent))
	}

	got, ok := tr.Render()
	if !ok {
		t.Fatal("Render() returned no value")
	}
	h := got.Object.(*wire.Head1)
	if h.Time != wire.DateTimeMs(now) {
		t.Fatalf("Render() picked wrong value: got time %d, want local time %d", h.Time, now)
	}

	if _, ok := tr.Render(); ok {
		t.Fatal("second immediate Render() should return nothing")
	}
}

func TestRenderLocalThenRemotePicksRemoteNoSendEvent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(10_000_000))
	var sent int
	tr := New(Config{Mode: Bidirectional, Clock: clock})
	tr.Subscribe(func(AuthoredObject) { sent++ })

	now := clock.Now().UnixMilli()
	if err := tr.SetLocal(head(1, wire.DateTimeMs(now-60_000))); err != nil {
		t.Fatalf("SetLocal: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 send event after SetLocal, got %d", sent)
	}
	if err := tr.SetRemote(head(1, wire.DateTimeMs(now))); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}
	if sent != 1 {
		t.Fatalf("SetRemote must not fire a send event, got %d total", sent)
	}

	got, ok := tr.Render()
	if !ok {
		t.Fatal("Render() returned no value")
	}
	if got.Object.(*wire.Head1).Time != wire.DateTimeMs(now) {
		t.Fatal("Render() should have picked the remote (newer) value")
	}
}

func TestRenderNeitherPresent(t *testing.T) {
	tr := New(Config{Mode: Bidirectional, Clock: clockwork.NewRealClock()})
	if _, ok := tr.Render(); ok {
		t.Fatal("Render() with no updates should return nothing")
	}
}

func TestPrerenderedSuppressesLocalWinner(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(10_000_000))
	tr := New(Config{Mode: Bidirectional, Prerendered: true, Clock: clock})

	now := clock.Now().UnixMilli()
	if err := tr.SetRemote(head(1, wire.DateTimeMs(now-60_000))); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}
	if err := tr.SetLocal(head(1, wire.DateTimeMs(now))); err != nil {
		t.Fatalf("SetLocal: %v", err)
	}

	if _, ok := tr.Render(); ok {
		t.Fatal("prerendered transceiver should suppress a local-winning render")
	}
}

func TestRetransmitTable(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(10_000_000))

	newTr := func() *Transceiver {
		return New(Config{Mode: Bidirectional, ExpiryMs: 1000, Clock: clock})
	}

	t.Run("no local no remote", func(t *testing.T) {
		tr := newTr()
		tr.Retransmit() // grace tick
		if tr.Retransmit() {
			t.Fatal("expected false")
		}
	})

	t.Run("local only", func(t *testing.T) {
		tr := newTr()
		now := clock.Now().UnixMilli()
		tr.SetLocal(head(1, wire.DateTimeMs(now)))
		tr.Retransmit() // grace
		if !tr.Retransmit() {
			t.Fatal("expected true (NoRemote)")
		}
	})

	t.Run("remote only fresh", func(t *testing.T) {
		tr := newTr()
		now := clock.Now().UnixMilli()
		tr.SetRemote(head(1, wire.DateTimeMs(now)))
		tr.Retransmit() // grace
		if tr.Retransmit() {
			t.Fatal("expected false (NoLocal, since local absent takes priority over takeover when remote is fresh)")
		}
	})

	t.Run("local newer than remote", func(t *testing.T) {
		tr := newTr()
		now := clock.Now().UnixMilli()
		tr.SetRemote(head(1, wire.DateTimeMs(now-500)))
		tr.SetLocal(head(1, wire.DateTimeMs(now)))
		tr.Retransmit() // grace
		if !tr.Retransmit() {
			t.Fatal("expected true (NewerLocal)")
		}
	})

	t.Run("remote newer both fresh", func(t *testing.T) {
		tr := newTr()
		now := clock.Now().UnixMilli()
		tr.SetLocal(head(1, wire.DateTimeMs(now-500)))
		tr.SetRemote(head(1, wire.DateTimeMs(now)))
		tr.Retransmit() // grace
		if tr.Retransmit() {
			t.Fatal("expected false (RecentRemote)")
		}
	})
}

func TestRetransmitExpiredRemoteTakeover(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(10_000_000))
	tr := New(Config{Mode: Bidirectional, ExpiryMs: 1000, Clock: clock})

	now := clock.Now().UnixMilli()
	if err := tr.SetRemote(head(7, wire.DateTimeMs(now-30_000))); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}

	if tr.Retransmit() {
		t.Fatal("grace tick should not emit")
	}

	clock.Advance(1100 * time.Millisecond)

	if !tr.Retransmit() {
		t.Fatal("expected takeover retransmit to emit")
	}

	got, ok := tr.Render()
	if !ok {
		t.Fatal("expected the promoted remote to render as local")
	}
	if got.Object.(*wire.Head1).ObjID != 7 {
		t.Fatalf("rendered wrong object after takeover: %+v", got)
	}
}

func TestRetransmitReasonsSink(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(10_000_000))
	var got []RetransmitReason
	tr := New(Config{Mode: Bidirectional, ExpiryMs: 1000, Clock: clock, RetransmitReasons: func(r RetransmitReason) {
		got = append(got, r)
	}})

	now := clock.Now().UnixMilli()
	tr.SetLocal(head(1, wire.DateTimeMs(now)))
	tr.Retransmit() // grace, no reason reported
	tr.Retransmit() // NoRemote

	if len(got) != 1 || got[0] != ReasonNoRemote {
		t.Fatalf("reasons = %v, want [NoRemote]", got)
	}
}

func TestSendOnlyAlwaysRendersLocal(t *testing.T) {
	tr := New(Config{Mode: SendOnly, Clock: clockwork.NewRealClock()})
	tr.SetLocal(head(1, 0))
	got, ok := tr.Render()
	if !ok || got.Object.(*wire.Head1).ObjID != 1 {
		t.Fatal("SendOnly Render() should return the local value")
	}
}

func TestReceiveOnlyAlwaysRendersRemote(t *testing.T) {
	tr := New(Config{Mode: ReceiveOnly, Clock: clockwork.NewRealClock()})
	tr.SetRemote(head(1, 0))
	got, ok := tr.Render()
	if !ok || got.Object.(*wire.Head1).ObjID != 1 {
		t.Fatal("ReceiveOnly Render() should return the remote value")
	}
}
