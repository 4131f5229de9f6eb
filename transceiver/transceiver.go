// Package transceiver implements the per-object reconciliation state
// machine: local and remote update slots, a render decision that picks a
// single renderable value, and a retransmit decision that takes over a
// silent peer's object so it never goes permanently stale.
package transceiver

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/relaysync/gamesync/wire"
)

// Mode constrains which slots a Transceiver accepts updates into.
type Mode int

const (
	Bidirectional Mode = iota
	ReceiveOnly
	SendOnly
)

// Algorithm selects how local/remote updates are compared when both are
// present or when one must be checked against a previously seen value.
type Algorithm int

const (
	// AlgorithmTimestamp compares the message-carried timestamp of each
	// variant. It is the default, and the only sensible choice, for
	// timestamped variants.
	AlgorithmTimestamp Algorithm = iota
	// AlgorithmLatest compares wall-clock arrival time instead. It is the
	// only meaningful choice for untimed variants (Mesh1, HeadIPD1,
	// UnknownObject).
	AlgorithmLatest
)

// AuthoredObject pairs a decoded or locally produced GSObject with the
// peer id that authored it.
type AuthoredObject struct {
	Object wire.GSObject
	Author uint32
}

// Config configures a new Transceiver. ExpiryMs has no useful zero value:
// with 0, a remote counts as expired as soon as any time has passed since
// it arrived, so callers should always set it. Clock defaults to the real
// wall clock when nil.
type Config struct {
	Mode              Mode
	Algorithm         Algorithm
	Prerendered       bool
	ExpiryMs          uint64
	Debugging         bool
	Clock             clockwork.Clock
	RetransmitReasons func(RetransmitReason)
}

// Transceiver is the per-object reconciliation state machine. The two slot
// locks are acquired local-then-remote by any operation reading both
// (Render and Retransmit), a fixed lock order.
type Transceiver struct {
	mode        Mode
	algorithm   Algorithm
	prerendered bool
	expiry      time.Duration
	debugging   bool
	clock       clockwork.Clock
	reasons     func(RetransmitReason)

	sinkMu sync.RWMutex
	onSend func(AuthoredObject)

	localMu             sync.Mutex
	local               *AuthoredObject
	lastLocal           *AuthoredObject
	hasLastLocal        bool
	lastLocalMsgTime    int64
	lastLocalHasMsgTime bool
	lastLocalArrivalMs  int64

	remoteMu             sync.Mutex
	remote               *AuthoredObject
	lastRemote           *AuthoredObject
	hasLastRemote        bool
	lastRemoteMsgTime    int64
	lastRemoteHasMsgTime bool
	lastUpdateReceived   time.Time

	retransmitMu         sync.Mutex
	lastRetransmitCheck  time.Time
	hasRetransmitCheck   bool
}

// New constructs a Transceiver from cfg.
func New(cfg Config) *Transceiver {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Transceiver{
		mode:        cfg.Mode,
		algorithm:   cfg.Algorithm,
		prerendered: cfg.Prerendered,
		expiry:      time.Duration(cfg.ExpiryMs) * time.Millisecond,
		debugging:   cfg.Debugging,
		clock:       clock,
		reasons:     cfg.RetransmitReasons,
	}
}

// Subscribe installs fn as the sink for this transceiver's
// "message to send" event, replacing any previous sink. Passing nil
// detaches the sink; this is what Manager.Unregister does so a dropped
// transceiver stops routing through a manager it no longer belongs to.
func (t *Transceiver) Subscribe(fn func(AuthoredObject)) {
	t.sinkMu.Lock()
	t.onSend = fn
	t.sinkMu.Unlock()
}

// SetLocal validates and stores a locally produced update, then
// synchronously fires the "message to send" sink installed by Subscribe.
func (t *Transceiver) SetLocal(obj AuthoredObject) error {
	if t.mode == ReceiveOnly {
		return ErrModeViolation
	}

	now := t.clock.Now()
	nowMs := now.UnixMilli()

	var msgTime int64
	hasMsgTime := false
	if ts, ok := obj.Object.(wire.Timestamped); ok {
		msgTime = int64(ts.Timestamp())
		hasMsgTime = true
		if msgTime > nowMs {
			return ErrFutureTimestamp
		}
	}

	t.localMu.Lock()
	if hasMsgTime && t.lastLocalHasMsgTime && msgTime < t.lastLocalMsgTime {
		t.localMu.Unlock()
		return ErrNonMonotonic
	}

	t.local = &obj
	t.lastLocal = &obj
	t.hasLastLocal = true
	t.lastLocalArrivalMs = nowMs
	t.lastLocalHasMsgTime = hasMsgTime
	if hasMsgTime {
		t.lastLocalMsgTime = msgTime
	}
	t.localMu.Unlock()

	t.emit(obj)
	return nil
}

// SetRemote records a remotely observed update.
func (t *Transceiver) SetRemote(obj AuthoredObject) error {
	if t.mode == SendOnly {
		return ErrModeViolation
	}

	now := t.clock.Now()
	var msgTime int64
	hasMsgTime := false
	if ts, ok := obj.Object.(wire.Timestamped); ok {
		msgTime = int64(ts.Timestamp())
		hasMsgTime = true
	}

	t.remoteMu.Lock()
	t.remote = &obj
	t.lastRemote = &obj
	t.hasLastRemote = true
	t.lastUpdateReceived = now
	t.lastRemoteHasMsgTime = hasMsgTime
	if hasMsgTime {
		t.lastRemoteMsgTime = msgTime
	}
	t.remoteMu.Unlock()
	return nil
}

// tL returns the current effective comparator time for the local slot,
// per the configured algorithm.
func (t *Transceiver) tL() int64 {
	if t.algorithm == AlgorithmLatest || !t.lastLocalHasMsgTime {
		return t.lastLocalArrivalMs
	}
	return t.lastLocalMsgTime
}

// tR returns the current effective comparator time for the remote slot.
func (t *Transceiver) tR() int64 {
	if t.algorithm == AlgorithmLatest || !t.lastRemoteHasMsgTime {
		return t.lastUpdateReceived.UnixMilli()
	}
	return t.lastRemoteMsgTime
}

// Render returns the chosen renderable value, clearing the local and
// remote slots regardless of outcome.
func (t *Transceiver) Render() (AuthoredObject, bool) {
	switch t.mode {
	case SendOnly:
		t.localMu.Lock()
		obj := t.local
		t.local = nil
		t.localMu.Unlock()
		if obj == nil {
			return AuthoredObject{}, false
		}
		if t.prerendered {
			return AuthoredObject{}, false
		}
		return *obj, true

	case ReceiveOnly:
		t.remoteMu.Lock()
		obj := t.remote
		t.remote = nil
		t.remoteMu.Unlock()
		if obj == nil {
			return AuthoredObject{}, false
		}
		return *obj, true
	}

	// Bidirectional: fixed lock order, local then remote.
	t.localMu.Lock()
	t.remoteMu.Lock()

	L := t.local
	R := t.remote
	t.local = nil
	t.remote = nil
	hasLastLocal := t.hasLastLocal
	hasLastRemote := t.hasLastRemote
	tL := t.tL()
	tR := t.tR()

	t.remoteMu.Unlock()
	t.localMu.Unlock()

	var winner *AuthoredObject
	winnerIsLocal := false

	switch {
	case L == nil && R == nil:
		// no winner
	case L != nil && R == nil:
		if !(hasLastRemote && tL < tR) {
			winner, winnerIsLocal = L, true
		}
	case L == nil && R != nil:
		if !(hasLastLocal && tR < tL) {
			winner = R
		}
	default:
		if tL >= tR {
			winner, winnerIsLocal = L, true
		} else {
			winner = R
		}
	}

	if winner == nil {
		return AuthoredObject{}, false
	}
	if winnerIsLocal && t.prerendered {
		return AuthoredObject{}, false
	}
	return *winner, true
}

// Retransmit runs the ownership/takeover decision and returns whether a
// message was emitted. It updates the retransmit-check timestamp in every
// mode except ReceiveOnly, which returns false without touching it.
func (t *Transceiver) Retransmit() bool {
	switch t.mode {
	case ReceiveOnly:
		return false
	case SendOnly:
		t.localMu.Lock()
		obj := t.lastLocal
		t.localMu.Unlock()
		t.touchRetransmitCheck()
		if obj == nil {
			return false
		}
		t.emit(*obj)
		return true
	}

	t.localMu.Lock()
	t.remoteMu.Lock()

	now := t.clock.Now()

	t.retransmitMu.Lock()
	first := !t.hasRetransmitCheck
	t.hasRetransmitCheck = true
	t.lastRetransmitCheck = now
	t.retransmitMu.Unlock()

	if first {
		t.remoteMu.Unlock()
		t.localMu.Unlock()
		return false
	}

	expiredCutoff := now.Add(-t.expiry)
	remoteStale := t.hasLastRemote && t.lastUpdateReceived.Before(expiredCutoff)

	if remoteStale && (!t.hasLastLocal || t.tL() < t.lastUpdateReceived.UnixMilli()) {
		promoted := *t.lastRemote
		t.local = &promoted
		t.lastLocal = &promoted
		t.hasLastLocal = true
		t.lastLocalArrivalMs = now.UnixMilli()
		if ts, ok := promoted.Object.(wire.Timestamped); ok {
			t.lastLocalMsgTime = int64(ts.Timestamp())
			t.lastLocalHasMsgTime = true
		} else {
			t.lastLocalHasMsgTime = false
		}

		t.remote = nil
		t.lastRemote = nil
		t.hasLastRemote = false
		t.lastUpdateReceived = time.Time{}

		t.remoteMu.Unlock()
		t.localMu.Unlock()

		t.reportReason(ReasonExpiredRemote)
		t.emit(promoted)
		return true
	}

	switch {
	case !t.hasLastLocal:
		t.remoteMu.Unlock()
		t.localMu.Unlock()
		t.reportReason(ReasonNoLocal)
		return false

	case !t.hasLastRemote:
		toSend := *t.lastLocal
		t.remoteMu.Unlock()
		t.localMu.Unlock()
		t.reportReason(ReasonNoRemote)
		t.emit(toSend)
		return true

	case t.tL() > t.tR():
		toSend := *t.lastLocal
		t.remoteMu.Unlock()
		t.localMu.Unlock()
		t.reportReason(ReasonNewerLocal)
		t.emit(toSend)
		return true

	default:
		t.remoteMu.Unlock()
		t.localMu.Unlock()
		t.reportReason(ReasonRecentRemote)
		return false
	}
}

func (t *Transceiver) touchRetransmitCheck() {
	t.retransmitMu.Lock()
	t.lastRetransmitCheck = t.clock.Now()
	t.hasRetransmitCheck = true
	t.retransmitMu.Unlock()
}

func (t *Transceiver) reportReason(r RetransmitReason) {
	if t.reasons != nil {
		t.reasons(r)
	}
}

func (t *Transceiver) emit(obj AuthoredObject) {
	t.sinkMu.RLock()
	sink := t.onSend
	t.sinkMu.RUnlock()
	if sink != nil {
		sink(obj)
	}
}

// Mode reports the transceiver's configured direction.
func (t *Transceiver) Mode() Mode { return t.mode }
