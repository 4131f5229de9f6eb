// Package manager multiplexes a set of per-object transceivers over a
// single transport: it decodes inbound frames and routes them to the
// right transceiver's remote slot, encodes a transceiver's outbound
// updates and hands them to the transport, and drives every registered
// transceiver's periodic retransmit decision.
package manager

import (
	"fmt"
	"io"
	"sync"

	"github.com/relaysync/gamesync/transceiver"
	"github.com/relaysync/gamesync/transport"
	"github.com/relaysync/gamesync/wire"
)

// LogLevel classifies a Manager log event.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "debug"
	case LogInfo:
		return "info"
	case LogWarn:
		return "warn"
	case LogError:
		return "error"
	default:
		return "unknown"
	}
}

// Manager routes frames between a Transport and a registry of
// transceivers. The zero value is not usable; construct with New.
type Manager struct {
	transport transport.Transport
	debugging bool

	mu    sync.RWMutex
	byID  map[wire.ObjectId]*transceiver.Transceiver
	byTag map[wire.Tag]*transceiver.Transceiver
	all   map[*transceiver.Transceiver]struct{}

	eventMu               sync.RWMutex
	onUnregisteredUpdate  func(wire.GSObject)
	onUnregisteredUnknown func(*wire.UnknownObject)
	onLog                 func(LogLevel, string)
}

// New constructs a Manager that sends through t. debugging enables
// verbose debug-level log events for registration and dispatch.
func New(t transport.Transport, debugging bool) *Manager {
	return &Manager{
		transport: t,
		debugging: debugging,
		byID:      make(map[wire.ObjectId]*transceiver.Transceiver),
		byTag:     make(map[wire.Tag]*transceiver.Transceiver),
		all:       make(map[*transceiver.Transceiver]struct{}),
	}
}

// OnUnregisteredUpdate subscribes fn to fire whenever an identified
// variant arrives with no matching by-id registration.
func (m *Manager) OnUnregisteredUpdate(fn func(wire.GSObject)) {
	m.eventMu.Lock()
	m.onUnregisteredUpdate = fn
	m.eventMu.Unlock()
}

// OnUnregisteredUnknown subscribes fn to fire whenever an unrecognized
// tag arrives with no matching by-tag registration.
func (m *Manager) OnUnregisteredUnknown(fn func(*wire.UnknownObject)) {
	m.eventMu.Lock()
	m.onUnregisteredUnknown = fn
	m.eventMu.Unlock()
}

// OnLog subscribes fn to receive the manager's debug/error log stream.
func (m *Manager) OnLog(fn func(LogLevel, string)) {
	m.eventMu.Lock()
	m.onLog = fn
	m.eventMu.Unlock()
}

func (m *Manager) log(level LogLevel, format string, args ...interface{}) {
	if level == LogDebug && !m.debugging {
		return
	}
	m.eventMu.RLock()
	fn := m.onLog
	m.eventMu.RUnlock()
	if fn != nil {
		fn(level, fmt.Sprintf(format, args...))
	}
}

func (m *Manager) fireUnregisteredUpdate(obj wire.GSObject) {
	m.eventMu.RLock()
	fn := m.onUnregisteredUpdate
	m.eventMu.RUnlock()
	if fn != nil {
		fn(obj)
	}
}

func (m *Manager) fireUnregisteredUnknown(obj *wire.UnknownObject) {
	m.eventMu.RLock()
	fn := m.onUnregisteredUnknown
	m.eventMu.RUnlock()
	if fn != nil {
		fn(obj)
	}
}

// RegisterID registers tr under id, the by-id registry used for every
// identified variant (Head1, Hand1, Object1, Mesh1, Hand2). id must be
// nonzero and not already registered.
func (m *Manager) RegisterID(id wire.ObjectId, tr *transceiver.Transceiver) error {
	if id == 0 {
		return ErrNullIdentity
	}
	m.mu.Lock()
	if _, exists := m.byID[id]; exists {
		m.mu.Unlock()
		return ErrRegistrationConflict
	}
	m.byID[id] = tr
	m.all[tr] = struct{}{}
	m.mu.Unlock()

	tr.Subscribe(func(ao transceiver.AuthoredObject) { m.sendOutbound(ao) })
	m.log(LogDebug, "registered transceiver for id %d", id)
	return nil
}

// RegisterTag registers tr under tag, the by-tag registry used for
// variants with no identity of their own: raw unknown tags, and
// HeadIPD1.
func (m *Manager) RegisterTag(tag wire.Tag, tr *transceiver.Transceiver) error {
	m.mu.Lock()
	if _, exists := m.byTag[tag]; exists {
		m.mu.Unlock()
		return ErrRegistrationConflict
	}
	m.byTag[tag] = tr
	m.all[tr] = struct{}{}
	m.mu.Unlock()

	tr.Subscribe(func(ao transceiver.AuthoredObject) { m.sendOutbound(ao) })
	m.log(LogDebug, "registered transceiver for tag %d", tag)
	return nil
}

// Unregister detaches and removes the transceiver registered under id, if
// any. A dropped transceiver stops participating in retransmits and stops
// routing its send events through this manager.
func (m *Manager) Unregister(id wire.ObjectId) {
	m.mu.Lock()
	tr, ok := m.byID[id]
	if ok {
		delete(m.byID, id)
		delete(m.all, tr)
	}
	m.mu.Unlock()
	if ok {
		tr.Subscribe(nil)
		m.log(LogDebug, "unregistered transceiver for id %d", id)
	}
}

// UnregisterTag detaches and removes the transceiver registered under
// tag, if any.
func (m *Manager) UnregisterTag(tag wire.Tag) {
	m.mu.Lock()
	tr, ok := m.byTag[tag]
	if ok {
		delete(m.byTag, tag)
		delete(m.all, tr)
	}
	m.mu.Unlock()
	if ok {
		tr.Subscribe(nil)
		m.log(LogDebug, "unregistered transceiver for tag %d", tag)
	}
}

// Stats is a point-in-time snapshot of the manager's registries.
type Stats struct {
	RegisteredByID  int
	RegisteredByTag int
	Total           int
}

// Stats reports how many transceivers are registered.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		RegisteredByID:  len(m.byID),
		RegisteredByTag: len(m.byTag),
		Total:           len(m.all),
	}
}

// sendOutbound is the "message to send" listener wired into every
// registered transceiver: encode the single object and hand it to the
// transport under this manager's own local identifier, since the manager
// is always the immediate sender regardless of who originally authored
// the rendered content (e.g. after a takeover retransmit of a remote's
// update).
func (m *Manager) sendOutbound(ao transceiver.AuthoredObject) {
	enc := wire.NewEncoder(wire.DefaultBufferSize)
	if err := enc.Encode(ao.Object); err != nil {
		m.log(LogError, "encode failed for tag %d: %v", ao.Object.Tag(), err)
		return
	}

	msg := transport.EncodedMessage{
		Bytes:  append([]byte(nil), enc.Bytes()...),
		Author: m.transport.LocalIdentifier(),
	}
	if err := m.transport.Send(msg); err != nil {
		m.log(LogError, "transport send failed: %v", err)
	}
}

// OnMessageReceived decodes one frame and dispatches it to the matching
// transceiver's remote slot, or fires the appropriate unregistered event.
// All errors and panics are caught and logged; the manager remains
// usable no matter what a misbehaving frame or listener does.
func (m *Manager) OnMessageReceived(msg transport.EncodedMessage) {
	defer func() {
		if r := recover(); r != nil {
			m.log(LogError, "recovered panic while handling frame: %v", r)
		}
	}()

	dec := wire.NewDecoder(msg.Bytes)
	obj, err := dec.Decode()
	if err == io.EOF {
		m.log(LogDebug, "empty frame from author %d", msg.Author)
		return
	}
	if err != nil {
		m.log(LogError, "decode error from author %d: %v", msg.Author, err)
		return
	}

	ao := transceiver.AuthoredObject{Object: obj, Author: msg.Author}
	m.dispatch(ao)
}

func (m *Manager) dispatch(ao transceiver.AuthoredObject) {
	if ident, ok := ao.Object.(wire.Identified); ok {
		m.mu.RLock()
		tr, found := m.byID[ident.ID()]
		m.mu.RUnlock()
		if found {
			if err := tr.SetRemote(ao); err != nil {
				m.log(LogWarn, "set_remote rejected for id %d: %v", ident.ID(), err)
			}
			return
		}
		m.fireUnregisteredUpdate(ao.Object)
		return
	}

	m.mu.RLock()
	tr, found := m.byTag[ao.Object.Tag()]
	m.mu.RUnlock()
	if found {
		if err := tr.SetRemote(ao); err != nil {
			m.log(LogWarn, "set_remote rejected for tag %d: %v", ao.Object.Tag(), err)
		}
		return
	}

	if uo, ok := ao.Object.(*wire.UnknownObject); ok {
		m.fireUnregisteredUnknown(uo)
		return
	}
	m.log(LogDebug, "no transceiver registered for tag %d", ao.Object.Tag())
}

// RetransmitAll invokes Retransmit on every registered transceiver.
// Per-transceiver panics are isolated and logged.
func (m *Manager) RetransmitAll() {
	m.mu.RLock()
	all := make([]*transceiver.Transceiver, 0, len(m.all))
	for tr := range m.all {
		all = append(all, tr)
	}
	m.mu.RUnlock()

	for _, tr := range all {
		m.retransmitOne(tr)
	}
}

func (m *Manager) retransmitOne(tr *transceiver.Transceiver) {
	defer func() {
		if r := recover(); r != nil {
			m.log(LogError, "recovered panic during retransmit: %v", r)
		}
	}()
	tr.Retransmit()
}
