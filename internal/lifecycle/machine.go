// Package lifecycle sequences generation cycles for a single session.
//
// A Machine is the only owner of the live image handle. Each cycle moves
// Idle/Succeeded/Failed -> Validating -> (Failed | Requesting -> Succeeded | Failed).
// At most one cycle is in flight; Start during Validating or Requesting
// returns ErrBusy. The held handle is revoked when a new cycle starts, before
// a replacement could be stored, and again when the session closes.
package lifecycle

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/dmorgan81/qrgen/internal/blob"
	"github.com/dmorgan81/qrgen/internal/log"
	"github.com/dmorgan81/qrgen/internal/metrics"
	"github.com/dmorgan81/qrgen/internal/qr"
	"github.com/dmorgan81/qrgen/internal/store"
	"github.com/samber/lo"
)

type Option func(*Machine)

// WithSize sets the scale factor sent with every request.
func WithSize(size int) Option {
	return func(m *Machine) {
		m.size = size
	}
}

func WithObserver(o Observer) Option {
	return func(m *Machine) {
		m.observers = append(m.observers, subscriber{id: m.nextID, fn: o})
		m.nextID++
	}
}

type subscriber struct {
	id uint64
	fn Observer
}

type Machine struct {
	generator qr.Generator
	saver     store.Saver
	size      int

	mu     sync.Mutex
	state  State
	held   *blob.Handle
	cycle  uint64
	closed bool

	// notifyMu is taken before mu is released so observers see transitions
	// in the order they happened.
	notifyMu sync.Mutex

	observerMu sync.Mutex
	observers  []subscriber
	nextID     uint64
}

func New(generator qr.Generator, saver store.Saver, opts ...Option) *Machine {
	m := &Machine{
		generator: generator,
		saver:     saver,
		size:      qr.DefaultSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers an observer for every later transition. Observers run
// synchronously while notifications are serialized, so they must not call
// Start, Download or Close. Subscribing or unsubscribing from inside an
// observer is allowed and takes effect from the next transition.
func (m *Machine) Subscribe(o Observer) (unsubscribe func()) {
	m.observerMu.Lock()
	defer m.observerMu.Unlock()
	id := m.nextID
	m.nextID++
	m.observers = append(m.observers, subscriber{id: id, fn: o})
	return func() {
		m.observerMu.Lock()
		defer m.observerMu.Unlock()
		m.observers = lo.Reject(m.observers, func(s subscriber, _ int) bool { return s.id == id })
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start runs one cycle for raw and returns the state it settled in. Failures
// are reported through the returned State; the error is non-nil only when
// the cycle could not run or its result was discarded (ErrBusy, ErrClosed,
// ErrSuperseded).
func (m *Machine) Start(ctx context.Context, raw string) (State, error) {
	return m.StartSized(ctx, raw, m.size)
}

// StartSized is Start with a scale factor for this cycle only.
func (m *Machine) StartSized(ctx context.Context, raw string, size int) (State, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("lifecycle")

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return State{}, ErrClosed
	}
	if m.state.Busy() {
		s := m.state
		m.mu.Unlock()
		log.Info("generation already in progress", "cycle", s.Cycle)
		metrics.CyclesTotal.WithLabelValues("busy").Inc()
		return s, ErrBusy
	}
	m.cycle++
	cycle := m.cycle
	m.releaseLocked()
	m.transitionLocked(State{Phase: Validating, Cycle: cycle})

	text := strings.TrimSpace(raw)

	m.mu.Lock()
	if m.cycle != cycle {
		return m.discardLocked(ctx, nil)
	}
	if text == "" {
		s := State{Phase: Failed, Cycle: cycle, Message: EmptyInputMessage, Cause: CauseEmptyInput, Err: ErrEmptyInput}
		m.transitionLocked(s)
		log.Debug("empty input", "cycle", cycle)
		metrics.CyclesTotal.WithLabelValues(CauseEmptyInput.String()).Inc()
		return s, nil
	}
	m.transitionLocked(State{Phase: Requesting, Cycle: cycle, Text: text})
	log.Info("requesting qr code", "cycle", cycle, "size", size)

	handle, err := m.generator.Generate(ctx, text, size)

	m.mu.Lock()
	if m.cycle != cycle {
		return m.discardLocked(ctx, handle)
	}

	var s State
	if err == nil && handle == nil {
		err = errors.New("generator returned no image")
	}
	if err != nil {
		s = failure(cycle, text, err)
		log.Warn("generation failed", "cycle", cycle, "cause", s.Cause.String(), "error", err)
		metrics.CyclesTotal.WithLabelValues(s.Cause.String()).Inc()
	} else {
		m.releaseLocked()
		m.held = handle
		metrics.LiveHandles.Set(1)
		s = State{Phase: Succeeded, Cycle: cycle, Text: text, Handle: handle}
		log.Info("generation succeeded", "cycle", cycle, "handle", handle.URL(), "bytes", handle.Len())
		metrics.CyclesTotal.WithLabelValues("succeeded").Inc()
	}
	m.transitionLocked(s)
	return s, nil
}

// Download saves the held image as qrcode.png. It writes nothing unless the
// session is in Succeeded.
func (m *Machine) Download(ctx context.Context) (string, error) {
	return m.DownloadAs(ctx, store.DefaultName)
}

// DownloadAs is Download under a caller chosen name.
func (m *Machine) DownloadAs(ctx context.Context, name string) (string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("lifecycle")

	m.mu.Lock()
	if m.state.Phase != Succeeded || m.held == nil {
		m.mu.Unlock()
		metrics.DownloadsTotal.WithLabelValues("no_image").Inc()
		return "", ErrNoImageAvailable
	}
	handle, cycle := m.held, m.state.Cycle
	data, err := handle.Bytes()
	m.mu.Unlock()
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("no_image").Inc()
		return "", ErrNoImageAvailable
	}

	location, err := m.saver.Save(ctx, store.SaveParams{
		Name:        name,
		Data:        data,
		ContentType: lo.Ternary(handle.MIMEType() != "", handle.MIMEType(), "image/png"),
		Metadata: map[string]string{
			"cycle":  strconv.FormatUint(cycle, 10),
			"handle": handle.URL(),
		},
	})
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	log.Info("downloaded qr code", "cycle", cycle, "location", location)
	metrics.DownloadsTotal.WithLabelValues("ok").Inc()
	return location, nil
}

// Close ends the session: the live handle is revoked, any in-flight result
// will be discarded and later Start calls fail with ErrClosed.
func (m *Machine) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.cycle++
	m.releaseLocked()
	m.transitionLocked(State{Phase: Idle, Cycle: m.cycle})
	return nil
}

// Shutdown lets the injector close the session.
func (m *Machine) Shutdown() error {
	return m.Close()
}

func (m *Machine) releaseLocked() {
	if m.held == nil {
		return
	}
	m.held.Revoke()
	m.held = nil
	metrics.LiveHandles.Set(0)
}

// discardLocked drops the result of a cycle that is no longer current.
func (m *Machine) discardLocked(ctx context.Context, handle *blob.Handle) (State, error) {
	s := m.state
	m.mu.Unlock()
	if handle != nil {
		handle.Revoke()
	}
	log.FromContextOrDiscard(ctx).WithGroup("lifecycle").Info("discarding stale result", "current", s.Cycle)
	metrics.CyclesTotal.WithLabelValues("superseded").Inc()
	return s, ErrSuperseded
}

// transitionLocked stores s, releases mu and notifies observers in order.
func (m *Machine) transitionLocked(s State) {
	m.state = s
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()

	m.observerMu.Lock()
	observers := m.observers
	m.observerMu.Unlock()
	for _, o := range observers {
		o.fn(s)
	}
}

func failure(cycle uint64, text string, err error) State {
	s := State{Phase: Failed, Cycle: cycle, Text: text, Err: err}
	var qerr *qr.Error
	if errors.As(err, &qerr) {
		s.Message = qerr.Message
		s.Cause = lo.Ternary(qerr.Kind == qr.RemoteRejected, CauseRemoteRejected, CauseTransportUnreachable)
		return s
	}
	s.Message = qr.RejectedMessage
	s.Cause = CauseInternal
	return s
}
