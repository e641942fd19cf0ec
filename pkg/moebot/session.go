package moebot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// PushCallback receives a state snapshot after every pushed frame.
type PushCallback func(DeviceState)

// Session drives one mower over a Transport. All methods are safe for
// concurrent use; State returns snapshots that are safe to retain.
type Session struct {
	transport Transport
	logger    *zap.Logger

	mu        sync.Mutex
	state     DeviceState
	version   ProtocolVersion
	connected bool
	closed    bool

	listenerAlive atomic.Bool
	listenCancel  context.CancelFunc
	listenDone    chan struct{}
}

func NewSession(transport Transport, logger *zap.Logger) *Session {
	return &Session{
		transport: transport,
		logger:    logger,
	}
}

// Connect opens the transport and negotiates the protocol version. 3.4 is
// probed with a raw status query and 3.3 tried on failure; the first good
// probe seeds the state and locks the version for the session's lifetime.
// The transport is closed again when no version answers.
func (s *Session) Connect() error {
	if err := s.transport.Open(); err != nil {
		return fmt.Errorf("open transport: %w", err)
	}
	for _, version := range negotiationOrder {
		if err := s.transport.SetVersion(version); err != nil {
			s.logger.Debug("protocol version rejected", zap.String("version", string(version)), zap.Error(err))
			continue
		}
		dps, err := s.transport.Status()
		if err != nil || len(dps) == 0 {
			s.logger.Debug("status probe failed", zap.String("version", string(version)), zap.Error(err))
			continue
		}
		s.mu.Lock()
		s.version = version
		s.connected = true
		s.closed = false
		s.state.applyDPS(dps, time.Now())
		s.mu.Unlock()
		s.logger.Info("mower connected", zap.String("version", string(version)))
		return nil
	}
	_ = s.transport.Close()
	return ErrNegotiationFailed
}

// Close stops the push listener and closes the transport. Safe to call more
// than once and before Connect.
func (s *Session) Close() error {
	s.Unlisten()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.connected = false
	s.mu.Unlock()
	return s.transport.Close()
}

// Poll queries the device status and merges the reply into the state. A
// transport failure marks the device offline.
func (s *Session) Poll() error {
	if err := s.ensureConnected(); err != nil {
		return err
	}
	dps, err := s.transport.Status()
	if err != nil {
		s.mu.Lock()
		s.state.Online = false
		s.mu.Unlock()
		return fmt.Errorf("status query: %w", err)
	}
	s.mu.Lock()
	s.state.applyDPS(dps, time.Now())
	s.mu.Unlock()
	return nil
}

// Listen starts the push listener. The callback runs on the listener
// goroutine, once per pushed frame, with a state snapshot.
func (s *Session) Listen(cb PushCallback) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.listenDone != nil {
		s.mu.Unlock()
		return ErrAlreadyListening
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.listenCancel = cancel
	s.listenDone = done
	s.mu.Unlock()

	s.listenerAlive.Store(true)
	go s.listenLoop(ctx, cb, done)
	return nil
}

func (s *Session) listenLoop(ctx context.Context, cb PushCallback, done chan struct{}) {
	defer func() {
		s.listenerAlive.Store(false)
		close(done)
	}()
	for {
		dps, err := s.transport.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("push listener stopped", zap.Error(err))
				s.mu.Lock()
				s.state.Online = false
				s.mu.Unlock()
			}
			return
		}
		if len(dps) == 0 {
			s.logger.Debug("empty push frame skipped")
			continue
		}
		s.mu.Lock()
		s.state.applyDPS(dps, time.Now())
		snapshot := s.state.clone()
		s.mu.Unlock()
		cb(snapshot)
	}
}

// Unlisten stops the push listener and waits for it to exit, bounded. Safe
// without a running listener and safe to call twice.
func (s *Session) Unlisten() {
	s.mu.Lock()
	cancel := s.listenCancel
	done := s.listenDone
	s.listenCancel = nil
	s.listenDone = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.logger.Warn("push listener did not stop within join window")
	}
}

// ListenerAlive reports whether the push goroutine is running.
func (s *Session) ListenerAlive() bool {
	return s.listenerAlive.Load()
}

// State returns a snapshot of the decoded device state.
func (s *Session) State() DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// LastUpdate is the timestamp of the last merged frame, zero before the
// first one.
func (s *Session) LastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastUpdate
}

// Version is the negotiated protocol version, empty before Connect.
func (s *Session) Version() ProtocolVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Start begins a mowing run. Spiral selects fixed spot mowing.
func (s *Session) Start(spiral bool) error {
	command := CommandStartMowing
	if spiral {
		command = CommandStartFixedMowing
	}
	return s.writeCommand(command)
}

func (s *Session) Pause() error {
	return s.writeCommand(CommandPauseWork)
}

func (s *Session) Cancel() error {
	return s.writeCommand(CommandCancelWork)
}

// Dock sends the mower back to the charging station. The device accepts the
// command in any state, a mower already docked just acknowledges it.
func (s *Session) Dock() error {
	return s.writeCommand(CommandStartReturnStation)
}

// SetMowTime sets the daily mow time in hours, 1 to 99 inclusive. Out of
// range values are rejected before any device I/O.
func (s *Session) SetMowTime(hours int) error {
	if hours < 1 || hours > 99 {
		return fmt.Errorf("%w: %d", ErrInvalidMowTime, hours)
	}
	if err := s.ensureConnected(); err != nil {
		return err
	}
	if err := s.transport.Set(DPMowTime, hours); err != nil {
		return fmt.Errorf("set mow time: %w", err)
	}
	return nil
}

func (s *Session) SetMowInRain(enabled bool) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}
	if err := s.transport.Set(DPMowInRain, enabled); err != nil {
		return fmt.Errorf("set mow in rain: %w", err)
	}
	return nil
}

// MachineErrors re-queries the raw status and decodes the error bitmap.
// Failures degrade to an empty list.
func (s *Session) MachineErrors() []string {
	dps, err := s.rawStatus()
	if err != nil {
		s.logger.Warn("machine error query failed", zap.Error(err))
		return nil
	}
	return DecodeErrors(dps[DPMachineError])
}

// Password re-queries the raw status for the device password. Failures and
// an unreported password degrade to the zero value.
func (s *Session) Password() Password {
	dps, err := s.rawStatus()
	if err != nil {
		s.logger.Warn("password query failed", zap.Error(err))
		return Password{}
	}
	n, ok := asInt(dps[DPPassword])
	if !ok {
		return Password{}
	}
	return Password{Numeric: &n, Letters: DecodePassword(n)}
}

func (s *Session) writeCommand(command string) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}
	if err := s.transport.Set(DPCommand, command); err != nil {
		return fmt.Errorf("command %s: %w", command, err)
	}
	s.logger.Debug("command sent", zap.String("command", command))
	return nil
}

func (s *Session) rawStatus() (DPS, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}
	return s.transport.Status()
}

func (s *Session) ensureConnected() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected || s.closed {
		return ErrNotConnected
	}
	return nil
}
