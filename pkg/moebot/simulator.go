package moebot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SimulatedMower is an in-process Transport used to run the bridge without
// hardware. It answers status queries, reacts to commands and pushes a frame
// on every interval tick. Battery drains while mowing and recharges on the
// station.
type SimulatedMower struct {
	// PushInterval must be set before Open.
	PushInterval time.Duration

	logger *zap.Logger

	mu        sync.Mutex
	open      bool
	version   ProtocolVersion
	battery   int
	state     MachineState
	emergency string
	mowInRain bool
	mowTime   int
	workMode  string
	zones     string
	errorMask int
	password  int

	pushCh  chan DPS
	closeCh chan struct{}
}

func NewSimulatedMower(logger *zap.Logger) *SimulatedMower {
	return &SimulatedMower{
		PushInterval: 5 * time.Second,
		logger:       logger,
		battery:      87,
		state:        StateStandby,
		mowTime:      6,
		workMode:     "AutoMode",
		zones:        "50,20,100,20,150,20,200,20,250,20",
		password:     1234,
	}
}

func (m *SimulatedMower) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		return nil
	}
	m.open = true
	m.pushCh = make(chan DPS, 8)
	m.closeCh = make(chan struct{})
	go m.run(m.closeCh)
	return nil
}

func (m *SimulatedMower) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil
	}
	m.open = false
	close(m.closeCh)
	return nil
}

func (m *SimulatedMower) SetVersion(v ProtocolVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrClosed
	}
	if v != Protocol34 && v != Protocol33 {
		return fmt.Errorf("moebot: unsupported protocol version %s", v)
	}
	m.version = v
	return nil
}

func (m *SimulatedMower) Status() (DPS, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil, ErrClosed
	}
	return m.frameLocked(), nil
}

func (m *SimulatedMower) Set(dp string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrClosed
	}
	switch dp {
	case DPCommand:
		command, _ := value.(string)
		m.applyCommandLocked(command)
	case DPMowTime:
		if v, ok := asInt(value); ok {
			m.mowTime = v
		}
	case DPMowInRain:
		if v, ok := asBool(value); ok {
			m.mowInRain = v
		}
	default:
		return fmt.Errorf("moebot: datapoint %s is not writable", dp)
	}
	m.queuePushLocked()
	return nil
}

func (m *SimulatedMower) Receive(ctx context.Context) (DPS, error) {
	m.mu.Lock()
	open := m.open
	push := m.pushCh
	closed := m.closeCh
	m.mu.Unlock()
	if !open {
		return nil, ErrClosed
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-closed:
		return nil, ErrClosed
	case dps := <-push:
		return dps, nil
	}
}

func (m *SimulatedMower) applyCommandLocked(command string) {
	switch command {
	case CommandStartMowing:
		m.state = StateMowing
		m.emergency = ""
	case CommandStartFixedMowing:
		m.state = StateFixedMowing
		m.emergency = ""
	case CommandPauseWork:
		m.state = StatePaused
	case CommandCancelWork:
		m.state = StateStandby
	case CommandStartReturnStation:
		m.state = StatePark
	default:
		m.logger.Warn("simulated mower ignores unknown command", zap.String("command", command))
	}
}

func (m *SimulatedMower) run(closed chan struct{}) {
	ticker := time.NewTicker(m.PushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			m.mu.Lock()
			m.driftLocked()
			m.queuePushLocked()
			m.mu.Unlock()
		}
	}
}

// driftLocked advances the simulated mower one tick.
func (m *SimulatedMower) driftLocked() {
	switch m.state {
	case StateMowing, StateFixedMowing:
		m.battery--
		if m.battery <= 15 {
			m.state = StatePark
		}
	case StatePark:
		m.state = StateCharging
	case StateCharging:
		if m.battery >= 100 {
			m.battery = 100
			m.state = StateStandby
		} else {
			m.battery += 2
		}
	}
}

func (m *SimulatedMower) queuePushLocked() {
	// Drop the frame when the listener lags, the next tick resends.
	select {
	case m.pushCh <- m.frameLocked():
	default:
	}
}

func (m *SimulatedMower) frameLocked() DPS {
	return DPS{
		DPBattery:        m.battery,
		DPMachineState:   string(m.state),
		DPMachineError:   m.errorMask,
		DPMowInRain:      m.mowInRain,
		DPMowTime:        m.mowTime,
		DPZones:          m.zones,
		DPPassword:       m.password,
		DPEmergencyState: m.emergency,
		DPWorkMode:       m.workMode,
	}
}

var _ Transport = (*SimulatedMower)(nil)
