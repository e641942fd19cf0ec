package moebot

import (
	"context"
	"sync"
)

// TestWrite records one Set call on a TestTransport.
type TestWrite struct {
	DP    string
	Value any
}

// TestTransport is a scriptable Transport for tests. Hooks left nil fall
// back to a permissive default backed by Frame. Every call is recorded.
type TestTransport struct {
	OpenFunc       func() error
	CloseFunc      func() error
	SetVersionFunc func(v ProtocolVersion) error
	StatusFunc     func() (DPS, error)
	SetFunc        func(dp string, value any) error
	ReceiveFunc    func(ctx context.Context) (DPS, error)

	// Frame is the default Status reply.
	Frame DPS

	mu       sync.Mutex
	opens    int
	closes   int
	versions []ProtocolVersion
	writes   []TestWrite
}

func NewTestTransport() *TestTransport {
	return &TestTransport{
		Frame: DPS{
			DPBattery:      92,
			DPMachineState: string(StateStandby),
			DPMachineError: 0,
			DPMowInRain:    false,
			DPMowTime:      6,
			DPZones:        "50,20,100,20,150,20,200,20,250,20",
			DPPassword:     1234,
			DPWorkMode:     "AutoMode",
		},
	}
}

func (t *TestTransport) Open() error {
	t.mu.Lock()
	t.opens++
	t.mu.Unlock()
	if t.OpenFunc != nil {
		return t.OpenFunc()
	}
	return nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	t.closes++
	t.mu.Unlock()
	if t.CloseFunc != nil {
		return t.CloseFunc()
	}
	return nil
}

func (t *TestTransport) SetVersion(v ProtocolVersion) error {
	t.mu.Lock()
	t.versions = append(t.versions, v)
	t.mu.Unlock()
	if t.SetVersionFunc != nil {
		return t.SetVersionFunc(v)
	}
	return nil
}

func (t *TestTransport) Status() (DPS, error) {
	if t.StatusFunc != nil {
		return t.StatusFunc()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	frame := DPS{}
	for k, v := range t.Frame {
		frame[k] = v
	}
	return frame, nil
}

func (t *TestTransport) Set(dp string, value any) error {
	t.mu.Lock()
	t.writes = append(t.writes, TestWrite{DP: dp, Value: value})
	t.mu.Unlock()
	if t.SetFunc != nil {
		return t.SetFunc(dp, value)
	}
	return nil
}

// Receive blocks on the context unless a hook is set, mimicking a device
// that never pushes.
func (t *TestTransport) Receive(ctx context.Context) (DPS, error) {
	if t.ReceiveFunc != nil {
		return t.ReceiveFunc(ctx)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (t *TestTransport) Opens() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens
}

func (t *TestTransport) Closes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}

func (t *TestTransport) Versions() []ProtocolVersion {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ProtocolVersion(nil), t.versions...)
}

func (t *TestTransport) Writes() []TestWrite {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TestWrite(nil), t.writes...)
}

var _ Transport = (*TestTransport)(nil)
