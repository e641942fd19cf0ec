package moebot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSimulatorPushesPeriodicFrames(t *testing.T) {

	assert := assert.New(t)

	sim := NewSimulatedMower(zap.NewNop())
	sim.PushInterval = 20 * time.Millisecond
	assert.NoError(sim.Open())
	defer func() {
		assert.NoError(sim.Close())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	frame, err := sim.Receive(ctx)

	assert.NoError(err)
	assert.Contains(frame, DPBattery)
	assert.Contains(frame, DPMachineState)
}

func TestSimulatorReactsToCommands(t *testing.T) {

	assert := assert.New(t)

	sim := NewSimulatedMower(zap.NewNop())
	sim.PushInterval = time.Hour
	assert.NoError(sim.Open())
	defer func() {
		assert.NoError(sim.Close())
	}()

	assert.NoError(sim.Set(DPCommand, CommandStartMowing))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	frame, err := sim.Receive(ctx)

	assert.NoError(err)
	assert.Equal(string(StateMowing), frame[DPMachineState])
}

func TestSimulatorRejectsUnknownDatapoint(t *testing.T) {

	assert := assert.New(t)

	sim := NewSimulatedMower(zap.NewNop())
	assert.NoError(sim.Open())
	defer func() {
		assert.NoError(sim.Close())
	}()

	assert.Error(sim.Set("42", 1))
}

func TestSimulatorClosedTransport(t *testing.T) {

	assert := assert.New(t)

	sim := NewSimulatedMower(zap.NewNop())
	assert.NoError(sim.Open())
	assert.NoError(sim.Close())

	_, err := sim.Status()
	assert.ErrorIs(err, ErrClosed)
	_, err = sim.Receive(context.Background())
	assert.ErrorIs(err, ErrClosed)
}

func TestSessionOverSimulator(t *testing.T) {

	assert := assert.New(t)

	sim := NewSimulatedMower(zap.NewNop())
	sim.PushInterval = 50 * time.Millisecond
	session := NewSession(sim, zap.NewNop())

	assert.NoError(session.Connect())
	assert.Equal(Protocol34, session.Version())
	assert.Equal(87, session.State().BatteryPercent)

	assert.NoError(session.Start(false))
	assert.NoError(session.Poll())
	assert.Equal(StateMowing, session.State().State)

	assert.NoError(session.SetMowTime(4))
	assert.NoError(session.Poll())
	assert.Equal(4, session.State().MowTimeHours)

	assert.NoError(session.Close())
}
