package moebot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDPSFullFrame(t *testing.T) {

	assert := assert.New(t)

	var state DeviceState
	now := time.Now()
	state.applyDPS(DPS{
		DPBattery:        76,
		DPMachineState:   "MOWING",
		DPMachineError:   0b11,
		DPMowInRain:      true,
		DPMowTime:        8,
		DPZones:          "10,25,20,25,30,25,40,25,0,0",
		DPPassword:       1234,
		DPEmergencyState: "",
		DPWorkMode:       "AutoMode",
	}, now)

	assert.True(state.Online)
	assert.Equal(76, state.BatteryPercent)
	assert.Equal(StateMowing, state.State)
	assert.Equal([]string{"FAULT_LEAN", "FAULT_TOO_STEEP"}, state.MachineErrors)
	assert.True(state.MowInRain)
	assert.Equal(8, state.MowTimeHours)
	assert.Equal(Zone{DistanceMeters: 10, WorkRatioPercent: 25}, state.Zones[0])
	assert.Equal(Zone{DistanceMeters: 0, WorkRatioPercent: 0}, state.Zones[4])
	assert.NotNil(state.Password.Numeric)
	assert.Equal(1234, *state.Password.Numeric)
	assert.Equal("ABCD", state.Password.Letters)
	assert.Equal("AutoMode", state.WorkMode)
	assert.Equal(now, state.LastUpdate)
}

func TestApplyDPSPartialFrameKeepsRest(t *testing.T) {

	assert := assert.New(t)

	var state DeviceState
	state.applyDPS(DPS{DPBattery: 90, DPMachineState: "STANDBY"}, time.Now())
	state.applyDPS(DPS{DPBattery: 89}, time.Now())

	assert.Equal(89, state.BatteryPercent)
	assert.Equal(StateStandby, state.State)
}

func TestApplyDPSMalformedZonesKeepOld(t *testing.T) {

	assert := assert.New(t)

	var state DeviceState
	state.applyDPS(DPS{DPZones: "10,25,20,25,30,25,40,25,50,25"}, time.Now())
	state.applyDPS(DPS{DPZones: "1,2,3"}, time.Now())
	state.applyDPS(DPS{DPZones: "a,b,c,d,e,f,g,h,i,j"}, time.Now())

	assert.Equal(Zone{DistanceMeters: 10, WorkRatioPercent: 25}, state.Zones[0])
	assert.Equal(Zone{DistanceMeters: 50, WorkRatioPercent: 25}, state.Zones[4])
}

func TestParseZones(t *testing.T) {

	assert := assert.New(t)

	zones, ok := parseZones("50,20,100,20,150,20,200,20,250,20")
	assert.True(ok)
	assert.Equal(Zone{DistanceMeters: 250, WorkRatioPercent: 20}, zones[4])

	_, ok = parseZones("50,20")
	assert.False(ok)
}

func TestCloneIsolatesSnapshot(t *testing.T) {

	assert := assert.New(t)

	var state DeviceState
	state.applyDPS(DPS{DPMachineError: 1, DPPassword: 105}, time.Now())

	snapshot := state.clone()
	state.MachineErrors[0] = "mutated"
	*state.Password.Numeric = 0

	assert.Equal([]string{"FAULT_LEAN"}, snapshot.MachineErrors)
	assert.Equal(105, *snapshot.Password.Numeric)
}
