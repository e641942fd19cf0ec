package events

import (
	"testing"
	"time"

	"moebot2mqtt/internal/core/domain"
	"moebot2mqtt/pkg/moebot"

	"github.com/stretchr/testify/assert"
)

func statIds(t *testing.T, events []any) []string {
	t.Helper()
	var ids []string
	for _, event := range events {
		id, _, ok := RenderStatValue(event)
		assert.True(t, ok)
		ids = append(ids, id)
	}
	return ids
}

func TestDeviceStateToStatUpdatesOrder(t *testing.T) {

	assert := assert.New(t)

	password := 1234
	st := moebot.DeviceState{
		Online:         true,
		BatteryPercent: 81,
		State:          moebot.StateStandby,
		MowTimeHours:   6,
		WorkMode:       "AutoMode",
		Password:       moebot.Password{Numeric: &password, Letters: "ABCD"},
		LastUpdate:     time.Now(),
	}

	ids := statIds(t, DeviceStateToStatUpdates(st))

	assert.Equal([]string{
		"battery", "state", "emergency_state", "mow_in_rain", "mow_time",
		"work_mode", "online",
		"zone1_distance", "zone1_ratio", "zone2_distance", "zone2_ratio",
		"zone3_distance", "zone3_ratio", "zone4_distance", "zone4_ratio",
		"zone5_distance", "zone5_ratio",
		"machine_errors", "device_password",
	}, ids)
}

func TestDeviceStateToStatUpdatesSkipsUnknownPassword(t *testing.T) {

	assert := assert.New(t)

	ids := statIds(t, DeviceStateToStatUpdates(moebot.DeviceState{}))

	assert.NotContains(ids, STAT_ID_DEVICE_PASSWORD)
	assert.Len(ids, 18)
}

func TestEmergencyStateOnlyInEmergency(t *testing.T) {

	assert := assert.New(t)

	st := moebot.DeviceState{
		State:          moebot.StateMowing,
		EmergencyState: "LIFTED",
	}
	for _, event := range DeviceStateToStatUpdates(st) {
		id, value, _ := RenderStatValue(event)
		if id == STAT_ID_EMERGENCY_STATE {
			assert.Equal("", value)
		}
	}

	st.State = moebot.StateEmergency
	for _, event := range DeviceStateToStatUpdates(st) {
		id, value, _ := RenderStatValue(event)
		if id == STAT_ID_EMERGENCY_STATE {
			assert.Equal("LIFTED", value)
		}
	}
}

func TestMachineErrorsRendering(t *testing.T) {

	assert := assert.New(t)

	_, value, ok := RenderStatValue(MachineErrorsStatUpdate(nil))
	assert.True(ok)
	assert.Equal("None", value)

	_, value, _ = RenderStatValue(MachineErrorsStatUpdate([]string{"LIFTED", "TRAPPED"}))
	assert.Equal("LIFTED,TRAPPED", value)
}

func TestDevicePasswordRendering(t *testing.T) {

	assert := assert.New(t)

	_, value, _ := RenderStatValue(DevicePasswordStatUpdate(moebot.Password{}))
	assert.Equal("Unknown", value)

	numeric := 105
	_, value, _ = RenderStatValue(DevicePasswordStatUpdate(moebot.Password{Numeric: &numeric, Letters: "A05"}))
	assert.Equal("A05", value)
}

func TestRenderStatValueCanonicalForms(t *testing.T) {

	assert := assert.New(t)

	id, value, ok := RenderStatValue(domain.BoolStatUpdateEvent{
		StatUpdateEventMixIn: domain.StatUpdateEventMixIn{Id: STAT_ID_MOW_IN_RAIN},
		Value:                true,
	})
	assert.True(ok)
	assert.Equal(STAT_ID_MOW_IN_RAIN, id)
	assert.Equal("true", value)

	_, value, _ = RenderStatValue(domain.IntStatUpdateEvent{
		StatUpdateEventMixIn: domain.StatUpdateEventMixIn{Id: STAT_ID_BATTERY},
		Value:                93,
	})
	assert.Equal("93", value)

	_, _, ok = RenderStatValue(struct{}{})
	assert.False(ok)
}

func TestMowerDiscoveryEntities(t *testing.T) {

	assert := assert.New(t)

	device := MowerDevice("bf1234567890abcd")
	sensors := MowerSensors(device)
	switches := MowerSwitches(device)
	numbers := MowerInputNumbers(device)

	assert.Len(sensors, 16)
	assert.Len(switches, 1)
	assert.Len(numbers, 1)
	assert.Equal(STAT_ID_MOW_IN_RAIN, switches[0].Id)
	assert.Equal(float64(99), numbers[0].Max)

	ids := map[string]bool{}
	for _, sensor := range sensors {
		assert.NotEmpty(sensor.UniqueId)
		assert.False(ids[sensor.UniqueId], "unique ids must not repeat")
		ids[sensor.UniqueId] = true
	}
}
