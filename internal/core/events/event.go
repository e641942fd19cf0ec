package events

import (
	"fmt"
	"strconv"
	"strings"

	. "moebot2mqtt/internal/core/domain"
	"moebot2mqtt/pkg/moebot"
)

const (
	STAT_ID_BRIDGE_STATE    = "bridge"
	STAT_ID_BATTERY         = "battery"
	STAT_ID_STATE           = "state"
	STAT_ID_EMERGENCY_STATE = "emergency_state"
	STAT_ID_MOW_IN_RAIN     = "mow_in_rain"
	STAT_ID_MOW_TIME        = "mow_time"
	STAT_ID_WORK_MODE       = "work_mode"
	STAT_ID_ONLINE          = "online"
	STAT_ID_MACHINE_ERRORS  = "machine_errors"
	STAT_ID_DEVICE_PASSWORD = "device_password"

	MACHINE_ERRORS_NONE = "None"
	PASSWORD_UNKNOWN    = "Unknown"
)

func ZoneDistanceStatId(zone int) string {
	return fmt.Sprintf("zone%d_distance", zone)
}

func ZoneRatioStatId(zone int) string {
	return fmt.Sprintf("zone%d_ratio", zone)
}

// DeviceStateToStatUpdates renders the full stat list for a device state in
// publish order. device_password is included only when the device has
// reported a numeric password.
func DeviceStateToStatUpdates(st moebot.DeviceState) []any {
	var events []any

	events = append(events, IntStatUpdateEvent{
		StatUpdateEventMixIn: StatUpdateEventMixIn{
			Id: STAT_ID_BATTERY,
		},
		Value: st.BatteryPercent,
	})
	events = append(events, MachineStateStatUpdate(st.State))

	// emergency detail only carries a value while the mower is in EMERGENCY
	emergency := ""
	if st.State == moebot.StateEmergency {
		emergency = st.EmergencyState
	}
	events = append(events, TextStatUpdateEvent{
		StatUpdateEventMixIn: StatUpdateEventMixIn{
			Id: STAT_ID_EMERGENCY_STATE,
		},
		Value: emergency,
	})

	events = append(events, MowInRainStatUpdate(st.MowInRain))
	events = append(events, MowTimeStatUpdate(st.MowTimeHours))
	events = append(events, TextStatUpdateEvent{
		StatUpdateEventMixIn: StatUpdateEventMixIn{
			Id: STAT_ID_WORK_MODE,
		},
		Value: st.WorkMode,
	})
	events = append(events, BoolStatUpdateEvent{
		StatUpdateEventMixIn: StatUpdateEventMixIn{
			Id: STAT_ID_ONLINE,
		},
		Value: st.Online,
	})

	for i, zone := range st.Zones {
		events = append(events, IntStatUpdateEvent{
			StatUpdateEventMixIn: StatUpdateEventMixIn{
				Id: ZoneDistanceStatId(i + 1),
			},
			Value: zone.DistanceMeters,
		})
		events = append(events, IntStatUpdateEvent{
			StatUpdateEventMixIn: StatUpdateEventMixIn{
				Id: ZoneRatioStatId(i + 1),
			},
			Value: zone.WorkRatioPercent,
		})
	}

	events = append(events, MachineErrorsStatUpdate(st.MachineErrors))

	if st.Password.Numeric != nil {
		events = append(events, TextStatUpdateEvent{
			StatUpdateEventMixIn: StatUpdateEventMixIn{
				Id: STAT_ID_DEVICE_PASSWORD,
			},
			Value: st.Password.Letters,
		})
	}

	return events
}

func MachineStateStatUpdate(state moebot.MachineState) any {
	return TextStatUpdateEvent{
		StatUpdateEventMixIn: StatUpdateEventMixIn{
			Id: STAT_ID_STATE,
		},
		Value: string(state),
	}
}

func MowTimeStatUpdate(hours int) any {
	return IntStatUpdateEvent{
		StatUpdateEventMixIn: StatUpdateEventMixIn{
			Id: STAT_ID_MOW_TIME,
		},
		Value: hours,
	}
}

func MowInRainStatUpdate(enabled bool) any {
	return BoolStatUpdateEvent{
		StatUpdateEventMixIn: StatUpdateEventMixIn{
			Id: STAT_ID_MOW_IN_RAIN,
		},
		Value: enabled,
	}
}

// MachineErrorsStatUpdate renders the error list, "None" when clear.
func MachineErrorsStatUpdate(errors []string) any {
	value := MACHINE_ERRORS_NONE
	if len(errors) > 0 {
		value = strings.Join(errors, ",")
	}
	return TextStatUpdateEvent{
		StatUpdateEventMixIn: StatUpdateEventMixIn{
			Id: STAT_ID_MACHINE_ERRORS,
		},
		Value: value,
	}
}

// DevicePasswordStatUpdate renders the password in letter form, "Unknown"
// when the device has not reported one.
func DevicePasswordStatUpdate(password moebot.Password) any {
	value := PASSWORD_UNKNOWN
	if password.Numeric != nil {
		value = password.Letters
	}
	return TextStatUpdateEvent{
		StatUpdateEventMixIn: StatUpdateEventMixIn{
			Id: STAT_ID_DEVICE_PASSWORD,
		},
		Value: value,
	}
}

// RenderStatValue maps a stat update event to its stat id and canonical
// string form. Booleans render lowercase, integers base 10.
func RenderStatValue(event any) (string, string, bool) {
	switch ev := event.(type) {
	case TextStatUpdateEvent:
		return ev.Id, ev.Value, true
	case IntStatUpdateEvent:
		return ev.Id, strconv.Itoa(ev.Value), true
	case BoolStatUpdateEvent:
		return ev.Id, strconv.FormatBool(ev.Value), true
	case BridgeStateUpdateEvent:
		return ev.Id, strconv.FormatBool(ev.Value), true
	default:
		return "", "", false
	}
}
