package moebot

import (
	"strconv"
	"strings"
	"time"
)

// MachineState values reported on the machine state datapoint. Values not in
// this list pass through verbatim.
type MachineState string

const (
	StateStandby                 MachineState = "STANDBY"
	StateMowing                  MachineState = "MOWING"
	StateCharging                MachineState = "CHARGING"
	StateEmergency               MachineState = "EMERGENCY"
	StateLocked                  MachineState = "LOCKED"
	StatePaused                  MachineState = "PAUSED"
	StatePark                    MachineState = "PARK"
	StateChargingWithTaskSuspend MachineState = "CHARGING_WITH_TASK_SUSPEND"
	StateFixedMowing             MachineState = "FIXED_MOWING"
)

// Zone is one of the five mowing zones along the boundary wire.
type Zone struct {
	DistanceMeters   int
	WorkRatioPercent int
}

// Zones always holds exactly five entries, unused zones stay zero.
type Zones [5]Zone

// Password is the device password in numeric and keypad letter form.
// Numeric is nil until the device reports one.
type Password struct {
	Numeric *int
	Letters string
}

// DeviceState is the decoded view of the mower.
type DeviceState struct {
	Online         bool
	BatteryPercent int
	State          MachineState
	EmergencyState string
	MowInRain      bool
	MowTimeHours   int
	WorkMode       string
	Zones          Zones
	MachineErrors  []string
	Password       Password
	LastUpdate     time.Time
}

func (s DeviceState) clone() DeviceState {
	c := s
	if s.MachineErrors != nil {
		c.MachineErrors = append([]string(nil), s.MachineErrors...)
	}
	if s.Password.Numeric != nil {
		n := *s.Password.Numeric
		c.Password.Numeric = &n
	}
	return c
}

// applyDPS merges a raw frame. Datapoints absent from the frame keep their
// previous value. Any frame marks the device online and stamps LastUpdate.
func (s *DeviceState) applyDPS(dps DPS, now time.Time) {
	for dp, value := range dps {
		switch dp {
		case DPBattery:
			if v, ok := asInt(value); ok {
				s.BatteryPercent = v
			}
		case DPMachineState:
			if v, ok := value.(string); ok {
				s.State = MachineState(v)
			}
		case DPMachineError:
			s.MachineErrors = DecodeErrors(value)
		case DPMowInRain:
			if v, ok := asBool(value); ok {
				s.MowInRain = v
			}
		case DPMowTime:
			if v, ok := asInt(value); ok {
				s.MowTimeHours = v
			}
		case DPZones:
			if v, ok := value.(string); ok {
				if zones, ok := parseZones(v); ok {
					s.Zones = zones
				}
			}
		case DPPassword:
			if n, ok := asInt(value); ok {
				num := n
				s.Password = Password{Numeric: &num, Letters: DecodePassword(value)}
			}
		case DPEmergencyState:
			if v, ok := value.(string); ok {
				s.EmergencyState = v
			}
		case DPWorkMode:
			if v, ok := value.(string); ok {
				s.WorkMode = v
			}
		}
	}
	s.Online = true
	s.LastUpdate = now
}

// parseZones parses the zone datapoint string
// "d1,r1,d2,r2,d3,r3,d4,r4,d5,r5". Malformed strings leave zones untouched.
func parseZones(raw string) (Zones, bool) {
	var zones Zones
	parts := strings.Split(raw, ",")
	if len(parts) != len(zones)*2 {
		return zones, false
	}
	for i := range zones {
		distance, err := strconv.Atoi(strings.TrimSpace(parts[i*2]))
		if err != nil {
			return zones, false
		}
		ratio, err := strconv.Atoi(strings.TrimSpace(parts[i*2+1]))
		if err != nil {
			return zones, false
		}
		zones[i] = Zone{DistanceMeters: distance, WorkRatioPercent: ratio}
	}
	return zones, true
}
