package moebot

import (
	"strconv"
	"strings"
)

// Error names by bitmap bit, bit 0 first.
var machineErrorNames = []string{
	"FAULT_LEAN",
	"FAULT_TOO_STEEP",
	"NO_SIGNAL",
	"L_MOTOR_ERROR",
	"R_MOTOR_ERROR",
	"BATTERY_VOL_HIGH",
	"CHARGE_OVERCURRENT",
	"CHARGE_OVERVOLTAGE",
	"CHARGE_OVERTEMP",
	"BATTERY_DAMAGE",
	"BATTERY_LOW",
	"DISCHARGE_CURRENT",
	"DISCHARGE_TEMP",
	"UNEXPECTED_LOW",
	"EXPECTED_ERROR",
	"IMU_INVALID",
	"EMS_INVALID",
	"RAIN_INVALID",
	"HALL_INVALID",
	"STEEP_OVER_3S",
	"OUTSIDE_AREA",
	"LIFTED",
	"TRAPPED",
	"B_MOTOR_ERROR",
	"OVERTURN",
	"MOTOR_OVERCURRENT",
	"MOTOR_HALL",
	"MOTOR_DISCONNECT",
	"EMS_DISCONNECT",
	"MOTOR_ERROR",
}

// DecodeErrors expands the machine error bitmap into error names in
// ascending bit order. Values that cannot be read as an integer decode to
// no errors. Bits above the known table are ignored.
func DecodeErrors(value any) []string {
	code, ok := asInt(value)
	if !ok {
		return nil
	}
	var names []string
	for bit, name := range machineErrorNames {
		if code&(1<<bit) != 0 {
			names = append(names, name)
		}
	}
	return names
}

// DecodePassword renders a numeric device password in keypad letter form.
// Digits 1 to 4 map to the A to D buttons, other digits pass through.
func DecodePassword(value any) string {
	n, ok := asInt(value)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, r := range strconv.Itoa(n) {
		switch r {
		case '1':
			b.WriteRune('A')
		case '2':
			b.WriteRune('B')
		case '3':
			b.WriteRune('C')
		case '4':
			b.WriteRune('D')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// asInt coerces the loosely typed values found in DPS frames.
func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint32:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func asBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case float64:
		return v != 0, true
	case string:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v)))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}
