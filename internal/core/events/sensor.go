package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	. "moebot2mqtt/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

const (
	STATE_CLASS_MEASUREMENT   = "measurement"
	DEVICE_CLASS_BATTERY      = "battery"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	DEVICE_CLASS_DURATION     = "duration"
	ENTITY_CLASS_DIAGNOSTIC   = "diagnostic"
	ENTITY_CLASS_CONFIG       = "config"
	SENSOR_TYPE_SENSOR        = "sensor"
	SENSOR_TYPE_BINARY        = "binary_sensor"
	INPUT_NUMBER_MODE_BOX     = "box"
)

// BridgeDevice is the Home Assistant device representing the bridge process
// itself.
func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("moebot_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "moebot2mqtt",
		Model:        "MoeBot2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("MoeBot2MQTT %s", md5HashShort(baseTopic)),
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             STAT_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, STAT_ID_BRIDGE_STATE),
	})

	return sensors
}

// IdDevice strips a device down to its identifier for repeated discovery
// payloads.
func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

// MowerDevice is the Home Assistant device the bridge announces. The bridge
// version stands in for firmware, the local protocol does not expose one.
func MowerDevice(deviceId string) Device {
	return Device{
		Id:           fmt.Sprintf("moebot_%s", md5HashShort(deviceId)),
		Manufacturer: "MoeBot",
		Model:        "Robot Lawn Mower",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("MoeBot %s", md5HashShort(deviceId)),
	}
}

func MowerSensors(mowerDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Battery
	sensors = append(sensors, GenericSensor{
		Device:            mowerDevice,
		Id:                STAT_ID_BATTERY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(mowerDevice.Id, STAT_ID_BATTERY),
	})

	// Machine state
	sensors = append(sensors, GenericSensor{
		Device:     mowerDevice,
		Id:         STAT_ID_STATE,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "State",
		Icon:       "mdi:robot-mower",
		UniqueId:   uniqueId(mowerDevice.Id, STAT_ID_STATE),
	})

	// Emergency detail
	sensors = append(sensors, GenericSensor{
		Device:         mowerDevice,
		Id:             STAT_ID_EMERGENCY_STATE,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Emergency state",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:alert",
		UniqueId:       uniqueId(mowerDevice.Id, STAT_ID_EMERGENCY_STATE),
	})

	// Work mode
	sensors = append(sensors, GenericSensor{
		Device:         mowerDevice,
		Id:             STAT_ID_WORK_MODE,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Work mode",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(mowerDevice.Id, STAT_ID_WORK_MODE),
	})

	// Machine errors
	sensors = append(sensors, GenericSensor{
		Device:         mowerDevice,
		Id:             STAT_ID_MACHINE_ERRORS,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Machine errors",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:alert-circle-outline",
		UniqueId:       uniqueId(mowerDevice.Id, STAT_ID_MACHINE_ERRORS),
	})

	// Online
	sensors = append(sensors, GenericSensor{
		Device:      mowerDevice,
		Id:          STAT_ID_ONLINE,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        "Online",
		DeviceClass: DEVICE_CLASS_CONNECTIVITY,
		PayloadOn:   "true",
		PayloadOff:  "false",
		UniqueId:    uniqueId(mowerDevice.Id, STAT_ID_ONLINE),
	})

	// Zones, hidden by default
	for zone := 1; zone <= 5; zone++ {
		sensors = append(sensors, GenericSensor{
			Device:            mowerDevice,
			Id:                ZoneDistanceStatId(zone),
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("Zone %d distance", zone),
			EntityCategory:    ENTITY_CLASS_DIAGNOSTIC,
			UnitOfMeasurement: "m",
			EnabledByDefault:  optionalBool(false),
			UniqueId:          uniqueId(mowerDevice.Id, ZoneDistanceStatId(zone)),
		})
		sensors = append(sensors, GenericSensor{
			Device:            mowerDevice,
			Id:                ZoneRatioStatId(zone),
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("Zone %d work ratio", zone),
			EntityCategory:    ENTITY_CLASS_DIAGNOSTIC,
			UnitOfMeasurement: "%",
			EnabledByDefault:  optionalBool(false),
			UniqueId:          uniqueId(mowerDevice.Id, ZoneRatioStatId(zone)),
		})
	}

	return sensors
}

func MowerSwitches(mowerDevice Device) []GenericSwitch {
	return []GenericSwitch{
		{
			Device:   mowerDevice,
			Id:       STAT_ID_MOW_IN_RAIN,
			Name:     "Mow in rain",
			Icon:     "mdi:weather-rainy",
			UniqueId: uniqueId(mowerDevice.Id, STAT_ID_MOW_IN_RAIN),
		},
	}
}

func MowerInputNumbers(mowerDevice Device) []GenericInputNumber {
	return []GenericInputNumber{
		{
			Device:   mowerDevice,
			Id:       STAT_ID_MOW_TIME,
			Name:     "Mow time",
			Icon:     "mdi:clock-outline",
			Min:      1,
			Max:      99,
			Step:     1,
			Mode:     INPUT_NUMBER_MODE_BOX,
			UniqueId: uniqueId(mowerDevice.Id, STAT_ID_MOW_TIME),
		},
	}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	return md5Hash(text)[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
