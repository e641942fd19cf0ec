package util

import (
	"moebot2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Device: config.DeviceConfig{
			Id:       "bf1234567890abcd",
			Host:     "-.-.-.-",
			LocalKey: "0123456789abcdef",
			Simulate: true,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "moebot",
		},
		Supervisor: config.SupervisorConfig{
			CheckIntervalMillis:       10000,
			StaleAfterMillis:          60000,
			ReconnectPauseMillis:      2000,
			MaintenanceIntervalMillis: 900000,
		},
		Port: 8080,
	}
}
