package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Device   DeviceConfig `mapstructure:"device"`
	MQTT     MQTTConfig   `mapstructure:"mqtt"`

	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Influx     InfluxConfig     `mapstructure:"influxdb"`
	Port       uint             `mapstructure:"port"`
	HttpLog    bool             `mapstructure:"http_log"`
}

type DeviceConfig struct {
	Id       string
	Host     string
	LocalKey string `mapstructure:"local_key"`
	// Simulate replaces the device link with the built-in mower simulator.
	Simulate bool
}

type SupervisorConfig struct {
	CheckIntervalMillis       uint32 `mapstructure:"check_interval_millis"`
	StaleAfterMillis          uint32 `mapstructure:"stale_after_millis"`
	ReconnectPauseMillis      uint32 `mapstructure:"reconnect_pause_millis"`
	MaintenanceIntervalMillis uint32 `mapstructure:"maintenance_interval_millis"`
}

type InfluxConfig struct {
	Enabled bool
	URL     string
	Token   string
	Org     string
	Bucket  string
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
