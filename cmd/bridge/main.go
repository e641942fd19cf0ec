package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "moebot2mqtt/internal/adapter/actor"
	"moebot2mqtt/internal/config"
	"moebot2mqtt/internal/core/actor"
	"moebot2mqtt/internal/server"
	"moebot2mqtt/internal/util/actorutil"
	"moebot2mqtt/pkg/moebot"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// init Device actor provider
	deviceProv, err := deviceActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, deviceProv, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	// Stopping the tree closes the device session and flushes the MQTT
	// offline state before the process exits.
	if err := ctx.StopFuture(pid).Wait(); err != nil {
		log.Printf("actor tree stop timed out: %v", err)
	}
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => MOEBOT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("MOEBOT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("moebot")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.Supervisor.CheckIntervalMillis < 1000 {
		return nil, errors.New("config param supervisor.check_interval_millis should be >= 1000ms")
	}
	if cfg.Supervisor.StaleAfterMillis <= cfg.Supervisor.CheckIntervalMillis {
		return nil, errors.New("config param supervisor.stale_after_millis should be > supervisor.check_interval_millis")
	}
	if cfg.Supervisor.ReconnectPauseMillis < 100 {
		return nil, errors.New("config param supervisor.reconnect_pause_millis should be >= 100ms")
	}
	if !cfg.Device.Simulate {
		if cfg.Device.Id == "" || cfg.Device.Host == "" || cfg.Device.LocalKey == "" {
			return nil, errors.New("config params device.id, device.host and device.local_key are required unless device.simulate is enabled")
		}
	}

	return &cfg, nil
}

func deviceActorProvider(cfg *config.Config, logger *zap.Logger) (actor.DeviceActorProvider, error) {

	transportProv, err := transportProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	return func(es *eventstream.EventStream) *adactor.DeviceActor {
		return adactor.NewDeviceActor(transportProv, es, logger)
	}, nil
}

// transportProvider selects the device link. Only the built-in simulator is
// wired here, a real mower needs a moebot.Transport for its LAN protocol
// plugged in at this point.
func transportProvider(cfg *config.Config, logger *zap.Logger) (moebot.TransportProvider, error) {
	if cfg.Device.Simulate {
		return func() (moebot.Transport, error) {
			return moebot.NewSimulatedMower(logger), nil
		}, nil
	}
	return nil, fmt.Errorf("no transport wired for device %s: set device.simulate=true or plug a moebot.TransportProvider into main", cfg.Device.Id)
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "moebot")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("supervisor.check_interval_millis", 10000)
	viper.SetDefault("supervisor.stale_after_millis", 60000)
	viper.SetDefault("supervisor.reconnect_pause_millis", 2000)
	viper.SetDefault("supervisor.maintenance_interval_millis", 900000)
	viper.SetDefault("influxdb.enabled", false)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.Device.LocalKey = "*redacted*"
	cfg.Influx.Token = "*redacted*"
	slog.Info("Using", "config", cfg)
}
