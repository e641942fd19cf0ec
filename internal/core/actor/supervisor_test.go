package actor

import (
	"context"
	"testing"
	"time"

	adactor "moebot2mqtt/internal/adapter/actor"
	"moebot2mqtt/internal/config"
	"moebot2mqtt/internal/core/domain"
	"moebot2mqtt/internal/util/actorutil"
	"moebot2mqtt/pkg/moebot"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type compactRecorderActor struct {
	compacts chan domain.CompactStatCacheRequest
}

func (a *compactRecorderActor) Receive(ctx actor.Context) {
	if msg, ok := ctx.Message().(domain.CompactStatCacheRequest); ok {
		a.compacts <- msg
	}
}

func supervisorTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Supervisor: config.SupervisorConfig{
			CheckIntervalMillis:       300,
			StaleAfterMillis:          60000,
			ReconnectPauseMillis:      100,
			MaintenanceIntervalMillis: 0,
		},
	}
}

func spawnSupervisedDevice(context *actor.RootContext, transport *moebot.TestTransport, cfg *config.Config, logger *zap.Logger) (*actor.PID, *actor.PID, chan domain.CompactStatCacheRequest) {
	es := eventstream.EventStream{}
	provider := func() (moebot.Transport, error) { return transport, nil }

	devicePID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewDeviceActor(provider, &es, logger)
	}))

	compacts := make(chan domain.CompactStatCacheRequest, 16)
	publisherPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return &compactRecorderActor{compacts: compacts}
	}))

	supervisorPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewSupervisorActor(cfg, devicePID, publisherPID, logger)
	}))

	return devicePID, supervisorPID, compacts
}

func TestSupervisorConnectsAndMaintains(t *testing.T) {

	assert := assert.New(t)

	transport := moebot.NewTestTransport()

	cfg := supervisorTestConfig()
	cfg.Supervisor.MaintenanceIntervalMillis = 200

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	devicePID, supervisorPID, compacts := spawnSupervisedDevice(context, transport, &cfg, logger)

	time.Sleep(1500 * time.Millisecond)

	hcr, err := healthCheck(context, supervisorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(hcr.Healthy, "supervisor healthy")
	assert.Equal("healthy", hcr.State, "supervisor state")

	result, err := context.RequestFuture(devicePID, domain.DeviceHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	health := result.(domain.DeviceHealthResponse)
	assert.True(health.HasSession, "device session")
	assert.True(health.ListenerAlive, "push listener")

	assert.Equal(1, transport.Opens(), "single connect")
	assert.GreaterOrEqual(len(compacts), 2, "maintenance compaction requests")

	context.Stop(supervisorPID)
	context.Stop(devicePID)

	as.Shutdown()
}

func TestSupervisorReconnectsDeadListener(t *testing.T) {

	assert := assert.New(t)

	transport := moebot.NewTestTransport()
	// the first session's push listener dies immediately, the second one
	// behaves
	transport.ReceiveFunc = func(ctx context.Context) (moebot.DPS, error) {
		if transport.Closes() == 0 {
			return nil, moebot.ErrClosed
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}

	cfg := supervisorTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	devicePID, supervisorPID, _ := spawnSupervisedDevice(context, transport, &cfg, logger)

	time.Sleep(2 * time.Second)

	hcr, err := healthCheck(context, supervisorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal("healthy", hcr.State, "supervisor state after reconnect")

	assert.Equal(2, transport.Opens(), "one reconnect")
	assert.Equal(1, transport.Closes(), "one teardown")

	result, err := context.RequestFuture(devicePID, domain.DeviceHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	health := result.(domain.DeviceHealthResponse)
	assert.True(health.HasSession, "device session")
	assert.True(health.ListenerAlive, "push listener alive after reconnect")

	context.Stop(supervisorPID)
	context.Stop(devicePID)

	as.Shutdown()
}

func TestSupervisorReconnectsStaleSession(t *testing.T) {

	assert := assert.New(t)

	transport := moebot.NewTestTransport()
	// the first session never pushes so its state goes stale, the second
	// one pushes a frame every 200ms
	transport.ReceiveFunc = func(ctx context.Context) (moebot.DPS, error) {
		if transport.Closes() == 0 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
			return moebot.DPS{moebot.DPBattery: 90}, nil
		}
	}

	cfg := supervisorTestConfig()
	cfg.Supervisor.StaleAfterMillis = 700

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	devicePID, supervisorPID, _ := spawnSupervisedDevice(context, transport, &cfg, logger)

	time.Sleep(2500 * time.Millisecond)

	hcr, err := healthCheck(context, supervisorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal("healthy", hcr.State, "supervisor state after reconnect")

	// stale state must trigger exactly one reconnect, pushes keep the
	// second session fresh
	assert.Equal(2, transport.Opens(), "one reconnect")
	assert.Equal(1, transport.Closes(), "one teardown")

	context.Stop(supervisorPID)
	context.Stop(devicePID)

	as.Shutdown()
}
