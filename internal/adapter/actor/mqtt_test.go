package actor

import (
	"fmt"
	"net"
	"testing"
	"time"

	"moebot2mqtt/internal/core/domain"
	"moebot2mqtt/internal/core/events"
	"moebot2mqtt/internal/util"
	"moebot2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	result, err = context.RequestFuture(pid, domain.PublishStatUpdateRequest{
		Event:  events.MowTimeStatUpdate(6),
		Retain: true,
	}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	statResp, ok := result.(domain.PublishStatUpdateResponse)
	assert.True(t, ok)
	assert.False(t, statResp.HasResponseError())

	result, err = context.RequestFuture(pid, domain.PublishMessageRequest{
		Topic:   "moebot/stats/battery",
		Payload: "93",
	}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	msgResp, ok := result.(domain.PublishMessageResponse)
	assert.True(t, ok)
	assert.False(t, msgResp.HasResponseError())

	context.Stop(pid)

	time.Sleep(1 * time.Second)

	as.Shutdown()
}

func TestMQTTActorBrokerRoundTrip(t *testing.T) {

	assert := assert.New(t)

	port, broker := startActorTestBroker(t)
	defer broker.Close()

	cfg := util.LoadTestConfig()
	cfg.MQTT.Port = port

	logger := zap.Must(zap.NewDevelopment())

	bridgeStates := make(chan string, 8)
	require.NoError(t, broker.Subscribe("moebot/bridge/state", 1,
		func(cl *mochi.Client, sub packets.Subscription, pk packets.Packet) {
			bridgeStates <- string(pk.Payload)
		}))

	stats := make(chan string, 8)
	require.NoError(t, broker.Subscribe("moebot/stats/mow_time", 2,
		func(cl *mochi.Client, sub packets.Subscription, pk packets.Packet) {
			stats <- string(pk.Payload)
		}))

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewMQTTActor(&cfg, logger) })
	pid := context.Spawn(props)

	select {
	case state := <-bridgeStates:
		assert.Equal("online", state, "bridge online after connect")
	case <-time.After(10 * time.Second):
		t.Fatal("bridge state not published")
	}

	result, err := context.RequestFuture(pid, domain.PublishStatUpdateRequest{
		Event:  events.MowTimeStatUpdate(6),
		Retain: true,
	}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	statResp := result.(domain.PublishStatUpdateResponse)
	assert.False(statResp.HasResponseError(), "stat publish error")

	select {
	case payload := <-stats:
		assert.Equal("6", payload, "stat payload")
	case <-time.After(5 * time.Second):
		t.Fatal("stat not published")
	}

	context.Stop(pid)

	select {
	case state := <-bridgeStates:
		assert.Equal("offline", state, "bridge offline after stop")
	case <-time.After(5 * time.Second):
		t.Fatal("bridge offline not published")
	}

	as.Shutdown()
}

func startActorTestBroker(t *testing.T) (int, *mochi.Server) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	server := mochi.New(&mochi.Options{
		InlineClient: true,
	})
	require.NoError(t, server.AddHook(new(auth.AllowHook), nil))

	tcp := listeners.NewTCP(listeners.Config{ID: "ta1", Address: fmt.Sprintf("127.0.0.1:%d", port)})
	require.NoError(t, server.AddListener(tcp))

	go func() {
		if err := server.Serve(); err != nil {
			t.Log(err)
		}
	}()

	return port, server
}
