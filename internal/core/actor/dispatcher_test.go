package actor

import (
	"testing"
	"time"

	adactor "moebot2mqtt/internal/adapter/actor"
	"moebot2mqtt/internal/core/domain"
	"moebot2mqtt/internal/core/events"
	"moebot2mqtt/internal/mqtt"
	"moebot2mqtt/internal/util/actorutil"
	"moebot2mqtt/pkg/moebot"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturingPublisherActor struct {
	requests chan domain.PublishStatsRequest
}

func (a *capturingPublisherActor) Receive(ctx actor.Context) {
	if msg, ok := ctx.Message().(domain.PublishStatsRequest); ok {
		a.requests <- msg
	}
}

func statsOf(t *testing.T, requests chan domain.PublishStatsRequest) map[string]string {
	t.Helper()
	stats := map[string]string{}
	for {
		select {
		case req := <-requests:
			for _, ev := range req.Events {
				id, value, ok := events.RenderStatValue(ev)
				if ok {
					stats[id] = value
				}
			}
		case <-time.After(500 * time.Millisecond):
			return stats
		}
	}
}

func parsedCommand(command, payload string) adactor.ParsedCommand {
	return adactor.ParsedCommand{
		Command: &mqtt.ParsedMQTTCommand{
			Command: command,
			Payload: payload,
		},
	}
}

func TestDispatcherCommandFlow(t *testing.T) {

	assert := assert.New(t)

	transport := moebot.NewTestTransport()
	provider := func() (moebot.Transport, error) { return transport, nil }

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	es := eventstream.EventStream{}

	devicePID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewDeviceActor(provider, &es, logger)
	}))

	requests := make(chan domain.PublishStatsRequest, 16)
	publisherPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return &capturingPublisherActor{requests: requests}
	}))

	dispatcherPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDispatcherActor(devicePID, publisherPID, logger)
	}))

	time.Sleep(500 * time.Millisecond)

	_, err := context.RequestFuture(devicePID, domain.ConnectDeviceRequest{}, 15*time.Second).Result()
	require.NoError(t, err)

	// mow_time republishes the commanded value
	context.Send(dispatcherPID, parsedCommand(mqtt.COMMAND_MOW_TIME, "8"))

	stats := statsOf(t, requests)
	assert.Equal("8", stats[events.STAT_ID_MOW_TIME], "mow time stat")

	writes := transport.Writes()
	assert.Equal(1, len(writes), "one device write")
	assert.Equal(moebot.DPMowTime, writes[0].DP, "mow time datapoint")
	assert.Equal(8, writes[0].Value, "mow time value")

	// start with spiral payload issues the fixed mowing command and
	// publishes the session's state view
	context.Send(dispatcherPID, parsedCommand(mqtt.COMMAND_START, "spiral"))

	stats = statsOf(t, requests)
	assert.Equal(string(moebot.StateStandby), stats[events.STAT_ID_STATE], "state stat")

	writes = transport.Writes()
	assert.Equal(2, len(writes), "two device writes")
	assert.Equal(moebot.DPCommand, writes[1].DP, "command datapoint")
	assert.Equal(moebot.CommandStartFixedMowing, writes[1].Value, "spiral command")

	// get_password renders the keypad letter form
	context.Send(dispatcherPID, parsedCommand(mqtt.COMMAND_GET_PASSWORD, ""))

	stats = statsOf(t, requests)
	assert.Equal("ABCD", stats[events.STAT_ID_DEVICE_PASSWORD], "device password stat")

	// get_errors renders "None" when the error bitmap is clear
	context.Send(dispatcherPID, parsedCommand(mqtt.COMMAND_GET_ERRORS, ""))

	stats = statsOf(t, requests)
	assert.Equal("None", stats[events.STAT_ID_MACHINE_ERRORS], "machine errors stat")

	context.Stop(dispatcherPID)
	context.Stop(devicePID)

	as.Shutdown()
}

func TestDispatcherDropsInvalidCommands(t *testing.T) {

	assert := assert.New(t)

	transport := moebot.NewTestTransport()
	provider := func() (moebot.Transport, error) { return transport, nil }

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	es := eventstream.EventStream{}

	devicePID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewDeviceActor(provider, &es, logger)
	}))

	requests := make(chan domain.PublishStatsRequest, 16)
	publisherPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return &capturingPublisherActor{requests: requests}
	}))

	dispatcherPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDispatcherActor(devicePID, publisherPID, logger)
	}))

	time.Sleep(500 * time.Millisecond)

	_, err := context.RequestFuture(devicePID, domain.ConnectDeviceRequest{}, 15*time.Second).Result()
	require.NoError(t, err)

	context.Send(dispatcherPID, parsedCommand("lorem", ""))
	context.Send(dispatcherPID, parsedCommand(mqtt.COMMAND_MOW_TIME, "200"))
	context.Send(dispatcherPID, parsedCommand(mqtt.COMMAND_MOW_TIME, "abc"))
	context.Send(dispatcherPID, parsedCommand(mqtt.COMMAND_MOW_IN_RAIN, "maybe"))

	stats := statsOf(t, requests)
	assert.Equal(0, len(stats), "invalid commands publish nothing")
	assert.Equal(0, len(transport.Writes()), "invalid commands reach no device")

	context.Stop(dispatcherPID)
	context.Stop(devicePID)

	as.Shutdown()
}
