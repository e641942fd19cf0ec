package actor

import (
	"time"

	"moebot2mqtt/internal/config"
	"moebot2mqtt/internal/core/domain"
	"moebot2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

// RecorderActor mirrors every device state update into InfluxDB. Writes are
// batched and asynchronous, a slow or dead InfluxDB never blocks the bridge.
type RecorderActor struct {
	config         *config.Config
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	client         influxdb2.Client
	writeAPI       api.WriteAPI
	logger         *zap.Logger
}

type OnRecorderStreamMessage struct {
	message any
}

func NewRecorderActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *RecorderActor {
	return &RecorderActor{
		config:      config,
		eventStream: eventStream,
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_RECORDER, logger),
	}
}

func (state *RecorderActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("recorder started")
		state.client = influxdb2.NewClient(state.config.Influx.URL, state.config.Influx.Token)
		state.writeAPI = state.client.WriteAPI(state.config.Influx.Org, state.config.Influx.Bucket)

		// async write failures surface on this channel until Close
		errorsCh := state.writeAPI.Errors()
		logger := state.logger
		go func() {
			for err := range errorsCh {
				logger.Warn("recorder: influx write error", zap.Error(err))
			}
		}()

		state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
			ctx.Send(ctx.Self(), OnRecorderStreamMessage{
				message: value,
			})
		})
	case OnRecorderStreamMessage:
		if update, ok := msg.message.(domain.DeviceStateUpdated); ok {
			state.writeState(update)
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("recorder ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_RECORDER,
			Healthy: true,
			State:   "idle",
		})
	case *actor.Stopping:
		state.stop()
	case *actor.Restarting:
		state.stop()
	}
}

func (state *RecorderActor) writeState(update domain.DeviceStateUpdated) {
	st := update.State
	point := write.NewPoint("mower_state",
		map[string]string{
			"device_id": state.config.Device.Id,
		},
		map[string]interface{}{
			"battery":   st.BatteryPercent,
			"state":     string(st.State),
			"online":    st.Online,
			"mow_time":  st.MowTimeHours,
			"work_mode": st.WorkMode,
			"errors":    len(st.MachineErrors),
		},
		time.Now())
	state.writeAPI.WritePoint(point)
}

func (state *RecorderActor) stop() {
	state.logger.Debug("recorder: stop")
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
	if state.client != nil {
		state.writeAPI.Flush()
		state.client.Close()
	}
}
