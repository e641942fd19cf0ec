package actor

import (
	"errors"
	"fmt"
	"time"

	"moebot2mqtt/internal/config"
	"moebot2mqtt/internal/core/domain"
	"moebot2mqtt/internal/core/events"
	"moebot2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor announces the bridge and the mower to Home Assistant once
// the MQTT connection is up. The entity set is static, so the actor publishes
// a single discovery batch and then goes dormant.
type HADiscoveryActor struct {
	config    *config.Config
	behavior  actor.Behavior
	stash     *actorutil.Stash
	mqttActor *actor.PID

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:    config,
		mqttActor: mqttActor,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check MQTT actor healthy
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		if !msg.Healthy {
			panic(errors.New("MQTT Actor is not healthy"))
		}
		state.publishDiscovery(ctx)
		state.behavior.Become(state.Done)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) publishDiscovery(ctx actor.Context) {

	var sensors []domain.GenericSensor
	var switches []domain.GenericSwitch
	var inputNumbers []domain.GenericInputNumber

	bridgeDevice := events.BridgeDevice(state.config.MQTT.BaseTopic)
	bridgeSensors := events.BridgeSensors(bridgeDevice)
	sensors = append(sensors, bridgeSensors...)

	mowerDevice := events.MowerDevice(state.config.Device.Id)
	mowerDevice.ViaDevice = bridgeDevice.Id
	mowerSensors := events.MowerSensors(mowerDevice)
	for i := range mowerSensors {
		if i > 0 {
			mowerSensors[i].Device = events.IdDevice(mowerDevice)
		}
		sensors = append(sensors, mowerSensors[i])
	}

	switches = append(switches, events.MowerSwitches(mowerDevice)...)
	inputNumbers = append(inputNumbers, events.MowerInputNumbers(mowerDevice)...)

	state.logger.Debug("hadiscovery@publish", zap.Int("sensors", len(sensors)),
		zap.Int("switches", len(switches)), zap.Int("input_numbers", len(inputNumbers)))

	ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
		Sensors:      sensors,
		Switches:     switches,
		InputNumbers: inputNumbers,
	})
}
