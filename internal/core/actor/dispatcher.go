package actor

import (
	"fmt"
	"time"

	adactor "moebot2mqtt/internal/adapter/actor"
	"moebot2mqtt/internal/core/domain"
	"moebot2mqtt/internal/core/events"
	"moebot2mqtt/internal/mqtt"
	"moebot2mqtt/internal/util/actorutil"
	"moebot2mqtt/pkg/moebot"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// dispatchTimeout exceeds the device actor's own operation timeout, so a
// slow device surfaces as a typed error response, not a dropped future.
const dispatchTimeout = 10 * time.Second

// DispatcherActor validates parsed MQTT commands, serializes them against
// the device actor and republishes the affected stats on success. One
// command is in flight at a time, later ones queue in the stash.
type DispatcherActor struct {
	behavior       actor.Behavior
	stash          *actorutil.Stash
	deviceActor    *actor.PID
	publisherActor *actor.PID
	currentCommand string
	commandId      string

	logger *zap.Logger
}

type commandFailed struct {
	err error
}

func NewDispatcherActor(deviceActor *actor.PID, publisherActor *actor.PID, logger *zap.Logger) *DispatcherActor {
	act := &DispatcherActor{
		deviceActor:    deviceActor,
		publisherActor: publisherActor,
		behavior:       actor.NewBehavior(),
		stash:          &actorutil.Stash{},
		logger:         actorutil.ActorLogger(domain.ACTOR_ID_DISPATCHER, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *DispatcherActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DispatcherActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case adactor.ParsedCommand:
		if msg.Command != nil {
			state.dispatch(ctx, *msg.Command)
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("dispatcher@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DISPATCHER,
			Healthy: true,
			State:   "idle",
		})
	default:
		state.logger.Debug("dispatcher@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DispatcherActor) dispatch(ctx actor.Context, cmd mqtt.ParsedMQTTCommand) {
	state.commandId = uuid.NewString()
	state.currentCommand = cmd.Command
	logger := state.commandLogger()

	request, err := actorutil.ParsedMQTTCommandToRequest(cmd)
	if err != nil {
		logger.Warn("dispatcher@default invalid payload", zap.String("payload", cmd.Payload), zap.Error(err))
		return
	}
	if request == nil {
		logger.Warn("dispatcher@default unknown command")
		return
	}
	logger.Info("dispatcher@default command accepted", zap.String("payload", cmd.Payload))

	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.deviceActor, request, dispatchTimeout), func(err error) any {
		return commandFailed{err: err}
	})
	state.behavior.BecomeStacked(state.WaitingDeviceReceive)
}

func (state *DispatcherActor) WaitingDeviceReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case commandFailed:
		state.commandLogger().Warn("dispatcher@waiting command failed", zap.Error(msg.err))
		state.finishCommand(ctx)
	case domain.StartMowingResponse:
		state.finishMovementCommand(ctx, msg, msg.State)
	case domain.PauseMowingResponse:
		state.finishMovementCommand(ctx, msg, msg.State)
	case domain.CancelMowingResponse:
		state.finishMovementCommand(ctx, msg, msg.State)
	case domain.ReturnToDockResponse:
		state.finishMovementCommand(ctx, msg, msg.State)
	case domain.SetMowTimeResponse:
		if msg.HasResponseError() {
			state.commandLogger().Warn("dispatcher@waiting mow_time failed", zap.Error(msg.GetResponseError()))
		} else {
			state.publishStats(ctx, events.MowTimeStatUpdate(msg.Hours))
		}
		state.finishCommand(ctx)
	case domain.SetMowInRainResponse:
		if msg.HasResponseError() {
			state.commandLogger().Warn("dispatcher@waiting mow_in_rain failed", zap.Error(msg.GetResponseError()))
		} else {
			state.publishStats(ctx, events.MowInRainStatUpdate(msg.Enabled))
		}
		state.finishCommand(ctx)
	case domain.PollDeviceResponse:
		// on success the device actor already pushed the merged state to
		// the event stream, nothing to republish here
		if msg.HasResponseError() {
			state.commandLogger().Warn("dispatcher@waiting poll failed", zap.Error(msg.GetResponseError()))
		}
		state.finishCommand(ctx)
	case domain.GetMachineErrorsResponse:
		if msg.HasResponseError() {
			state.commandLogger().Warn("dispatcher@waiting get_errors failed", zap.Error(msg.GetResponseError()))
		} else {
			state.publishStats(ctx, events.MachineErrorsStatUpdate(msg.Errors))
		}
		state.finishCommand(ctx)
	case domain.GetPasswordResponse:
		if msg.HasResponseError() {
			state.commandLogger().Warn("dispatcher@waiting get_password failed", zap.Error(msg.GetResponseError()))
		} else {
			state.publishStats(ctx, events.DevicePasswordStatUpdate(msg.Password))
		}
		state.finishCommand(ctx)
	case domain.ActorHealthRequest:
		state.logger.Debug("dispatcher@waiting ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DISPATCHER,
			Healthy: true,
			State:   "dispatching",
		})
	default:
		state.logger.Debug("dispatcher@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// finishMovementCommand publishes the session's view of the machine state.
// The push listener corrects it once the device reports the transition.
func (state *DispatcherActor) finishMovementCommand(ctx actor.Context, resp domain.ActorResponse, machineState string) {
	if resp.HasResponseError() {
		state.commandLogger().Warn("dispatcher@waiting movement command failed", zap.Error(resp.GetResponseError()))
	} else if machineState != "" {
		state.publishStats(ctx, events.MachineStateStatUpdate(moebot.MachineState(machineState)))
	}
	state.finishCommand(ctx)
}

func (state *DispatcherActor) publishStats(ctx actor.Context, evs ...any) {
	ctx.Send(state.publisherActor, domain.PublishStatsRequest{
		Events: evs,
	})
}

func (state *DispatcherActor) finishCommand(ctx actor.Context) {
	state.commandLogger().Debug("dispatcher@waiting command finished")
	state.currentCommand = ""
	state.commandId = ""
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *DispatcherActor) commandLogger() *zap.Logger {
	return state.logger.With(zap.String("command", state.currentCommand), zap.String("command_id", state.commandId))
}
