package actor

import (
	"fmt"
	"time"

	"moebot2mqtt/internal/config"
	"moebot2mqtt/internal/core/domain"
	"moebot2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const (
	healthProbeTimeout = 2 * time.Second
	// connect and teardown run as background tasks inside the device
	// actor, the future timeouts leave room for its own deadlines
	connectRequestTimeout  = 35 * time.Second
	teardownRequestTimeout = 10 * time.Second
)

// SupervisorActor is the device watchdog. It probes the device session on a
// periodic tick, connects when no session exists and forces a
// teardown-pause-connect cycle when the push listener died or the device
// went silent. Reconnects are mutually exclusive: ticks arriving while one
// is in progress only re-arm the timer.
type SupervisorActor struct {
	actorutil.ActorWithStates
	scheduler         *scheduler.TimerScheduler
	stash             *actorutil.Stash
	config            *config.Config
	deviceActor       *actor.PID
	publisherActor    *actor.PID
	cancelCheckTick   scheduler.CancelFunc
	cancelMaintenance scheduler.CancelFunc

	logger *zap.Logger
}

type supervisorCheckTick struct {
}

type supervisorMaintenanceTick struct {
}

type reconnectPauseDone struct {
}

func NewSupervisorActor(config *config.Config, deviceActor *actor.PID, publisherActor *actor.PID, logger *zap.Logger) *SupervisorActor {
	act := &SupervisorActor{
		config:         config,
		deviceActor:    deviceActor,
		publisherActor: publisherActor,
		stash:          &actorutil.Stash{},
		logger:         actorutil.ActorLogger(domain.ACTOR_ID_SUPERVISOR, logger),
		ActorWithStates: actorutil.ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(SupStartingState{
		actor: act,
	})
	return act
}

func (state *SupervisorActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type SupStartingState struct {
	actorutil.ActorState
	actor *SupervisorActor
}

func (state SupStartingState) Name() string {
	return "starting"
}

func (state SupStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("supervisor@starting started")

		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)
		state.actor.armMaintenanceTick(ctx)

		// first check runs immediately so a fresh bridge connects without
		// waiting a full interval
		ctx.Send(ctx.Self(), supervisorCheckTick{})
		state.actor.Become(SupNoSessionState{
			actor: state.actor,
		})
		state.actor.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.actor.logger.Debug("supervisor@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// No session state

type SupNoSessionState struct {
	actorutil.ActorState
	actor *SupervisorActor
}

func (state SupNoSessionState) Name() string {
	return "no_session"
}

func (state SupNoSessionState) Receive(ctx actor.Context) {
	if state.actor.handleCommon(ctx, state.Name()) {
		return
	}
	switch msg := ctx.Message().(type) {
	case supervisorCheckTick:
		state.actor.logger.Debug("supervisor@no_session tick")
		state.actor.armCheckTick(ctx)
		state.actor.probeDeviceHealth(ctx)
	case domain.DeviceHealthResponse:
		state.actor.handleHealthProbe(ctx, msg)
	default:
		state.actor.logger.Debug("supervisor@no_session recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Healthy state

type SupHealthyState struct {
	actorutil.ActorState
	actor *SupervisorActor
}

func (state SupHealthyState) Name() string {
	return "healthy"
}

func (state SupHealthyState) Receive(ctx actor.Context) {
	if state.actor.handleCommon(ctx, state.Name()) {
		return
	}
	switch msg := ctx.Message().(type) {
	case supervisorCheckTick:
		state.actor.logger.Debug("supervisor@healthy tick")
		state.actor.armCheckTick(ctx)
		state.actor.probeDeviceHealth(ctx)
	case domain.DeviceHealthResponse:
		state.actor.handleHealthProbe(ctx, msg)
	default:
		state.actor.logger.Debug("supervisor@healthy recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Connecting state

type SupConnectingState struct {
	actorutil.ActorState
	actor *SupervisorActor
}

func (state SupConnectingState) Name() string {
	return "connecting"
}

func (state SupConnectingState) Receive(ctx actor.Context) {
	if state.actor.handleCommon(ctx, state.Name()) {
		return
	}
	switch msg := ctx.Message().(type) {
	case supervisorCheckTick:
		// connect already in progress, just keep the timer alive
		state.actor.armCheckTick(ctx)
	case domain.ConnectDeviceResponse:
		if msg.HasResponseError() {
			state.actor.logger.Warn("supervisor@connecting connect failed", zap.Error(msg.GetResponseError()))
			state.actor.Become(SupNoSessionState{
				actor: state.actor,
			})
		} else {
			state.actor.logger.Info("supervisor@connecting device connected", zap.String("version", string(msg.Version)))
			state.actor.Become(SupHealthyState{
				actor: state.actor,
			})
		}
		state.actor.stash.UnstashAll(ctx)
	case domain.DeviceHealthResponse:
		// stale probe reply, the pending connect decides the next state
	default:
		state.actor.logger.Debug("supervisor@connecting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Reconnecting state

type SupReconnectingState struct {
	actorutil.ActorState
	actor *SupervisorActor
}

func (state SupReconnectingState) Name() string {
	return "reconnecting"
}

func (state SupReconnectingState) Receive(ctx actor.Context) {
	if state.actor.handleCommon(ctx, state.Name()) {
		return
	}
	switch msg := ctx.Message().(type) {
	case supervisorCheckTick:
		state.actor.armCheckTick(ctx)
	case domain.TeardownDeviceResponse:
		if msg.HasResponseError() {
			state.actor.logger.Warn("supervisor@reconnecting teardown failed", zap.Error(msg.GetResponseError()))
		}
		pause := time.Duration(state.actor.config.Supervisor.ReconnectPauseMillis) * time.Millisecond
		state.actor.logger.Debug("supervisor@reconnecting pause before connect", zap.Duration("pause", pause))
		state.actor.scheduler.RequestOnce(pause, ctx.Self(), reconnectPauseDone{})
	case reconnectPauseDone:
		state.actor.startConnect(ctx)
	case domain.ConnectDeviceResponse:
		if msg.HasResponseError() {
			state.actor.logger.Warn("supervisor@reconnecting connect failed", zap.Error(msg.GetResponseError()))
			state.actor.Become(SupNoSessionState{
				actor: state.actor,
			})
		} else {
			state.actor.logger.Info("supervisor@reconnecting device connected", zap.String("version", string(msg.Version)))
			state.actor.Become(SupHealthyState{
				actor: state.actor,
			})
		}
		state.actor.stash.UnstashAll(ctx)
	case domain.DeviceHealthResponse:
		// stale probe reply, the running reconnect decides the next state
	default:
		state.actor.logger.Debug("supervisor@reconnecting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// handleCommon covers the messages every state answers the same way:
// health checks, maintenance ticks and lifecycle stops.
func (state *SupervisorActor) handleCommon(ctx actor.Context, stateName string) bool {
	switch ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("supervisor ActorHealthRequest", zap.String("state", stateName))
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SUPERVISOR,
			Healthy: true,
			State:   stateName,
		})
		return true
	case supervisorMaintenanceTick:
		state.logger.Debug("supervisor maintenance tick", zap.String("state", stateName))
		state.armMaintenanceTick(ctx)
		ctx.Send(state.publisherActor, domain.CompactStatCacheRequest{})
		return true
	case *actor.Stopping:
		state.cancelTimers()
		return true
	case *actor.Restarting:
		state.cancelTimers()
		return true
	}
	return false
}

// handleHealthProbe decides what the session needs: nothing, a first
// connect, or a full reconnect cycle.
func (state *SupervisorActor) handleHealthProbe(ctx actor.Context, msg domain.DeviceHealthResponse) {
	if msg.HasResponseError() {
		// probe timeouts are not reconnect triggers, the next tick retries
		state.logger.Warn("supervisor health probe failed", zap.Error(msg.GetResponseError()))
		return
	}
	if !msg.HasSession {
		state.logger.Info("supervisor: no device session, connecting")
		state.startConnect(ctx)
		state.Become(SupConnectingState{
			actor: state,
		})
		return
	}
	staleAfter := time.Duration(state.config.Supervisor.StaleAfterMillis) * time.Millisecond
	stale := !msg.LastUpdate.IsZero() && time.Since(msg.LastUpdate) > staleAfter
	if !msg.ListenerAlive || stale {
		state.logger.Warn("supervisor: device session needs reconnect",
			zap.Bool("listener_alive", msg.ListenerAlive),
			zap.Bool("stale", stale),
			zap.Time("last_update", msg.LastUpdate))
		state.startTeardown(ctx)
		state.Become(SupReconnectingState{
			actor: state,
		})
		return
	}
	state.Become(SupHealthyState{
		actor: state,
	})
}

func (state *SupervisorActor) probeDeviceHealth(ctx actor.Context) {
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.deviceActor, domain.DeviceHealthRequest{}, healthProbeTimeout), func(err error) any {
		return domain.DeviceHealthResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

func (state *SupervisorActor) startConnect(ctx actor.Context) {
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.deviceActor, domain.ConnectDeviceRequest{}, connectRequestTimeout), func(err error) any {
		return domain.ConnectDeviceResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

func (state *SupervisorActor) startTeardown(ctx actor.Context) {
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.deviceActor, domain.TeardownDeviceRequest{}, teardownRequestTimeout), func(err error) any {
		return domain.TeardownDeviceResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

func (state *SupervisorActor) armCheckTick(ctx actor.Context) {
	interval := time.Duration(state.config.Supervisor.CheckIntervalMillis) * time.Millisecond
	if interval > 0 {
		state.cancelCheckTick = state.scheduler.RequestOnce(interval, ctx.Self(), supervisorCheckTick{})
	}
}

func (state *SupervisorActor) armMaintenanceTick(ctx actor.Context) {
	interval := time.Duration(state.config.Supervisor.MaintenanceIntervalMillis) * time.Millisecond
	if interval > 0 {
		state.cancelMaintenance = state.scheduler.RequestOnce(interval, ctx.Self(), supervisorMaintenanceTick{})
	}
}

func (state *SupervisorActor) cancelTimers() {
	if state.cancelCheckTick != nil {
		state.cancelCheckTick()
		state.cancelCheckTick = nil
	}
	if state.cancelMaintenance != nil {
		state.cancelMaintenance()
		state.cancelMaintenance = nil
	}
}
