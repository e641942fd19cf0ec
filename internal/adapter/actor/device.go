package actor

import (
	"fmt"
	"time"

	"moebot2mqtt/internal/core/domain"
	"moebot2mqtt/internal/util/actorutil"
	"moebot2mqtt/pkg/moebot"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

const (
	deviceConnectTimeout = 30 * time.Second
	deviceCommandTimeout = 5 * time.Second
)

// DeviceActor owns the device session. All device I/O flows through it, one
// operation at a time.
type DeviceActor struct {
	behavior     actor.Behavior
	stash        *actorutil.Stash
	provider     moebot.TransportProvider
	eventStream  *eventstream.EventStream
	session      *moebot.Session
	pendingReply *actor.PID
	logger       *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

type connectResult struct {
	session *moebot.Session
	err     error
}

type pushedDeviceUpdate struct {
	state moebot.DeviceState
}

func NewDeviceActor(provider moebot.TransportProvider, eventStream *eventstream.EventStream, logger *zap.Logger) *DeviceActor {
	act := &DeviceActor{
		provider:    provider,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_DEVICE, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *DeviceActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DeviceActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("device@starting started")
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.closeSession()
	default:
		state.logger.Debug("device@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DeviceActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("device@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DEVICE,
			Healthy: true,
			State:   "idle",
		})
	case domain.DeviceHealthRequest:
		state.logger.Debug("device@default DeviceHealthRequest")
		state.respondHealth(ctx, msg)
	case domain.ConnectDeviceRequest:
		state.logger.Debug("device@default ConnectDeviceRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if state.session != nil {
			if sender != nil {
				ctx.Send(sender, domain.ConnectDeviceResponse{Version: state.session.Version()})
			}
		} else {
			state.pendingReply = sender
			actorutil.NewBackgroundTask(ctx, state.openSession).
				Recover(func(err error) connectResult {
					return connectResult{err: err}
				}).
				WithTimeout(deviceConnectTimeout).
				PipeTo(ctx.Self())
			state.behavior.BecomeStacked(state.WaitingConnect)
		}
	case domain.TeardownDeviceRequest:
		state.logger.Debug("device@default TeardownDeviceRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		err := state.closeSession()
		if sender != nil {
			ctx.Send(sender, domain.TeardownDeviceResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			})
		}
	case domain.PollDeviceRequest:
		state.logger.Debug("device@default PollDeviceRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if !state.requireSession(ctx, sender, domain.PollDeviceResponse{
			ActorResponseMixIn: notConnectedError(),
		}) {
			return
		}
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.pollDevice),
			mapTaskResult[domain.PollDeviceResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.PollDeviceResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(deviceCommandTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.GetMachineErrorsRequest:
		state.logger.Debug("device@default GetMachineErrorsRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if !state.requireSession(ctx, sender, domain.GetMachineErrorsResponse{
			ActorResponseMixIn: notConnectedError(),
		}) {
			return
		}
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getMachineErrors),
			mapTaskResult[domain.GetMachineErrorsResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetMachineErrorsResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(deviceCommandTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.GetPasswordRequest:
		state.logger.Debug("device@default GetPasswordRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if !state.requireSession(ctx, sender, domain.GetPasswordResponse{
			ActorResponseMixIn: notConnectedError(),
		}) {
			return
		}
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getPassword),
			mapTaskResult[domain.GetPasswordResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetPasswordResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(deviceCommandTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.StartMowingRequest:
		state.logger.Debug("device@default StartMowingRequest", zap.Bool("spiral", msg.Spiral))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if !state.requireSession(ctx, sender, domain.StartMowingResponse{
			MowerCommandResponseMixIn: commandError(moebot.ErrNotConnected),
		}) {
			return
		}
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.StartMowingResponse, error) {
			return state.startMowing(msg.Spiral)
		}), mapTaskResult[domain.StartMowingResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.StartMowingResponse{
					MowerCommandResponseMixIn: commandError(err),
				},
				replyTo: sender,
			}
		}).WithTimeout(deviceCommandTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.PauseMowingRequest:
		state.logger.Debug("device@default PauseMowingRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if !state.requireSession(ctx, sender, domain.PauseMowingResponse{
			MowerCommandResponseMixIn: commandError(moebot.ErrNotConnected),
		}) {
			return
		}
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.pauseMowing),
			mapTaskResult[domain.PauseMowingResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.PauseMowingResponse{
					MowerCommandResponseMixIn: commandError(err),
				},
				replyTo: sender,
			}
		}).WithTimeout(deviceCommandTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.CancelMowingRequest:
		state.logger.Debug("device@default CancelMowingRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if !state.requireSession(ctx, sender, domain.CancelMowingResponse{
			MowerCommandResponseMixIn: commandError(moebot.ErrNotConnected),
		}) {
			return
		}
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.cancelMowing),
			mapTaskResult[domain.CancelMowingResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.CancelMowingResponse{
					MowerCommandResponseMixIn: commandError(err),
				},
				replyTo: sender,
			}
		}).WithTimeout(deviceCommandTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.ReturnToDockRequest:
		state.logger.Debug("device@default ReturnToDockRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if !state.requireSession(ctx, sender, domain.ReturnToDockResponse{
			MowerCommandResponseMixIn: commandError(moebot.ErrNotConnected),
		}) {
			return
		}
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.returnToDock),
			mapTaskResult[domain.ReturnToDockResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.ReturnToDockResponse{
					MowerCommandResponseMixIn: commandError(err),
				},
				replyTo: sender,
			}
		}).WithTimeout(deviceCommandTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.SetMowTimeRequest:
		state.logger.Debug("device@default SetMowTimeRequest", zap.Int("hours", msg.Hours))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if !state.requireSession(ctx, sender, domain.SetMowTimeResponse{
			MowerCommandResponseMixIn: commandError(moebot.ErrNotConnected),
		}) {
			return
		}
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.SetMowTimeResponse, error) {
			return state.setMowTime(msg.Hours)
		}), mapTaskResult[domain.SetMowTimeResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetMowTimeResponse{
					MowerCommandResponseMixIn: commandError(err),
				},
				replyTo: sender,
			}
		}).WithTimeout(deviceCommandTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.SetMowInRainRequest:
		state.logger.Debug("device@default SetMowInRainRequest", zap.Bool("enabled", msg.Enabled))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if !state.requireSession(ctx, sender, domain.SetMowInRainResponse{
			MowerCommandResponseMixIn: commandError(moebot.ErrNotConnected),
		}) {
			return
		}
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.SetMowInRainResponse, error) {
			return state.setMowInRain(msg.Enabled)
		}), mapTaskResult[domain.SetMowInRainResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetMowInRainResponse{
					MowerCommandResponseMixIn: commandError(err),
				},
				replyTo: sender,
			}
		}).WithTimeout(deviceCommandTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case pushedDeviceUpdate:
		state.logger.Debug("device@default pushedDeviceUpdate")
		state.eventStream.Publish(domain.DeviceStateUpdated{State: msg.state})
	case *actor.Stopping:
		state.closeSession()
	case *actor.Restarting:
		state.closeSession()
	default:
		state.logger.Debug("device@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// WaitingConnect covers the session handshake. Everything except health
// probes and pushes waits until the handshake resolves.
func (state *DeviceActor) WaitingConnect(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case connectResult:
		if msg.err != nil {
			state.logger.Warn("device@connecting connect failed", zap.Error(msg.err))
			if state.pendingReply != nil {
				ctx.Send(state.pendingReply, domain.ConnectDeviceResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: msg.err,
					},
				})
			}
		} else {
			state.adoptSession(ctx, msg.session)
		}
		state.pendingReply = nil
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.DeviceHealthRequest:
		state.respondHealth(ctx, msg)
	case pushedDeviceUpdate:
		state.eventStream.Publish(domain.DeviceStateUpdated{State: msg.state})
	case *actor.Stopping:
		state.closeSession()
	case *actor.Restarting:
		state.closeSession()
	default:
		state.logger.Debug("device@connecting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// WaitingDevice covers one in-flight device operation.
func (state *DeviceActor) WaitingDevice(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("device@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if poll, ok := msg.message.(domain.PollDeviceResponse); ok && !poll.HasResponseError() {
			state.eventStream.Publish(domain.DeviceStateUpdated{State: poll.State})
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.DeviceHealthRequest:
		state.respondHealth(ctx, msg)
	case pushedDeviceUpdate:
		state.eventStream.Publish(domain.DeviceStateUpdated{State: msg.state})
	case *actor.Stopping:
		state.closeSession()
	case *actor.Restarting:
		state.closeSession()
	default:
		state.logger.Debug("device@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DeviceActor) adoptSession(ctx actor.Context, session *moebot.Session) {
	system := ctx.ActorSystem()
	self := ctx.Self()
	err := session.Listen(func(snapshot moebot.DeviceState) {
		system.Root.Send(self, pushedDeviceUpdate{state: snapshot})
	})
	if err != nil {
		state.logger.Error("device@connecting listen failed", zap.Error(err))
		_ = session.Close()
		if state.pendingReply != nil {
			ctx.Send(state.pendingReply, domain.ConnectDeviceResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			})
		}
		return
	}
	state.session = session
	state.logger.Info("device connected", zap.String("version", string(session.Version())))
	if state.pendingReply != nil {
		ctx.Send(state.pendingReply, domain.ConnectDeviceResponse{Version: session.Version()})
	}
	state.eventStream.Publish(domain.DeviceStateUpdated{State: session.State()})
}

func (state *DeviceActor) respondHealth(ctx actor.Context, msg domain.DeviceHealthRequest) {
	resp := domain.DeviceHealthResponse{}
	if state.session != nil {
		st := state.session.State()
		resp.HasSession = true
		resp.ListenerAlive = state.session.ListenerAlive()
		resp.Online = st.Online
		resp.LastUpdate = st.LastUpdate
	}
	actorutil.ForRequest(msg).Respond(ctx, resp)
}

// requireSession short-circuits device operations while no session is open.
func (state *DeviceActor) requireSession(ctx actor.Context, sender *actor.PID, errResponse any) bool {
	if state.session != nil {
		return true
	}
	state.logger.Warn("device: operation without session", zap.String("type", fmt.Sprintf("%T", errResponse)))
	if sender != nil {
		ctx.Send(sender, errResponse)
	}
	return false
}

// closeSession tears the session down and publishes a final offline state.
func (state *DeviceActor) closeSession() error {
	if state.session == nil {
		return nil
	}
	offline := state.session.State()
	offline.Online = false
	err := state.session.Close()
	state.session = nil
	state.eventStream.Publish(domain.DeviceStateUpdated{State: offline})
	if err != nil {
		state.logger.Warn("device: session close", zap.Error(err))
	}
	return err
}

func (a *DeviceActor) openSession() (*connectResult, error) {
	transport, err := a.provider()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	session := moebot.NewSession(transport, a.logger)
	if err := session.Connect(); err != nil {
		logger.Error(err)
		return nil, err
	}
	return &connectResult{session: session}, nil
}

func (a *DeviceActor) pollDevice() (*domain.PollDeviceResponse, error) {
	if err := a.session.Poll(); err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.PollDeviceResponse{State: a.session.State()}, nil
}

func (a *DeviceActor) getMachineErrors() (*domain.GetMachineErrorsResponse, error) {
	return &domain.GetMachineErrorsResponse{Errors: a.session.MachineErrors()}, nil
}

func (a *DeviceActor) getPassword() (*domain.GetPasswordResponse, error) {
	return &domain.GetPasswordResponse{Password: a.session.Password()}, nil
}

func (a *DeviceActor) startMowing(spiral bool) (*domain.StartMowingResponse, error) {
	if err := a.session.Start(spiral); err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.StartMowingResponse{State: string(a.session.State().State)}, nil
}

func (a *DeviceActor) pauseMowing() (*domain.PauseMowingResponse, error) {
	if err := a.session.Pause(); err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.PauseMowingResponse{State: string(a.session.State().State)}, nil
}

func (a *DeviceActor) cancelMowing() (*domain.CancelMowingResponse, error) {
	if err := a.session.Cancel(); err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.CancelMowingResponse{State: string(a.session.State().State)}, nil
}

func (a *DeviceActor) returnToDock() (*domain.ReturnToDockResponse, error) {
	if err := a.session.Dock(); err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.ReturnToDockResponse{State: string(a.session.State().State)}, nil
}

func (a *DeviceActor) setMowTime(hours int) (*domain.SetMowTimeResponse, error) {
	if err := a.session.SetMowTime(hours); err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.SetMowTimeResponse{Hours: hours}, nil
}

func (a *DeviceActor) setMowInRain(enabled bool) (*domain.SetMowInRainResponse, error) {
	if err := a.session.SetMowInRain(enabled); err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.SetMowInRainResponse{Enabled: enabled}, nil
}

func commandError(err error) domain.MowerCommandResponseMixIn {
	return domain.MowerCommandResponseMixIn{
		ActorResponseMixIn: domain.ActorResponseMixIn{
			ResponseError: err,
		},
	}
}

func notConnectedError() domain.ActorResponseMixIn {
	return domain.ActorResponseMixIn{
		ResponseError: moebot.ErrNotConnected,
	}
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
