package actor

import (
	"errors"
	"fmt"
	"log"
	adactor "moebot2mqtt/internal/adapter/actor"
	"moebot2mqtt/internal/config"
	"moebot2mqtt/internal/core/domain"
	. "moebot2mqtt/internal/util/actorutil"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func() *adactor.MQTTActor

type DeviceActorProvider func(*eventstream.EventStream) *adactor.DeviceActor

// MasterOfPuppetsActor owns the actor tree. It spawns the adapter actors and
// the core actors in dependency order, routes parsed MQTT commands to the
// dispatcher and aggregates health checks across its children.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck  healthCheckResult
	eventStream         *eventstream.EventStream
	deviceActor         *actor.PID
	mqttActor           *actor.PID
	publisherActor      *actor.PID
	dispatcherActor     *actor.PID
	supervisorActor     *actor.PID
	deviceActorProvider DeviceActorProvider
	mqttActorProvider   MQTTActorProvider
	logger              *zap.Logger
}

// The device actor is not probed directly: the supervisor answers with its
// session state, so a dead device leg surfaces through the supervisor check.
type healthCheckResult struct {
	mqttActorHealthy       bool
	supervisorActorHealthy bool
	publisherActorHealthy  bool
	dispatcherActorHealthy bool
	checksReceived         int
	respondTo              *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, deviceActorProvider DeviceActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:              config,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		logger:              ActorLogger("master", logger),
		eventStream:         &eventstream.EventStream{},
		deviceActorProvider: deviceActorProvider,
		mqttActorProvider:   mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start Device child
		deviceActorPID, err := state.startDeviceActor(ctx)
		if err != nil {
			panic(err)
		}
		state.deviceActor = deviceActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start Publisher child
		publisherActorPID, err := state.startPublisherActor(ctx)
		if err != nil {
			panic(err)
		}
		state.publisherActor = publisherActorPID

		// start Dispatcher child
		dispatcherActorPID, err := state.startDispatcherActor(ctx)
		if err != nil {
			panic(err)
		}
		state.dispatcherActor = dispatcherActorPID

		// start Supervisor child
		supervisorActorPID, err := state.startSupervisorActor(ctx)
		if err != nil {
			panic(err)
		}
		state.supervisorActor = supervisorActorPID

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		// start Recorder
		if state.config.Influx.Enabled {
			_, err := state.startRecorderActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		// Supervisor Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.supervisorActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_SUPERVISOR,
				Healthy: false,
			}
		})
		// Publisher Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.publisherActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_PUBLISHER,
				Healthy: false,
			}
		})
		// Dispatcher Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.dispatcherActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_DISPATCHER,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// redirect parsedCommand to the dispatcher, it validates and executes
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		ctx.Send(state.dispatcherActor, msg)
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_DEVICE) {
			state.logger.Error("master@default device error")
			panic(errors.New("device terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_MQTT:
				state.currentHealthCheck.mqttActorHealthy = true
			case domain.ACTOR_ID_SUPERVISOR:
				state.currentHealthCheck.supervisorActorHealthy = true
			case domain.ACTOR_ID_PUBLISHER:
				state.currentHealthCheck.publisherActorHealthy = true
			case domain.ACTOR_ID_DISPATCHER:
				state.currentHealthCheck.dispatcherActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) startDeviceActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	deviceProps := actor.PropsFromProducer(func() actor.Actor {
		return state.deviceActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	deviceActorPID, err := ctx.SpawnNamed(deviceProps, domain.ACTOR_ID_DEVICE)
	if err != nil {
		return nil, err
	}

	return deviceActorPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterOfPuppetsActor) startPublisherActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	publisherProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPublisherActor(state.mqttActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	publisherActorPID, err := ctx.SpawnNamed(publisherProps, domain.ACTOR_ID_PUBLISHER)
	if err != nil {
		return nil, err
	}

	return publisherActorPID, nil
}

func (state *MasterOfPuppetsActor) startDispatcherActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	dispatcherProps := actor.PropsFromProducer(func() actor.Actor {
		return NewDispatcherActor(state.deviceActor, state.publisherActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	dispatcherActorPID, err := ctx.SpawnNamed(dispatcherProps, domain.ACTOR_ID_DISPATCHER)
	if err != nil {
		return nil, err
	}

	return dispatcherActorPID, nil
}

func (state *MasterOfPuppetsActor) startSupervisorActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	supervisorProps := actor.PropsFromProducer(func() actor.Actor {
		return NewSupervisorActor(&state.config, state.deviceActor, state.publisherActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	supervisorActorPID, err := ctx.SpawnNamed(supervisorProps, domain.ACTOR_ID_SUPERVISOR)
	if err != nil {
		return nil, err
	}

	return supervisorActorPID, nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *MasterOfPuppetsActor) startRecorderActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	recorderProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewRecorderActor(&state.config, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	recorderPID, err := ctx.SpawnNamed(recorderProps, domain.ACTOR_ID_RECORDER)
	if err != nil {
		return nil, err
	}

	return recorderPID, nil
}

func (state *healthCheckResult) reset() {
	state.mqttActorHealthy = false
	state.supervisorActorHealthy = false
	state.publisherActorHealthy = false
	state.dispatcherActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 4
}

func (state *healthCheckResult) allHealthy() bool {
	return state.mqttActorHealthy && state.supervisorActorHealthy &&
		state.publisherActorHealthy && state.dispatcherActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      "master",
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
