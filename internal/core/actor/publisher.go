package actor

import (
	"fmt"

	"moebot2mqtt/internal/core/domain"
	"moebot2mqtt/internal/core/events"
	"moebot2mqtt/internal/core/port"
	"moebot2mqtt/internal/core/service"
	"moebot2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// PublisherActor owns the stat cache. Every stat publish flows through it,
// so concurrent triggers (push, poll, commands, supervisor maintenance)
// cannot interleave within one stat.
type PublisherActor struct {
	behavior       actor.Behavior
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	mqttActor      *actor.PID
	cache          port.StatStore

	logger *zap.Logger
}

type OnPublisherStreamMessage struct {
	message any
}

func NewPublisherActor(mqttActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *PublisherActor {
	act := &PublisherActor{
		mqttActor:   mqttActor,
		behavior:    actor.NewBehavior(),
		eventStream: eventStream,
		cache:       service.NewMemoryStatCache(logger),
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_PUBLISHER, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *PublisherActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PublisherActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("publisher@default started")
		state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
			ctx.Send(ctx.Self(), OnPublisherStreamMessage{
				message: value,
			})
		})
	case OnPublisherStreamMessage:
		if update, ok := msg.message.(domain.DeviceStateUpdated); ok {
			state.logger.Debug("publisher@default DeviceStateUpdated")
			state.publishStats(ctx, events.DeviceStateToStatUpdates(update.State))
		}
	case domain.PublishStatsRequest:
		state.logger.Debug("publisher@default PublishStatsRequest", zap.Int("events", len(msg.Events)))
		state.publishStats(ctx, msg.Events)
	case domain.CompactStatCacheRequest:
		state.logger.Debug("publisher@default CompactStatCacheRequest")
		state.cache.Compact()
	case domain.PublishStatUpdateResponse:
		if msg.HasResponseError() {
			state.logger.Warn("publisher@default stat publish failed", zap.Error(msg.GetResponseError()))
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("publisher@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_PUBLISHER,
			Healthy: true,
			State:   "idle",
		})
	case *actor.Stopping:
		state.unsubscribe()
	case *actor.Restarting:
		state.unsubscribe()
	default:
		state.logger.Debug("publisher@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// publishStats runs each event through change suppression and forwards the
// survivors to the MQTT actor. The cache is updated before the publish is
// confirmed, a failed publish is only logged.
func (state *PublisherActor) publishStats(ctx actor.Context, evs []any) {
	for _, ev := range evs {
		id, value, ok := events.RenderStatValue(ev)
		if !ok {
			state.logger.Warn("publisher: unrenderable stat event", zap.String("type", fmt.Sprintf("%T", ev)))
			continue
		}
		if !state.cache.Update(id, value) {
			state.logger.Debug("publisher: unchanged stat suppressed", zap.String("stat", id))
			continue
		}
		ctx.Send(state.mqttActor, domain.PublishStatUpdateRequest{
			ActorRequestMixIn: domain.ActorRequestMixIn{
				ReplyToRef: (*domain.ActorRef)(ctx.Self()),
			},
			Event:  ev,
			Retain: true,
		})
	}
}

func (state *PublisherActor) unsubscribe() {
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
}
