package actorutil

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"moebot2mqtt/internal/core/domain"
	"moebot2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToRequest validates an inbound command and maps it to the
// request the dispatcher sends to the device actor. Unknown commands map to
// (nil, nil), invalid payloads to an error. Payloads arrive trimmed and
// lowercased.
func ParsedMQTTCommandToRequest(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	switch cmd.Command {
	case mqtt.COMMAND_START:
		return domain.StartMowingRequest{
			Spiral: cmd.Payload == mqtt.PAYLOAD_SPIRAL,
		}, nil
	case mqtt.COMMAND_PAUSE:
		return domain.PauseMowingRequest{}, nil
	case mqtt.COMMAND_CANCEL:
		return domain.CancelMowingRequest{}, nil
	case mqtt.COMMAND_DOCK:
		return domain.ReturnToDockRequest{}, nil
	case mqtt.COMMAND_MOW_TIME:
		hours, err := strconv.ParseUint(cmd.Payload, 10, 8)
		if err != nil || hours < 1 || hours > 99 {
			return nil, fmt.Errorf("mow_time must be 1-99 hours, got %q", cmd.Payload)
		}
		return domain.SetMowTimeRequest{
			Hours: int(hours),
		}, nil
	case mqtt.COMMAND_MOW_IN_RAIN:
		switch cmd.Payload {
		case "true", "1", "on", "yes":
			return domain.SetMowInRainRequest{Enabled: true}, nil
		case "false", "0", "off", "no":
			return domain.SetMowInRainRequest{Enabled: false}, nil
		default:
			return nil, fmt.Errorf("mow_in_rain payload %q not recognized", cmd.Payload)
		}
	case mqtt.COMMAND_POLL:
		return domain.PollDeviceRequest{}, nil
	case mqtt.COMMAND_GET_ERRORS:
		return domain.GetMachineErrorsRequest{}, nil
	case mqtt.COMMAND_GET_PASSWORD:
		return domain.GetPasswordRequest{}, nil
	}
	return nil, nil
}
