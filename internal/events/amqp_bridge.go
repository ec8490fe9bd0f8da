package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// bridgeBuffer bounds the events waiting for the broker.
const bridgeBuffer = 256

// JSONPublisher publishes a JSON payload under a routing key.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// BridgeToBroker forwards every bus event to the broker using
// "guesthub.<event type>" as routing key. Events are queued and published by
// one goroutine, so Emit never waits on the broker; when the queue is full
// the event is dropped. The returned func unsubscribes and flushes the queue
// before returning.
func BridgeToBroker(bus *Bus, pub JSONPublisher, timeout time.Duration, logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	queue := make(chan Event, bridgeBuffer)
	quit := make(chan struct{})
	done := make(chan struct{})

	publish := func(e Event) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := pub.PublishJSON(ctx, RoutingKey(e.Type), e); err != nil {
			logger.Warn("publish event to broker failed",
				zap.String("event_type", string(e.Type)),
				zap.Error(err),
			)
		}
	}

	go func() {
		defer close(done)
		for {
			select {
			case e := <-queue:
				publish(e)
			case <-quit:
				for {
					select {
					case e := <-queue:
						publish(e)
					default:
						return
					}
				}
			}
		}
	}()

	unsubscribe := bus.SubscribeAll(func(e Event) {
		select {
		case queue <- e:
		default:
			logger.Warn("broker queue full, dropping event", zap.String("event_type", string(e.Type)))
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(quit)
			<-done
		})
	}
}

func RoutingKey(t EventType) string {
	return "guesthub." + string(t)
}
