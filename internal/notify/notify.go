package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coderunner/coderunner/api/internal/redis"
)

// Event is one fire-and-forget UI notification, broadcast to the room
// of the deployment it concerns
type Event struct {
	Room    string
	Name    string
	Payload interface{}
}

// PublishFunc delivers one event to the fan-out sink
type PublishFunc func(ctx context.Context, room string, data interface{}) error

// Notifier decouples the control loops from the notification sink: the
// loops enqueue onto a bounded channel and a single consumer publishes.
// A slow or failing sink can never block a control loop; when the
// queue is full the event is dropped with a log line.
type Notifier struct {
	events  chan Event
	publish PublishFunc
	wg      sync.WaitGroup
	stopOnce sync.Once
	stopCh  chan struct{}
}

const defaultQueueSize = 256

// New creates a notifier publishing to the Redis WebSocket channel
func New() *Notifier {
	return NewWithPublisher(func(ctx context.Context, room string, data interface{}) error {
		return redis.PublishWebSocketMessage(ctx, room, data)
	})
}

// NewWithPublisher creates a notifier with a custom sink (for tests)
func NewWithPublisher(publish PublishFunc) *Notifier {
	n := &Notifier{
		events:  make(chan Event, defaultQueueSize),
		publish: publish,
		stopCh:  make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Emit enqueues an event without blocking. Delivery is best effort.
func (n *Notifier) Emit(room, name string, payload interface{}) {
	select {
	case n.events <- Event{Room: room, Name: name, Payload: payload}:
	default:
		log.Printf("[Notify] queue full, dropping event %s for room %s", name, room)
	}
}

// Stop drains the queue and shuts the consumer down. Safe to call more
// than once.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		close(n.stopCh)
	})
	n.wg.Wait()
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for {
		select {
		case event := <-n.events:
			n.deliver(event)
		case <-n.stopCh:
			// Drain whatever is already queued, then exit
			for {
				select {
				case event := <-n.events:
					n.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data := map[string]interface{}{
		"event":   event.Name,
		"payload": event.Payload,
	}
	if err := n.publish(ctx, event.Room, data); err != nil {
		log.Printf("[Notify] failed to deliver %s to room %s: %v", event.Name, event.Room, err)
	}
}
