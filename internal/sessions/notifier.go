package sessions

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/tailrace/lobby-backend/pkg/logger"
)

// Publisher is the slice of the redis client the notifier depends on.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channel string) (*redis.PubSub, error)
}

// Notifier fans a session change out to whoever is listening.
type Notifier interface {
	Broadcast(ctx context.Context, event ChangeEvent)
}

// Hub is an in-process notifier: every subscribed channel receives each
// broadcast event. Slow subscribers drop intermediate events rather than
// blocking the writer; they re-query on the next event anyway.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan ChangeEvent
}

// NewHub builds an empty in-process notifier.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan ChangeEvent)}
}

// Broadcast delivers the event to all current subscribers without blocking.
func (h *Hub) Broadcast(_ context.Context, event ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
			// replace the stale pending event with the fresh one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// Subscribe registers a listener. The returned func removes it.
func (h *Hub) Subscribe() (<-chan ChangeEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan ChangeEvent, 1)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
}

const changeChannel = "gtlobby:sessions:changes"

// RedisNotifier publishes change events on a shared channel so every API
// replica sees transitions made by its peers, and pumps received events into
// the local hub.
type RedisNotifier struct {
	client Publisher
	hub    *Hub
	logg   *logger.Logger
}

// NewRedisNotifier wires the cross-process notifier.
func NewRedisNotifier(client Publisher, hub *Hub, logg *logger.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, hub: hub, logg: logg}
}

// Broadcast publishes the event; a publish failure is logged, not surfaced,
// because the state transition itself already committed.
func (n *RedisNotifier) Broadcast(ctx context.Context, event ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logg.Error(ctx, "marshal session change", err)
		return
	}
	if err := n.client.Publish(ctx, changeChannel, payload); err != nil {
		n.logg.Error(ctx, "publish session change", err)
	}
	if n.hub != nil {
		n.hub.Broadcast(ctx, event)
	}
}

// Run consumes peer events until the context is cancelled. Events published
// by this process were already fanned out locally, so duplicates only cause a
// redundant re-query.
func (n *RedisNotifier) Run(ctx context.Context) error {
	sub, err := n.client.Subscribe(ctx, changeChannel)
	if err != nil {
		return err
	}
	defer sub.Close()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				n.logg.Warn(ctx, "dropping malformed session change payload")
				continue
			}
			if n.hub != nil {
				n.hub.Broadcast(ctx, event)
			}
		}
	}
}
