package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*Redis)(nil)

// Redis is a Store backed by Redis, for deployments where several portal
// processes (kiosk controllers, signage stations) share one operator session.
// Change notifications ride a pub/sub channel under the same prefix, so every
// subscriber hears about logins and logouts regardless of which process
// performed them.
type Redis struct {
	client  *redis.Client
	prefix  string
	channel string
}

// NewRedis creates a Redis-backed store. All keys and the notification channel
// are namespaced under prefix (for example "campaigns:session:").
func NewRedis(client *redis.Client, prefix string) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if prefix == "" {
		prefix = "campaigns:session:"
	}
	return &Redis{
		client:  client,
		prefix:  prefix,
		channel: prefix + "events",
	}, nil
}

func (r *Redis) key(name string) string {
	return r.prefix + name
}

func (r *Redis) get(ctx context.Context, name string) (string, error) {
	val, err := r.client.Get(ctx, r.key(name)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", name, err)
	}
	return val, nil
}

func (r *Redis) AccessToken(ctx context.Context) (string, error) {
	return r.get(ctx, KeyAccessToken)
}

func (r *Redis) RefreshToken(ctx context.Context) (string, error) {
	return r.get(ctx, KeyRefreshToken)
}

func (r *Redis) SetTokens(ctx context.Context, access, refresh string) error {
	// MSET is atomic, so a concurrent reader sees both tokens or neither.
	err := r.client.MSet(ctx,
		r.key(KeyAccessToken), access,
		r.key(KeyRefreshToken), refresh,
	).Err()
	if err != nil {
		return fmt.Errorf("redis set tokens: %w", err)
	}

	r.publish(ctx,
		Event{Key: KeyAccessToken, Present: true},
		Event{Key: KeyRefreshToken, Present: true},
	)
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	err := r.client.Del(ctx, r.key(KeyAccessToken), r.key(KeyRefreshToken)).Err()
	if err != nil {
		return fmt.Errorf("redis clear tokens: %w", err)
	}

	r.publish(ctx,
		Event{Key: KeyAccessToken, Present: false},
		Event{Key: KeyRefreshToken, Present: false},
	)
	return nil
}

func (r *Redis) RememberedUsername(ctx context.Context) (string, error) {
	return r.get(ctx, KeyRememberedUsername)
}

func (r *Redis) SetRememberedUsername(ctx context.Context, username string) error {
	var err error
	if username == "" {
		err = r.client.Del(ctx, r.key(KeyRememberedUsername)).Err()
	} else {
		err = r.client.Set(ctx, r.key(KeyRememberedUsername), username, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("redis set remembered username: %w", err)
	}

	r.publish(ctx, Event{Key: KeyRememberedUsername, Present: username != ""})
	return nil
}

func (r *Redis) Watch(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)
	pubsub := r.client.Subscribe(ctx, r.channel)

	go func() {
		defer close(ch)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					continue
				}
				select {
				case ch <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}

// publish is best-effort: a lost notification degrades cross-process sync, not
// the stored state itself.
func (r *Redis) publish(ctx context.Context, events ...Event) {
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			continue
		}
		r.client.Publish(ctx, r.channel, string(payload))
	}
}
