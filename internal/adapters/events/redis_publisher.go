package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
	"yard-placement-service/internal/domain"
	"yard-placement-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultChannel      = "yard:placements"
	DefaultOccupancyKey = "yard:occupancy"
)

// Wire form of a placement event.
type eventMessage struct {
	Type            string     `json:"type"`
	PlacementID     string     `json:"placement_id"`
	ContainerID     int64      `json:"container_id"`
	ContainerNumber string     `json:"container_number"`
	Slot            string     `json:"slot"`
	From            string     `json:"from,omitempty"`
	Length          int        `json:"length"`
	Status          string     `json:"status"`
	PlacedBy        string     `json:"placed_by"`
	PlacedAt        time.Time  `json:"placed_at"`
	ReleasedAt      *time.Time `json:"released_at,omitempty"`
	At              time.Time  `json:"at"`
}

// Publishes placement events on a Redis channel and keeps a per-zone count
// of occupied slots in a hash, for yard visualization and billing consumers.
type RedisPublisher struct {
	client       redis.UniversalClient
	channel      string
	occupancyKey string
}

var _ ports.EventPublisher = (*RedisPublisher)(nil)

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client, channel: DefaultChannel, occupancyKey: DefaultOccupancyKey}
}

// NewRedisPublisherFromURL parses a redis:// URL and checks the server is reachable.
func NewRedisPublisherFromURL(ctx context.Context, url string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis publisher: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis publisher: ping: %w", err)
	}
	return NewRedisPublisher(client), nil
}

func (p *RedisPublisher) Channel() string { return p.channel }

func (p *RedisPublisher) Publish(ctx context.Context, ev domain.PlacementEvent) error {
	if p.client == nil {
		return errors.New("redis publisher: client is nil")
	}

	msg := eventMessage{
		Type:            string(ev.Type),
		PlacementID:     ev.Record.ID.String(),
		ContainerID:     ev.Record.ContainerID,
		ContainerNumber: ev.Record.ContainerNumber,
		Slot:            ev.Record.Slot.String(),
		Length:          int(ev.Record.Length),
		Status:          string(ev.Record.Status),
		PlacedBy:        ev.Record.PlacedBy,
		PlacedAt:        ev.Record.PlacedAt,
		ReleasedAt:      ev.Record.ReleasedAt,
		At:              ev.At,
	}
	if ev.From != nil {
		msg.From = ev.From.String()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis publisher: encode %s event: %w", ev.Type, err)
	}

	_, err = p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		switch ev.Type {
		case domain.EventCommitted:
			pipe.HIncrBy(ctx, p.occupancyKey, ev.Record.Slot.Zone, 1)
		case domain.EventReleased:
			pipe.HIncrBy(ctx, p.occupancyKey, ev.Record.Slot.Zone, -1)
		case domain.EventRelocated:
			if ev.From != nil && ev.From.Zone != ev.Record.Slot.Zone {
				pipe.HIncrBy(ctx, p.occupancyKey, ev.From.Zone, -1)
				pipe.HIncrBy(ctx, p.occupancyKey, ev.Record.Slot.Zone, 1)
			}
		}
		pipe.Publish(ctx, p.channel, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publisher: publish %s event: %w", ev.Type, err)
	}
	return nil
}

// Occupancy returns the published per-zone slot counts.
func (p *RedisPublisher) Occupancy(ctx context.Context) (map[string]int64, error) {
	raw, err := p.client.HGetAll(ctx, p.occupancyKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis publisher: read occupancy: %w", err)
	}
	out := make(map[string]int64, len(raw))
	for zone, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis publisher: zone %s count %q: %w", zone, v, err)
		}
		out[zone] = n
	}
	return out, nil
}

func (p *RedisPublisher) Close() error { return p.client.Close() }
