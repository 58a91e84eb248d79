// Package events announces committed tree mutations to other processes.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Type string

const (
	TypeItemCreated     Type = "item_created"
	TypeItemUpdated     Type = "item_updated"
	TypeItemMoved       Type = "item_moved"
	TypeItemsSwapped    Type = "items_swapped"
	TypeSubtreeCopied   Type = "subtree_copied"
	TypeSubtreeRemoved  Type = "subtree_removed"
	TypeChildrenRemoved Type = "children_removed"
	TypeMapCreated      Type = "map_created"
)

// Event describes one committed mutation of a single map
type Event struct {
	Type          Type           `json:"type"`
	OwnerID       string         `json:"owner_id"`
	GroupID       int            `json:"group_id"`
	ItemIDs       []int          `json:"item_ids,omitempty"`
	Coords        []string       `json:"coords,omitempty"`
	IDMap         map[string]int `json:"id_map,omitempty"`
	AffectedCount int            `json:"affected_count"`
	At            time.Time      `json:"at"`
}

// Publisher delivers events. Implementations log failures instead of
// returning them; a mutation has already committed when it is announced.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// redisClient is the subset of the go-redis client used for publishing
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisPublisher struct {
	client redisClient
	prefix string
	logger *slog.Logger
}

// NewRedisPublisher publishes to "<prefix>:<ownerId>,<groupId>"
func NewRedisPublisher(client redisClient, prefix string, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "event_publisher"),
	}
}

func (p *RedisPublisher) Channel(ownerID string, groupID int) string {
	return p.prefix + ":" + ownerID + "," + strconv.Itoa(groupID)
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	channel := p.Channel(event.OwnerID, event.GroupID)
	logger := p.logger.With("operation", "publish", "type", event.Type, "channel", channel)

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to encode event", "error", err)
		return
	}

	receivers, err := p.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		logger.Warn("Failed to publish event", "error", err)
		return
	}
	logger.Debug("Event published", "receivers", receivers)
}
