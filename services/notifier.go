package services

import (
	"context"
	"encoding/json"
	"fmt"

	"vidsense/logger"

	"github.com/redis/go-redis/v9"
)

const (
	EventProcessingProgress = "processing_progress"
	EventProcessingComplete = "processing_complete"
	EventProcessingFailed   = "processing_failed"
)

// Event is the payload pushed to the owning user's sessions.
type Event struct {
	Event       string `json:"event"`
	VideoID     string `json:"video_id"`
	Progress    *int   `json:"progress,omitempty"`
	Sensitivity string `json:"sensitivity,omitempty"`
	Status      string `json:"status"`
}

// Notifier delivers processing events scoped to one user. Delivery is
// best effort; a failed emit never fails the processing run.
type Notifier interface {
	Publish(ctx context.Context, userID string, event Event)
}

// UserEventChannel is the pub/sub channel carrying one user's events.
func UserEventChannel(userID string) string {
	return fmt.Sprintf("events:user:%s", userID)
}

// UserEventPattern matches every user's event channel.
const UserEventPattern = "events:user:*"

type RedisNotifier struct {
	redis *redis.Client
}

func NewRedisNotifier(redisClient *redis.Client) *RedisNotifier {
	return &RedisNotifier{redis: redisClient}
}

func (n *RedisNotifier) Publish(ctx context.Context, userID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("marshal %s event for user %s: %v", event.Event, userID, err)
		return
	}
	if err := n.redis.Publish(ctx, UserEventChannel(userID), payload).Err(); err != nil {
		logger.Errorf("publish %s event for user %s: %v", event.Event, userID, err)
	}
}
