package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"saccobot/internal/entities"
)

const defaultMemoryTurns = 6

// ConversationMemory stores the last few turns per chat in Redis so the
// generative fallback can see recent context. Without Redis it degrades
// to no memory rather than failing message handling.
type ConversationMemory struct {
	client   *redis.Client
	maxTurns int
}

func NewConversationMemory(redisURL string, maxTurns int) *ConversationMemory {
	if maxTurns <= 0 {
		maxTurns = defaultMemoryTurns
	}
	m := &ConversationMemory{maxTurns: maxTurns}
	if redisURL == "" {
		return m
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid REDIS_URL, conversation memory disabled")
		return m
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis unreachable, conversation memory disabled")
		return m
	}

	m.client = client
	return m
}

func (m *ConversationMemory) Configured() bool {
	return m.client != nil
}

func memoryKey(channel, chatID string) string {
	return fmt.Sprintf("conv:%s:%s", channel, chatID)
}

func (m *ConversationMemory) Push(channel, chatID, role, text string) {
	if m.client == nil {
		return
	}

	turn := entities.MemoryTurn{Role: role, Text: text, TS: time.Now()}
	raw, err := json.Marshal(turn)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := memoryKey(channel, chatID)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, raw)
	// Keep the newest maxTurns exchanges (user + bot entries).
	pipe.LTrim(ctx, key, int64(-m.maxTurns*2), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("failed to record conversation turn")
	}
}

func (m *ConversationMemory) Recent(channel, chatID string) []entities.MemoryTurn {
	if m.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raws, err := m.client.LRange(ctx, memoryKey(channel, chatID), 0, -1).Result()
	if err != nil {
		return nil
	}

	turns := make([]entities.MemoryTurn, 0, len(raws))
	for _, raw := range raws {
		var turn entities.MemoryTurn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns
}
