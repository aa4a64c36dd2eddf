// Package cache mirrors live status and transaction changes into Redis for
// dashboards that should not poll the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"fuel_tracker/internal/config"
	"fuel_tracker/internal/fuel"
)

const (
	VehicleGeoKey       = "fleet:vehicles:geo"
	BowserGeoKey        = "fleet:bowsers:geo"
	TransactionsChannel = "fuel:transactions"
)

type LiveCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLiveCache(ctx context.Context, cfg config.RedisConfig) (*LiveCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.StatusTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &LiveCache{client: client, ttl: ttl}, nil
}

func (c *LiveCache) Close() error {
	return c.client.Close()
}

func (c *LiveCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func VehicleKey(unitID int64) string { return fmt.Sprintf("vehicle:%d:status", unitID) }
func BowserKey(unitID int64) string  { return fmt.Sprintf("bowser:%d:status", unitID) }

// Publish writes one tick's changes in a single pipeline.
func (c *LiveCache) Publish(ctx context.Context, ch fuel.Changes) error {
	pipe := c.client.Pipeline()

	for _, v := range ch.Vehicles {
		key := VehicleKey(v.UnitID)
		pipe.HSet(ctx, key, map[string]interface{}{
			"unit_id":     v.UnitID,
			"fuel_level":  v.FuelLevel,
			"odometer":    v.Odometer,
			"recorded_at": v.RecordedAt.Unix(),
			"tick_id":     ch.TickID,
		})
		pipe.Expire(ctx, key, c.ttl)
		if v.Latitude != nil && v.Longitude != nil {
			pipe.GeoAdd(ctx, VehicleGeoKey, &redis.GeoLocation{
				Name:      strconv.FormatInt(v.UnitID, 10),
				Longitude: *v.Longitude,
				Latitude:  *v.Latitude,
			})
		}
	}

	for _, b := range ch.Bowsers {
		key := BowserKey(b.UnitID)
		pipe.HSet(ctx, key, map[string]interface{}{
			"unit_id":         b.UnitID,
			"fuel_level":      b.FuelLevel,
			"total_dispensed": b.TotalDispensed,
			"recorded_at":     b.RecordedAt.Unix(),
			"tick_id":         ch.TickID,
		})
		pipe.Expire(ctx, key, c.ttl)
		if b.Latitude != nil && b.Longitude != nil {
			pipe.GeoAdd(ctx, BowserGeoKey, &redis.GeoLocation{
				Name:      strconv.FormatInt(b.UnitID, 10),
				Longitude: *b.Longitude,
				Latitude:  *b.Latitude,
			})
		}
	}

	for _, tx := range ch.Transactions {
		payload, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction %s: %w", tx.ID, err)
		}
		pipe.Publish(ctx, TransactionsChannel, payload)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// VehicleState reads back a vehicle's cached status; empty when expired.
func (c *LiveCache) VehicleState(ctx context.Context, unitID int64) (map[string]string, error) {
	return c.client.HGetAll(ctx, VehicleKey(unitID)).Result()
}

func (c *LiveCache) BowserState(ctx context.Context, unitID int64) (map[string]string, error) {
	return c.client.HGetAll(ctx, BowserKey(unitID)).Result()
}
