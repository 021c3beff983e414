package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Report cache keys are report:<name>:<region>, region "all" for unscoped
const reportKeyFmt = "report:%s:%s"

// reportTTL keeps reports fresh enough for dashboards without recomputing
// the ledgers on every request
const reportTTL = 5 * time.Minute

var client *redis.Client

// Init initializes the Redis connection. On failure the client stays nil and
// every cache call degrades to a miss; the server keeps working.
func Init() error {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "redis"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient returns the Redis client, nil when caching is disabled
func GetClient() *redis.Client {
	return client
}

func reportKey(name, region string) string {
	if region == "" {
		region = "all"
	}
	return fmt.Sprintf(reportKeyFmt, name, region)
}

// GetCachedReport returns a cached report body if present
func GetCachedReport(ctx context.Context, name, region string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, reportKey(name, region)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// CacheReport stores a rendered report body
func CacheReport(ctx context.Context, name, region string, data []byte) {
	if client == nil {
		return
	}
	client.Set(ctx, reportKey(name, region), data, reportTTL)
}

// InvalidateReports drops every cached report. Called after any payment or
// delivery write since most reports read both ledgers.
func InvalidateReports(ctx context.Context) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, "report:*", 100).Iterator()
	for iter.Next(ctx) {
		client.Del(ctx, iter.Val())
	}
}
