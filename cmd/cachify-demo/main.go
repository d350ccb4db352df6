// Command cachify-demo runs an HTTP server that fronts a deliberately slow
// "compute" endpoint with the full cachify stack: an L1/L2 orchestrator, a
// Redis-backed cross-instance invalidation backplane, and the request-cache
// middleware in exact-match mode.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/cachify/pkg/backplane"
	"github.com/Sternrassler/cachify/pkg/cachify"
	"github.com/Sternrassler/cachify/pkg/logging"
	"github.com/Sternrassler/cachify/pkg/reqcache"
	"github.com/Sternrassler/cachify/pkg/store"
)

func main() {
	logger := logging.Setup(logging.DefaultConfig())

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	port := getEnv("PORT", "8080")

	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", redisAddr).Msg("failed to connect to redis")
	}
	logger.Info().Str("addr", redisAddr).Msg("connected to redis")

	l1, err := store.NewMemoryStore(10_000)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create L1 store")
	}
	l2 := store.NewDistributedStore(redisClient)

	instanceID := uuid.NewString()
	transport := backplane.NewRedisTransport(redisClient)
	publisher := backplane.NewPublisher(backplane.PublisherConfig{
		Transport:  transport,
		Channel:    "cachify:invalidations",
		InstanceID: instanceID,
		Logger:     logger,
	})
	subscriber := backplane.NewSubscriber(backplane.SubscriberConfig{
		Transport:  transport,
		Channel:    "cachify:invalidations",
		InstanceID: instanceID,
		Logger:     logger,
	})

	softTimeout := 200 * time.Millisecond
	hardTimeout := 2 * time.Second

	opts := cachify.DefaultOptions()
	opts.DefaultTTL = 30 * time.Second
	opts.JitterRatio = 0.1
	opts.Resilience = cachify.ResilienceOptions{
		FailSafeMaxDuration:     5 * time.Minute,
		SoftTimeout:             &softTimeout,
		HardTimeout:             &hardTimeout,
		EnableBackgroundRefresh: true,
	}

	orchestrator, err := cachify.New(cachify.Config{
		L1:      l1,
		L2:      l2,
		Options: opts,
		Backplane: &cachify.BackplaneWiring{
			Publisher:  publisher,
			Subscriber: subscriber,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create orchestrator")
	}
	defer orchestrator.Close()

	mw := reqcache.New(reqcache.Config{
		Cache:  orchestrator,
		Policy: reqcache.DefaultPolicy(),
		Logger: logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/compute/", mw.Wrap(http.HandlerFunc(computeHandler)))

	addr := ":" + port
	logger.Info().Str("addr", addr).Msg("starting cachify-demo server")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// computeHandler simulates an expensive downstream call so the demo can
// show cache hits shaving the response latency down to near zero.
func computeHandler(w http.ResponseWriter, r *http.Request) {
	time.Sleep(500 * time.Millisecond)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"path":%q,"computed_at":%q}`, r.URL.Path, time.Now().Format(time.RFC3339Nano))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
