package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/jyanimaulik/task-manager/api"
	"github.com/jyanimaulik/task-manager/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Fatal("missing DATABASE_URL")
	}
	defaultLimit := 50
	if v := os.Getenv("TASKS_PAGE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid TASKS_PAGE_LIMIT: %v", err)
		}
		if n <= 0 {
			log.Fatalf("invalid TASKS_PAGE_LIMIT: must be greater than zero")
		}
		defaultLimit = n
	}

	ctx := context.Background()
	store, err := storage.New(ctx, connStr)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	var deduper api.Deduper
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		ttl := 24 * time.Hour
		if v := os.Getenv("DEDUPER_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid DEDUPER_TTL: %v", err)
			}
			ttl = d
		}
		deduper = api.NewRedisDeduper(redis.NewClient(redisOpts), ttl)
	} else {
		log.Info("REDIS_CONNECTION_STRING not set; create deduplication disabled")
	}

	e := echo.New()
	// Serverless deployments route the function behind a path prefix; strip it
	// before dispatch so handlers see the canonical paths.
	if prefix := os.Getenv("PATH_PREFIX"); prefix != "" {
		e.Pre(middleware.Rewrite(map[string]string{prefix + "/*": "/$1"}))
	}
	allowOrigins := []string{"*"}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		allowOrigins = strings.Split(v, ",")
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
	}))
	e.Use(otelecho.Middleware("task-manager"))
	e.Use(api.RequestIDMiddleware())

	logger := log.New()
	api.Register(e, store, deduper, defaultLimit, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
