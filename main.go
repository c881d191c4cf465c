package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"flow-api/api"
	"flow-api/services"
	"flow-api/storage"
)

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	usersTableName := os.Getenv("USERS_TABLE")
	entitiesTableName := os.Getenv("ENTITIES_TABLE")
	syncQueueName := os.Getenv("SYNC_QUEUE")
	if connStr == "" || usersTableName == "" || entitiesTableName == "" || syncQueueName == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, usersTableName, entitiesTableName, syncQueueName)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)

	sessionTTL := envDuration("SESSION_TTL", 30*24*time.Hour)
	deduperTTL := envDuration("DEDUPER_TTL", 24*time.Hour)
	cacheTTL := envDuration("CACHE_TTL", 5*time.Minute)

	sessions := api.NewSessions(rc, sessionTTL)
	deduper := api.NewRedisDeduper(rc, deduperTTL)
	cached := storage.NewCache(store, rc, cacheTTL)

	testMode := os.Getenv("AUTH_TEST_MODE") == "1"
	var auth *api.Auth
	if testMode {
		auth = api.NewAuth(nil, "")
	} else {
		clientID := os.Getenv("GOOGLE_CLIENT_ID")
		if clientID == "" {
			log.Fatal("missing Google auth config")
		}
		jwks, err := keyfunc.Get(googleJWKSURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, clientID)
	}

	tokenKey := os.Getenv("ACCESS_TOKEN_KEY")
	if tokenKey == "" {
		log.Fatal("missing ACCESS_TOKEN_KEY")
	}
	tokens, err := api.NewTokenCodec([]byte(tokenKey))
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warnf("tracer shutdown: %v", err)
		}
	}()

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	logger := log.New()
	api.Register(e, api.Deps{
		Store:    cached,
		Queue:    store,
		Sessions: sessions,
		Auth:     auth,
		Deduper:  deduper,
		Pocket:   services.NewPocket(os.Getenv("POCKET_CONSUMER_KEY")),
		Shelf:    services.NewGoodreads(os.Getenv("GOODREADS_KEY")),
		Tokens:   tokens,
		Log:      logger,

		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		GoogleProjectName: os.Getenv("GOOGLE_PROJECT_NAME"),
		AgentAuthKey:      os.Getenv("API_AI_AUTH_KEY"),
		FBVerifyToken:     os.Getenv("FB_VERIFY_TOKEN"),
		CronKey:           os.Getenv("CRON_KEY"),
	})

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid %s: %v", name, err)
		}
		return d
	}
	return fallback
}
