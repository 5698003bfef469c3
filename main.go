package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/saasforge/saasforge/backend/iam-service/handlers"
	"github.com/saasforge/saasforge/backend/iam-service/internal/config"
	"github.com/saasforge/saasforge/backend/iam-service/internal/database"
	"github.com/saasforge/saasforge/backend/iam-service/internal/orgaccess"
	"github.com/saasforge/saasforge/backend/iam-service/internal/provider"
	"github.com/saasforge/saasforge/backend/iam-service/internal/sessions"
	"github.com/saasforge/saasforge/backend/iam-service/internal/tokens"
	"github.com/saasforge/saasforge/backend/iam-service/internal/users"
	"github.com/saasforge/saasforge/backend/iam-service/pkg/cookies"
	"github.com/saasforge/saasforge/backend/iam-service/pkg/logger"
	"github.com/saasforge/saasforge/backend/iam-service/pkg/metrics"
	"github.com/saasforge/saasforge/backend/iam-service/pkg/middleware"
)

var startTime = time.Now()

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: env=%s mongo=%v redis=%v", cfg.Server.Environment, cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS for dev/test; production fronts this with a stricter
	// policy at the gateway.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	// Redis holds sessions, the blacklist, and the logout-all watermark;
	// the service cannot run without it.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatalf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
	}
	logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)

	// MongoDB holds users and org memberships. Retry with backoff to
	// tolerate startup races against the database container.
	ctx := context.Background()
	var mongoClient *mongo.Client
	const maxAttempts = 5
	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		mongoClient, err = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err == nil {
			break
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if err != nil {
		logger.Fatalf("could not connect to MongoDB after %d attempts: %v", maxAttempts, err)
	}
	defer func() { _ = mongoClient.Disconnect(ctx) }()
	logger.Infof("connected to MongoDB, database %s", cfg.MongoDB.Database)

	db := mongoClient.Database(cfg.MongoDB.Database)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Warnf("failed to ensure indexes: %v", err)
	}

	// Core wiring: session store, token signer, org-access directory, and
	// the provider that ties them together.
	store := sessions.NewRedisStore(redisClient, cfg.IAM.MaxSessionTTL)
	signer := tokens.NewSigner(cfg.IAM.JWTSecret, cfg.IAM.AccessTokenTTL)
	directory := orgaccess.NewMongoDirectory(db.Collection(database.MembershipsCollection))
	authProvider, err := provider.New(cfg, store, directory, signer)
	if err != nil {
		logger.Fatalf("failed to build auth provider: %v", err)
	}

	cookieCfg := cookies.Config{
		Secret:     cfg.IAM.CookieSecret,
		Secure:     cfg.IsProduction(),
		AccessTTL:  cfg.IAM.AccessTokenTTL,
		RefreshTTL: cfg.IAM.MaxSessionTTL,
	}
	guard := middleware.NewGuard(signer, authProvider, cookieCfg)
	userSvc := users.NewService(users.NewMongoRepository(db.Collection(database.UsersCollection)))

	var loginLimiter gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis {
			loginLimiter = middleware.RedisLoginAttemptLimiter(redisClient, cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window)
		} else {
			loginLimiter = middleware.LoginAttemptLimiter(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window)
		}
	}

	h := handlers.NewAuthHandler(cfg, userSvc, directory, authProvider, guard, cookieCfg)
	h.Register(r, loginLimiter)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// Ready only when both stores answer.
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"redis": redisClient.Ping(c.Request.Context()).Err() == nil,
			"mongo": mongoClient.Ping(c.Request.Context(), nil) == nil,
		}
		status := http.StatusOK
		state := "ready"
		if !deps["redis"] || !deps["mongo"] {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting iam service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
