package main

import (
	"context"
	"log"
	"net/http"

	"glasswire/api"
	"glasswire/config"
	"glasswire/events"
	"glasswire/images"
	"glasswire/pipeline"
	"glasswire/providers"
	"glasswire/push"
	"glasswire/scheduler"
	"glasswire/storage"
	"glasswire/transform"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Blob store: S3 when configured, in-memory for local development.
	var blob storage.Blob
	if cfg.S3Bucket != "" {
		s3Blob, err := storage.NewS3Blob(ctx, storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Prefix:       cfg.S3Prefix,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			log.Fatalf("failed to connect to S3: %v", err)
		}
		blob = s3Blob
		log.Printf("✅ Using S3 blob store (bucket: %s)", cfg.S3Bucket)
	} else {
		blob = storage.NewMemoryBlob()
		log.Println("⚠️  No S3 bucket configured, using in-memory blob store")
	}

	// KV store: Redis when configured, in-memory otherwise.
	var kv storage.KV
	if cfg.RedisAddr != "" {
		redisKV, err := storage.NewRedisKV(ctx, storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		kv = redisKV
		log.Printf("✅ Using Redis KV store (%s)", cfg.RedisAddr)
	} else {
		kv = storage.NewMemoryKV()
		log.Println("⚠️  No Redis configured, using in-memory KV store")
	}

	articleRepo := storage.NewArticleRepo(blob)
	index := storage.NewRecencyIndex(kv)
	subscriptionRepo := storage.NewSubscriptionRepo(kv)
	limiter := storage.NewRateLimiter(kv)

	registry := providers.NewRegistry()
	registry.Register(providers.NewHackerNews())
	registry.Register(providers.NewWikipedia())
	registry.Register(providers.NewReddit())
	registry.Register(providers.NewEksisozluk(cfg.SerperAPIKey))
	registry.Register(providers.NewWebrazzi(config.EnrichTimeout))
	registry.Register(providers.NewBBC(config.EnrichTimeout))
	registry.Register(providers.NewT24(config.EnrichTimeout))

	transformer := transform.New(
		transform.NewCohereGenerator(cfg.CohereAPIKey, cfg.TransformModel),
		transform.Style(cfg.PromptStyle),
	)
	if !transformer.Configured() {
		log.Println("⚠️  No Cohere API key, articles will be stored untransformed")
	}

	imageService := images.New(images.Config{
		EnableAI:       cfg.EnableAIImages,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		UnsplashAPIKey: cfg.UnsplashAPIKey,
	}, articleRepo)

	pushService := push.New(cfg, subscriptionRepo)
	if pushService == nil {
		log.Println("⚠️  No VAPID keys, push notifications disabled")
	}

	publisher, err := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Fatalf("failed to connect to Kafka: %v", err)
	}
	defer publisher.Close()

	pipe := pipeline.New(registry, articleRepo, index, transformer, imageService, pushService, publisher, transform.Style(cfg.PromptStyle))

	sched := scheduler.New(pipe, cfg.CrawlCron)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	r := api.NewRouter(&api.Deps{
		Config:        cfg,
		Articles:      articleRepo,
		Index:         index,
		Subscriptions: subscriptionRepo,
		Limiter:       limiter,
		Registry:      registry,
		Transformer:   transformer,
		Pipeline:      pipe,
		Push:          pushService,
		Scheduler:     sched,
	})

	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /health")
	log.Println("  GET  /api/articles")
	log.Println("  GET  /api/articles/:id")
	log.Println("  GET  /api/articles/:id/variants")
	log.Println("  GET  /thumbnails/:file")
	log.Println("  POST /api/subscriptions")
	log.Println("  POST /api/subscriptions/test")
	log.Println("  POST /api/admin/crawl")
	log.Println("  POST /api/admin/transform")
	log.Println("  POST /api/admin/clean")
	log.Println("  GET  /api/admin/providers")

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
