package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/engagement-platform/internal/aggregate"
	"github.com/example/engagement-platform/internal/comments"
	"github.com/example/engagement-platform/internal/handlers"
	"github.com/example/engagement-platform/internal/moderation"
	"github.com/example/engagement-platform/internal/platform/auth"
	"github.com/example/engagement-platform/internal/platform/cache"
	"github.com/example/engagement-platform/internal/platform/config"
	"github.com/example/engagement-platform/internal/platform/db"
	"github.com/example/engagement-platform/internal/platform/events"
	"github.com/example/engagement-platform/internal/platform/httpserver"
	"github.com/example/engagement-platform/internal/platform/logging"
	"github.com/example/engagement-platform/internal/platform/natsconn"
	"github.com/example/engagement-platform/internal/platform/run"
	"github.com/example/engagement-platform/internal/reactions"
	"github.com/example/engagement-platform/internal/search"
	"github.com/example/engagement-platform/internal/store"
	"github.com/example/engagement-platform/internal/worker"
)

const summaryCacheTTL = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	commentStore, reactionStore, ready, closeStores := initStores(cfg, log)
	if closeStores != nil {
		defer closeStores()
	}

	summaryCache := initCache(cfg, log)
	nc, js := initNATS(cfg, log)
	if nc != nil {
		defer nc.Close()
	}
	pub := events.New(js, log)

	reactionEngine := reactions.New(reactionStore, pub)
	commentManager := comments.NewManager(commentStore, reactionEngine, pub, cfg.ModerationPrescreen)
	machine := moderation.NewMachine(commentStore, pub)
	aggEngine := aggregate.New(reactionStore, commentStore, summaryCache)
	index := search.NewIndex(commentStore)

	// Write paths drop the cached summary of the content they touched.
	reactionEngine.SetInvalidator(aggEngine)
	commentManager.SetInvalidator(aggEngine)
	machine.SetInvalidator(aggEngine)

	verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{ReadyFunc: ready})

	// Public reads. Auth is optional here: a valid token personalizes
	// visibility (authors see their own pending comments, summaries carry
	// the viewer's reaction), its absence means an anonymous viewer.
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalUser(verifier))
		r.Get("/v1/comments/{comment_id}", handlers.GetComment(commentManager))
		r.Get("/v1/comments/{comment_id}/thread", handlers.GetThread(commentManager))
		r.Get("/v1/comments/{comment_id}/replies", handlers.ListReplies(commentManager))
		r.Get("/v1/content/{content_id}/comments", handlers.ListComments(commentManager))
		r.Get("/v1/content/{content_id}/reactions", handlers.ListReactions(reactionEngine))
		r.Get("/v1/content/{content_id}/reactions/summary", handlers.ReactionSummary(aggEngine))
		r.Get("/v1/content/{content_id}/reactions/intensity", handlers.IntensityAnalysis(aggEngine))
		r.Get("/v1/reactions/{reaction_id}", handlers.GetReaction(reactionEngine))
		r.Get("/v1/content/{content_id}/comments/statistics", handlers.CommentStatistics(aggEngine))
		r.Get("/v1/trending/hashtags", handlers.TrendingHashtags(aggEngine))
		r.Get("/v1/trending/reactions", handlers.TrendingReactions(aggEngine))
		r.Get("/v1/search/comments", handlers.SearchComments(index))
		r.Get("/v1/search/hashtags/{tag}", handlers.SearchByHashtag(index))
	})

	// Authenticated writes.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Post("/v1/comments", handlers.CreateComment(commentManager))
		r.Patch("/v1/comments/{comment_id}", handlers.UpdateComment(commentManager))
		r.Delete("/v1/comments/{comment_id}", handlers.DeleteComment(commentManager))
		r.Post("/v1/comments/{comment_id}/like", handlers.ToggleLike(commentManager))
		r.Post("/v1/comments/{comment_id}/flag", handlers.FlagComment(machine))
		r.Get("/v1/content/{content_id}/reaction", handlers.GetOwnReaction(reactionEngine))
		r.Put("/v1/content/{content_id}/reaction", handlers.React(reactionEngine))
		r.Delete("/v1/content/{content_id}/reaction", handlers.RemoveReaction(reactionEngine))
	})

	// Moderation surface.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier), auth.RequireModerator)
		r.Get("/v1/moderation/queue", handlers.ModerationQueue(machine))
		r.Post("/v1/moderation/comments/{comment_id}", handlers.ModerateComment(machine))
		r.Post("/v1/moderation/comments/{comment_id}/recount", handlers.RecountComment(commentManager))
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if js != nil {
			consumer := worker.NewRepairConsumer(commentManager, log)
			go func() {
				if err := consumer.Run(ctx, js); err != nil {
					log.Warn("repair consumer stopped", zap.Error(err))
				}
			}()
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStores selects the persistence backend. Production requires a working
// Postgres connection; development falls back to the in-memory stores.
func initStores(cfg config.AppConfig, log *zap.Logger) (store.CommentStore, store.ReactionStore, func() error, func()) {
	if cfg.DatabaseURL == "" {
		if cfg.Production() {
			log.Error("DATABASE_URL is required in production")
			_ = log.Sync()
			run.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using in-memory stores (development only)")
		ready := func() error { return nil }
		return store.NewInMemoryCommentStore(), store.NewInMemoryReactionStore(), ready, nil
	}

	pool, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connect", zap.Error(err))
		_ = log.Sync()
		run.Exit(1)
	}
	log.Info("postgres connected")

	ready := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}
	return store.NewPostgresCommentStore(pool), store.NewPostgresReactionStore(pool), ready, pool.Close
}

// initCache connects the summary cache. Redis being down degrades reads to
// the store; it never blocks startup.
func initCache(cfg config.AppConfig, log *zap.Logger) *cache.RedisCache {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, summary caching disabled")
		return nil
	}
	c, err := cache.NewRedisCache(cfg.RedisURL, summaryCacheTTL)
	if err != nil {
		log.Warn("redis unavailable, summary caching disabled", zap.Error(err))
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		log.Warn("redis ping failed, summary caching disabled", zap.Error(err))
		return nil
	}
	log.Info("redis connected")
	return c
}

// initNATS connects the event stream. NATS being down disables publishing
// and the repair worker; it never blocks startup.
func initNATS(cfg config.AppConfig, log *zap.Logger) (*nats.Conn, nats.JetStreamContext) {
	nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL, Name: cfg.ServiceName})
	if err != nil {
		log.Warn("nats unavailable, events disabled", zap.Error(err))
		return nil, nil
	}
	js, err := nc.JetStream()
	if err != nil {
		log.Warn("jetstream unavailable, events disabled", zap.Error(err))
		nc.Close()
		return nil, nil
	}
	log.Info("nats connected")
	return nc, js
}
