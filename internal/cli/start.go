package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"group-quiz-bot/internal/app"
	"group-quiz-bot/internal/config"
	"group-quiz-bot/internal/infra/files"
	"group-quiz-bot/internal/infra/memory"
	pgloader "group-quiz-bot/internal/infra/postgres"
	infraredis "group-quiz-bot/internal/infra/redis"
	transport "group-quiz-bot/internal/transport/http"
	"group-quiz-bot/internal/transport/telegram"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand that runs the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath, *port)
		},
	}
}

type stores struct {
	sessions app.SessionStore
	scores   app.ScoreLedger
	subs     app.SubscriptionSet
}

func runBot(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not configured: set telegram.token or TELEGRAM_BOT_TOKEN")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	loader, closeLoader, err := questionLoader(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeLoader()

	bank := memory.NewQuestionBank(loader, config.TTLDuration(cfg.Quiz.BankTTL, 5*time.Minute))
	if counts, err := bank.Count(ctx); err != nil {
		log.Printf("[bank] initial load failed: %v", err)
	} else {
		log.Printf("[bank] loaded subjects: %v", counts)
	}

	st := newStores(cfg, redisClient)
	feed := app.NewFeed()
	engine := app.NewQuizEngine(st.sessions, st.scores, bank, feed)

	api, err := telegram.NewAPI(cfg.Telegram.Token, config.TTLDuration(cfg.Telegram.RequestTimeout, 75*time.Second), cfg.Telegram.Debug)
	if err != nil {
		return fmt.Errorf("telegram auth: %w", err)
	}
	log.Printf("[telegram] authorized as @%s", api.Self.UserName)

	sender := telegram.NewSender(api)
	broadcaster := app.NewBroadcaster(engine, st.subs, sender, app.BroadcastOptions{
		Interval:    config.TTLDuration(cfg.Quiz.Interval, 30*time.Minute),
		SendTimeout: config.TTLDuration(cfg.Quiz.SendTimeout, 15*time.Second),
		MaxParallel: cfg.Quiz.MaxParallelSends,
	})
	bot := telegram.NewBot(api, api.Self.ID, sender, engine, broadcaster, cfg.Telegram.PollTimeout)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewMux(feed, engine),
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(gctx) })
	g.Go(func() error { return broadcaster.Run(gctx) })
	g.Go(func() error {
		log.Printf("serving http on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// questionLoader picks the bank source: Postgres when configured, question
// files otherwise, fronted by the Redis cache when Redis is available.
func questionLoader(ctx context.Context, cfg config.Config, redisClient *redis.Client) (memory.QuestionLoader, func(), error) {
	var (
		loader memory.QuestionLoader = files.NewQuestionLoader(cfg.Quiz.QuestionsDir)
		closer                       = func() {}
	)

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		loader, closer = pgloader.NewQuestionLoader(pool), pool.Close
	}

	if redisClient != nil {
		loader = infraredis.NewQuestionCache(redisClient, loader, config.TTLDuration(cfg.Quiz.BankTTL, 5*time.Minute))
	}
	return loader, closer, nil
}

func newStores(cfg config.Config, redisClient *redis.Client) stores {
	if redisClient == nil {
		return stores{
			sessions: memory.NewSessionStore(),
			scores:   memory.NewScoreLedger(),
			subs:     memory.NewSubscriptionSet(),
		}
	}
	return stores{
		sessions: infraredis.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 0)),
		scores:   infraredis.NewScoreLedger(redisClient),
		subs:     infraredis.NewSubscriptionSet(redisClient),
	}
}
