package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BlobEmoji/Artemis/bot"
	"github.com/BlobEmoji/Artemis/command"
	"github.com/BlobEmoji/Artemis/config"
	"github.com/BlobEmoji/Artemis/db"
	"github.com/BlobEmoji/Artemis/handler"
	"github.com/BlobEmoji/Artemis/handler/info"
	"github.com/BlobEmoji/Artemis/handler/moderation"
	"github.com/BlobEmoji/Artemis/httpapi"
	"github.com/BlobEmoji/Artemis/logging"
	"github.com/BlobEmoji/Artemis/plaque"
	"github.com/BlobEmoji/Artemis/prompt"
	"github.com/BlobEmoji/Artemis/queue"
	"github.com/BlobEmoji/Artemis/reupload"
	"github.com/BlobEmoji/Artemis/stats"
)

const topicInterval = time.Hour

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and process submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(runCtx, cfg, logger)
		},
	}
}

// components holds everything the bot runs on, built once in dependency
// order.
type components struct {
	store      *db.Store
	schedule   *prompt.Schedule
	reupload   *reupload.Service
	plaques    *plaque.Renderer
	stats      *stats.Syncer
	bot        *bot.Bot
	messenger  *bot.Discord
	controller *queue.Controller
	info       *info.Service
	router     *handler.Router
}

func buildComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	c := &components{}

	store, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	c.store = store

	c.schedule = prompt.NewSchedule(cfg.Event, nil)

	mirror, err := reupload.NewMirror(cfg.Mirror)
	if err != nil {
		c.close()
		return nil, err
	}
	c.reupload = reupload.New(cfg.Mirror, mirror, logger)

	if c.plaques, err = plaque.NewRenderer(); err != nil {
		c.close()
		return nil, err
	}
	c.stats = stats.NewSyncer(cfg.Statistics, cfg.Event, store, logger)

	if c.bot, err = bot.New(cfg.Token, cfg.Discord, logger); err != nil {
		c.close()
		return nil, err
	}
	c.messenger = bot.NewDiscord(c.bot.Session(), cfg.Discord, moderation.Controls())

	c.controller = queue.New(queue.Deps{
		Store:      store,
		Schedule:   c.schedule,
		Messenger:  c.messenger,
		Reuploader: c.reupload,
		Plaques:    c.plaques,
		Stats:      c.stats,
		Event:      cfg.Event,
		RoleID:     cfg.Discord.EventRoleID,
		Logger:     logger,
	})
	c.info = info.NewService(store, c.schedule)

	c.router = handler.NewRouter(logger)
	moderation.New(c.controller, logger).Register(c.router)
	info.NewHandler(c.info, c.reupload, cfg.Event.Name, cfg.Discord.EmbedColor, logger).Register(c.router)
	return c, nil
}

func (c *components) close() {
	if c.bot != nil {
		_ = c.bot.Close()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	lockPath := filepath.Join(cfg.DataDir, "artemis.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another artemis instance is already running")
	}
	defer func() { _ = lock.Unlock() }()

	c, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.bot.Start(ctx, c.router, c.controller, command.AllCommands, c.messenger.VerifyResources); err != nil {
		return err
	}
	logger.Info("artemis started",
		zap.String("lock", lockPath),
		zap.String("phase", c.schedule.Phase().String()),
		zap.Bool("statistics", c.stats.Enabled()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.bot.RunTopicUpdater(gctx, c.schedule.Topic, topicInterval)
	})
	if cfg.HTTP.Addr != "" {
		g.Go(func() error {
			return httpapi.Serve(gctx, cfg.HTTP.Addr, httpapi.NewRouter(c.store, c.info, logger), logger)
		})
	}
	err = g.Wait()
	logger.Info("shutting down")
	return err
}
