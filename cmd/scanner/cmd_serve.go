package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/api"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/delivery"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/reposter"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/scanner"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/scheduler"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/store"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/telegram"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/trigger"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scanner daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "scanner.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	stateStore := reposter.NewStateStore(cfg.StatePath())
	cache := trigger.NewCache(st)
	deliveryReg := delivery.NewRegistry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cache.Refresh(ctx); err != nil {
		return fmt.Errorf("warm trigger cache: %w", err)
	}

	// Self identities: the configured operator account plus, once the bot
	// is up, the bot's own account. Their messages never match or deliver.
	var selves []types.SelfIdentity
	if cfg.Self.AuthorID != 0 || cfg.Self.AuthorName != "" {
		selves = append(selves, types.SelfIdentity{ID: cfg.Self.AuthorID, Name: cfg.Self.AuthorName})
	}

	scn := scanner.New(st, st, cache, selves...)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Telegram.Token != "" {
		adapter, err := telegram.New(cfg.Telegram.Token, st, cache, stateStore)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		self := adapter.Self()
		selves = append(selves, self)
		scn.AddSelf(self)
		adapter.SetScanner(scn)

		deliveryReg.Register("telegram:", adapter.SendTo)

		if chatID := cfg.Reposter.AutoSubscribeChatID; chatID != 0 {
			added, err := stateStore.Subscribe(telegram.SubscriberFor(chatID))
			if err != nil {
				return fmt.Errorf("auto-subscribe chat %d: %w", chatID, err)
			}
			if added {
				slog.Info("auto-subscribed notification chat", "chat_id", chatID)
			}
		}

		g.Go(func() error { return adapter.Start(ctx) })
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	sched := scheduler.New(cfg.CacheRefreshSchedule, cache.Refresh)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start cache refresh scheduler: %w", err)
	}
	defer sched.Stop()

	poller := reposter.NewPoller(st, st, stateStore, deliveryReg, reposter.Options{
		Interval:   time.Duration(cfg.Reposter.PollIntervalSeconds) * time.Second,
		FetchLimit: cfg.Reposter.FetchLimit,
		Backfill:   cfg.Reposter.Backfill,
		Self:       selves,
	})
	g.Go(func() error { return poller.Run(ctx) })

	if cfg.HTTP.Enabled {
		apiSrv := api.NewServer(st, st, st, cache)
		httpServer := &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: apiSrv,
		}
		g.Go(func() error {
			slog.Info("api server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("api server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return httpServer.Close()
		})
	}

	slog.Info("scanner started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"poll_interval_seconds", cfg.Reposter.PollIntervalSeconds,
		"backfill", cfg.Reposter.Backfill,
		"pid_file", pidPath,
	)

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	slog.Info("shutting down")
	return nil
}
