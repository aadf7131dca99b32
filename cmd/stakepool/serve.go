package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"StakePool/internal/api"
	"StakePool/internal/config"
	"StakePool/internal/ledger"
	"StakePool/internal/model"
	"StakePool/internal/notifier"
	"StakePool/internal/recorder"
	"StakePool/internal/scheduler"
	"StakePool/internal/store"
	"StakePool/internal/token"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pool with its HTTP API, scheduled reports and Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(globalFlags.configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

// runServe wires every component and blocks until ctx is cancelled or a component fails.
func runServe(ctx context.Context, cfg *config.Config) error {
	log.Printf("[INFO] %s starting...", programName)
	params := cfg.PoolParams()

	bank, err := openBank(cfg)
	if err != nil {
		return err
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		tn    *notifier.TelegramNotifier
		sched *scheduler.Scheduler
	)
	pool, err := ledger.NewPool(ledger.Config{
		Params:       params,
		Transfer:     bank,
		Store:        store.NewFileStore(cfg.State.File),
		PromRegistry: reg,
		OnEvent:      func(evt model.LedgerEvent) { sched.HandleEvent(evt) },
	})
	if err != nil {
		return fmt.Errorf("init pool: %w", err)
	}

	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sched = scheduler.NewScheduler(ctx, pool, tn, rec)
	} else {
		log.Println("[INFO] telegram not configured, notifications disabled")
		sched = scheduler.NewScheduler(ctx, pool, nil, rec)
	}
	sched.NotifyEvents = cfg.Telegram.NotifyEvents
	if err := sched.RegisterAll(cfg.Schedule.ReportCron, cfg.Schedule.SnapshotCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := api.NewServer(api.Options{Ledger: pool, Bank: bank, History: rec, Gatherer: reg})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.API.Listen)
	})
	if tn != nil {
		g.Go(func() error {
			if err := tn.SetCommands(gctx, sched.Commands()); err != nil {
				log.Printf("[WARN] publish bot commands: %v", err)
			}
			log.Println("[INFO] Telegram polling started")
			tn.StartPolling(gctx, sched.HandleCommand)
			return nil
		})
	}
	if cfg.Schedule.RunOnStart {
		log.Println("[INFO] run_on_start enabled, sending pool report now")
		g.Go(func() error {
			sched.RunReportNow()
			return nil
		})
	}

	log.Printf("[INFO] %s is running: owner=%s stake=%s reward=%s rate=%d%% locked=%s",
		programName, params.Owner, params.StakeToken, params.RewardToken, pool.RewardRatePercent(), pool.LockedTime())
	err = g.Wait()
	log.Printf("[INFO] %s stopped", programName)
	return err
}

// openBank restores the token bank, seeding genesis balances the first time it is created.
func openBank(cfg *config.Config) (*token.Bank, error) {
	params := cfg.PoolParams()
	bank, existed, err := token.LoadBank(cfg.Tokens.StateFile, params.Custodian, params.StakeToken, params.RewardToken)
	if err != nil {
		return nil, fmt.Errorf("load token bank: %w", err)
	}
	if existed {
		return bank, nil
	}
	for _, g := range cfg.Tokens.Genesis {
		amount, err := model.ParseAmount(g.Amount)
		if err != nil {
			return nil, err
		}
		tok, addr := model.TokenID(g.Token), model.Address(g.Address)
		if err := bank.Mint(tok, addr, amount); err != nil {
			return nil, fmt.Errorf("genesis mint %s to %s: %w", g.Token, g.Address, err)
		}
		if g.Approve {
			if err := bank.Approve(tok, addr, amount); err != nil {
				return nil, fmt.Errorf("genesis approve %s for %s: %w", g.Token, g.Address, err)
			}
		}
		log.Printf("[INFO] genesis: %s %s to %s", g.Amount, g.Token, g.Address)
	}
	return bank, nil
}
