package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	httpadapter "floorboard/internal/adapters/http"
	"floorboard/internal/adapters/monday"
	pg "floorboard/internal/adapters/postgres"
	"floorboard/internal/config"
	"floorboard/internal/domain"
	"floorboard/internal/platform/logger"
	"floorboard/internal/ports"
	boardsvc "floorboard/internal/services/board"
	scansvc "floorboard/internal/services/scan"
	"floorboard/internal/workers/reconciler"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logg := logger.New(cfg.Server.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pg.Migrate(ctx, cfg.Database.URL); err != nil {
		log.Fatalf("migrate error: %v", err)
	}
	db, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	labels := domain.StageLabels{
		Stage1: cfg.Scanner.Stage1Label,
		Stage2: cfg.Scanner.Stage2Label,
		Stage3: cfg.Scanner.Stage3Label,
	}

	store := pg.NewScanStore(db, labels)
	tokens := monday.NewTokenStore(cfg.Monday.APIToken)
	client := monday.NewClient(cfg.Monday, tokens, logg)

	var _ ports.ScanStore = store
	var _ ports.BoardFetcher = client
	var _ ports.ColumnUpdater = client

	codec := scansvc.NewCodec(cfg.Scanner.Secret, cfg.Scanner.TokenMaxAge)
	scans := scansvc.New(store, client, labels, cfg.Monday.StatusColumnID, cfg.Monday.CheckedInColumnID, logg)
	board := boardsvc.New(client, cfg.Board, logg)

	srv := httpadapter.New(scans, codec, board, tokens, cfg.Server.PublicBaseURL, logg)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	if cfg.Scanner.ReconcileInterval > 0 {
		go reconciler.Run(ctx, store, scans, cfg.Scanner.ReconcileInterval, logg)
		logg.Info("reconciler started", "interval", cfg.Scanner.ReconcileInterval)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.Server.ListenAddr, r) }()
	logg.Info("listening", "addr", cfg.Server.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logg.Info("shutting down", "signal", sig.String())
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatal(fmt.Errorf("server error: %w", err))
	}
}
