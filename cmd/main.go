package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/asaskevich/EventBus"
	"github.com/avwatch/pilot-tracker/internal/config"
	"github.com/avwatch/pilot-tracker/internal/extractors"
	"github.com/avwatch/pilot-tracker/internal/logger"
	"github.com/avwatch/pilot-tracker/internal/metrics"
	"github.com/avwatch/pilot-tracker/internal/notifier"
	"github.com/avwatch/pilot-tracker/internal/repositories"
	"github.com/avwatch/pilot-tracker/internal/services"
	log "github.com/sirupsen/logrus"
)

func runTracker(ctx context.Context, cfg *config.Config, jobs *repositories.Jobs,
	runs *repositories.Runs, bus EventBus.Bus) {

	reconciler, err := services.NewReconciler(jobs)
	if err != nil {
		log.Fatalf("can't create reconciler: %v", err)
	}
	reconciler.WithGlobalCloseSweep(cfg.Scraper.GlobalCloseSweep)

	sources, err := extractors.FromTargets(cfg.Scraper.Targets, cfg.Scraper.MaxRequestsPerSecond)
	if err != nil {
		log.Fatalf("can't create extractors: %v", err)
	}

	tracker, err := services.NewTracker(bus, reconciler, runs, jobs, sources, cfg.Scraper.ScrapeInterval)
	if err != nil {
		log.Fatalf("can't create tracker: %v", err)
	}
	tracker.WithRelevanceFilter(cfg.Scraper.PilotJobsOnly, cfg.Scraper.MinimumPilotScore)

	go tracker.Run(ctx)
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(cfg.Logger)
	defer logger.Cleanup()

	metrics.StartMetricsServer()

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	err = dbContext.Migrate()
	if err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	jobs := repositories.NewJobsRepository(dbContext.DB)
	runs := repositories.NewRunsRepository(dbContext.DB)
	bus := EventBus.New()

	if last, err := runs.LastFinished(ctx); err == nil && last != nil {
		log.Infof("last completed cycle finished at %v: %v jobs found, %v opened, %v closed",
			last.FinishedAt, last.JobsFound, last.JobsOpened, last.JobsClosed)
	}

	tgNotifier, err := notifier.NewNotifier(cfg.Telegram, bus)
	if err != nil {
		log.Fatalf("can't create notifier: %v", err)
	}

	cleaner, err := services.NewRetentionCleaner(jobs, runs, cfg.Scraper.RetentionDays)
	if err != nil {
		log.Fatalf("can't create retention cleaner: %v", err)
	}
	defer cleaner.Stop()

	runTracker(ctx, cfg, jobs, runs, bus)

	<-ctx.Done()

	log.Info("Shutting down services...")
	tgNotifier.Stop()
	log.Info("Services stopped.")
}
