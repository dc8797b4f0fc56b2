// Package jobs runs the periodic background work: the per-domain aggregation
// sweep and daily retention cleanup.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sitewatch/internal/config"
	"sitewatch/internal/database"
)

// Scheduler is responsible for running background jobs
type Scheduler struct {
	dbm     *database.DBManager
	logger  *slog.Logger
	cfg     *config.Config
	ctx     context.Context
	cancel  context.CancelFunc
	enabled bool
	running bool

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	// Job instances
	aggregation *AggregationJob
	retention   *RetentionJob

	// Tickers for each job type
	aggregationTicker *time.Ticker
	retentionTicker   *time.Ticker
}

// NewScheduler builds the scheduler and its job instances.
func NewScheduler(cfg *config.Config, dbm *database.DBManager, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())

	aggregation, err := NewAggregationJob(cfg, dbm, NewLoggingSessionCleaner(logger), logger)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Scheduler{
		dbm:         dbm,
		logger:      logger,
		cfg:         cfg,
		ctx:         ctx,
		cancel:      cancel,
		enabled:     true,
		aggregation: aggregation,
		retention:   NewRetentionJob(cfg, dbm, logger),
	}, nil
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func() error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	if err := jobFunc(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	if s.running {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...")
	s.running = true

	s.startAggregationJob()
	s.startRetentionJob()

	return nil
}

func (s *Scheduler) startAggregationJob() {
	interval := time.Duration(s.cfg.JobIntervalSeconds) * time.Second
	s.logger.Info("Starting aggregation job", slog.Duration("interval", interval))
	s.aggregationTicker = time.NewTicker(interval)

	run := func() {
		s.executeJobSafely("aggregation", func() error {
			return s.aggregation.Run(s.ctx)
		})
	}

	go func() {
		run()

		for {
			select {
			case <-s.aggregationTicker.C:
				run()
			case <-s.ctx.Done():
				s.logger.Info("Aggregation job stopped")
				return
			}
		}
	}()
}

func (s *Scheduler) startRetentionJob() {
	interval := 24 * time.Hour
	s.logger.Info("Starting retention job", slog.Duration("interval", interval))
	s.retentionTicker = time.NewTicker(interval)

	go func() {
		if err := s.retention.Run(); err != nil {
			s.logger.Error("Error in initial retention job", slog.Any("error", err))
		}

		for {
			select {
			case <-s.retentionTicker.C:
				if err := s.retention.Run(); err != nil {
					s.logger.Error("Error in retention job", slog.Any("error", err))
				}
			case <-s.ctx.Done():
				s.logger.Info("Retention job stopped")
				return
			}
		}
	}()
}

// Stop halts all background jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")
	s.enabled = false

	if s.aggregationTicker != nil {
		s.aggregationTicker.Stop()
	}
	if s.retentionTicker != nil {
		s.retentionTicker.Stop()
	}

	s.cancel()
	s.running = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.running
}
