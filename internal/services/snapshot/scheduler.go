package snapshot

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler recomputes all portfolio snapshots on a cron schedule
type Scheduler struct {
	service *Service
	cron    *cron.Cron
	log     zerolog.Logger
}

// NewScheduler creates a snapshot scheduler
func NewScheduler(service *Service, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		service: service,
		cron:    cron.New(cron.WithSeconds()),
		log:     log.With().Str("service", "snapshot_scheduler").Logger(),
	}
}

// Start registers the batch run and starts the cron loop. An empty
// schedule disables scheduling.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		s.log.Info().Msg("snapshot scheduling disabled")
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		date := time.Now().UTC().Truncate(24 * time.Hour)
		s.log.Info().Time("snapshot_date", date).Msg("scheduled snapshot run starting")

		reports := s.service.RunAll(context.Background(), date)
		s.log.Info().Int("portfolios", len(reports)).Msg("scheduled snapshot run finished")
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("schedule", schedule).Msg("snapshot scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
