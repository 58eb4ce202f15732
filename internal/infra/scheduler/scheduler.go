package scheduler

import (
	"context"
	"log"
	"time"

	"random_coffee_bot/internal/app" // For MatchingService interface

	"github.com/robfig/cron/v3"
)

// MatchingScheduler fires the two weekly activation points of the matching
// engine. It is constructor-injected wherever it is needed; there is no
// process-global handle.
type MatchingScheduler struct {
	cronEngine   *cron.Cron
	matchingSvc  app.MatchingService // Using the interface
	logger       *log.Logger
	cronSpecOpen string
	cronSpecPair string
}

func NewMatchingScheduler(
	matchingSvc app.MatchingService,
	logger *log.Logger,
	cronSpecOpen string, // e.g., "0 10 * * 1" (10:00 on Monday)
	cronSpecPair string, // e.g., "0 10 * * 2" (10:00 on Tuesday)
) *MatchingScheduler {
	return &MatchingScheduler{
		cronEngine:   cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		matchingSvc:  matchingSvc,
		logger:       logger,
		cronSpecOpen: cronSpecOpen,
		cronSpecPair: cronSpecPair,
	}
}

func (s *MatchingScheduler) Start() {
	s.logger.Println("INFO: Starting matching scheduler...")

	// Job that opens the weekly collection window
	_, err := s.cronEngine.AddFunc(s.cronSpecOpen, func() {
		s.logger.Println("INFO: Cron job triggered: open collection window.")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.matchingSvc.RunScheduledOpen(ctx); err != nil {
			s.logger.Printf("ERROR: Error during scheduled session open: %v", err)
		}
	})
	if err != nil {
		s.logger.Fatalf("FATAL: Could not add open-matching cron job: %v", err)
	}

	// Job that commits pairs for the current session
	_, err = s.cronEngine.AddFunc(s.cronSpecPair, func() {
		s.logger.Println("INFO: Cron job triggered: commit pairing.")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.matchingSvc.RunScheduledPairing(ctx); err != nil {
			s.logger.Printf("ERROR: Error during scheduled pairing: %v", err)
		}
	})
	if err != nil {
		s.logger.Fatalf("FATAL: Could not add commit-pairing cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Println("INFO: Matching scheduler started with jobs.")
}

func (s *MatchingScheduler) Stop() {
	s.logger.Println("INFO: Stopping matching scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Println("INFO: Matching scheduler gracefully stopped.")
}
