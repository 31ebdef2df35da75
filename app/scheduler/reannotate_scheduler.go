// Package scheduler runs periodic maintenance jobs
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/robfig/cron/v3"
)

const defaultReannotateSpec = "@daily"

// jobTimeout bounds a single re-annotation pass
const jobTimeout = 30 * time.Minute

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Reannotator re-runs device detection over every part
type Reannotator interface {
	Reannotate(ctx context.Context) (*dto.ReannotateResponse, error)
}

// ReannotateScheduler keeps part device fields in step with the catalog
type ReannotateScheduler struct {
	reannotator Reannotator
	logger      *log.Logger
	spec        string

	cron *cron.Cron
	mu   sync.Mutex // one pass at a time
}

// NewReannotateScheduler validates spec and builds the scheduler. An empty spec means daily.
func NewReannotateScheduler(reannotator Reannotator, logger *log.Logger, spec string) (*ReannotateScheduler, error) {
	if spec == "" {
		spec = defaultReannotateSpec
	}
	if _, err := cronParser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid reannotate schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = log.Default()
	}

	return &ReannotateScheduler{
		reannotator: reannotator,
		logger:      logger,
		spec:        spec,
		cron:        cron.New(cron.WithLocation(time.UTC), cron.WithParser(cronParser)),
	}, nil
}

// Start schedules the job and returns a function that stops it and waits for a running pass
func (s *ReannotateScheduler) Start(parent context.Context) (func(), error) {
	ctx, cancel := context.WithCancel(parent)

	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule reannotate job: %w", err)
	}
	s.cron.Start()
	s.logger.Printf("scheduler: reannotate job scheduled (%s)", s.spec)

	return func() {
		cancel()
		<-s.cron.Stop().Done()
	}, nil
}

// RunOnce performs a single pass. Overlapping calls are skipped.
func (s *ReannotateScheduler) RunOnce(ctx context.Context) {
	if !s.mu.TryLock() {
		s.logger.Printf("scheduler: reannotate already running, skipping")
		return
	}
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	started := time.Now()
	res, err := s.reannotator.Reannotate(ctx)
	if err != nil {
		s.logger.Printf("scheduler: reannotate failed: %v", err)
		return
	}
	s.logger.Printf("scheduler: reannotate scanned=%d updated=%d failed=%d took=%s",
		res.Scanned, res.Updated, res.Failed, time.Since(started).Round(time.Millisecond))
}
