// Package scheduler runs the crawl pipeline on a cron cadence.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"glasswire/config"
	"glasswire/pipeline"
)

type Scheduler struct {
	cron         *cron.Cron
	pipe         *pipeline.Pipeline
	spec         string
	crawlEntryID cron.EntryID
}

// New creates a scheduler that runs the pipeline on the given cron spec.
func New(pipe *pipeline.Pipeline, spec string) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		pipe: pipe,
		spec: spec,
	}
}

// Start registers the crawl job and starts the cron loop.
func (s *Scheduler) Start() error {
	id, err := s.cron.AddFunc(s.spec, func() {
		log.Println("[Cron] Starting scheduled crawl...")
		s.pipe.RunOnce(context.Background(), nil, config.DefaultCrawlLimit)
	})
	if err != nil {
		return err
	}
	s.crawlEntryID = id
	s.cron.Start()
	log.Printf("[Cron] Scheduler started (crawl: %s)", s.spec)
	return nil
}

// NextCrawlTime returns when the next scheduled crawl fires.
func (s *Scheduler) NextCrawlTime() time.Time {
	return s.cron.Entry(s.crawlEntryID).Next
}

// Stop halts the cron loop. Running jobs finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
