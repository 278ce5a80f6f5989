package service

import (
	"time"

	"questTracker/internal/legacy"
)

type Option func(*QuestService)

// WithClock replaces time.Now for last-modified stamps and the progress cache.
func WithClock(now func() time.Time) Option {
	return func(s *QuestService) {
		s.now = now
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *QuestService) {
		s.cacheTTL = ttl
	}
}

func WithImporter(importer *legacy.Importer) Option {
	return func(s *QuestService) {
		s.importer = importer
	}
}
