package project

import "time"

// ListOptions provides filtering for listing and searching projects.
type ListOptions struct {
	IncludeProvisional bool
	Stage              Stage
	Limit              int
	Offset             int
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithResolver enables remote-first loading.
func WithResolver(r Resolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithNotifier registers the receiver of committed-write notifications.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithSearcher enables full-text search.
func WithSearcher(search Searcher) Option {
	return func(s *Service) { s.search = search }
}
