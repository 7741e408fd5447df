// Package dedup tracks the set of repository identifiers already yielded in
// the current crawl run.
package dedup

import (
	"sync"

	"github.com/JakeFAU/github-stars-crawler/internal/crawler"
)

// SeenSet is a grow-only, mutex-guarded set of node IDs. It is the single
// source of truth for whether a repository has already been yielded
// downstream in this run. Not persisted; a fresh run starts empty.
type SeenSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSeenSet returns an empty SeenSet.
func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[string]struct{})}
}

// FilterFresh returns the subset of repos not previously seen and marks them
// as seen. The check-and-mark is atomic with respect to concurrent callers:
// the lock covers both, so two racing workers can never both report the same
// identifier as fresh. No I/O happens under the lock.
func (s *SeenSet) FilterFresh(repos []crawler.Repo) []crawler.Repo {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []crawler.Repo
	for _, r := range repos {
		if _, ok := s.seen[r.NodeID]; ok {
			continue
		}
		s.seen[r.NodeID] = struct{}{}
		fresh = append(fresh, r)
	}
	return fresh
}

// TotalSeen reports how many unique identifiers have been seen so far.
func (s *SeenSet) TotalSeen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
