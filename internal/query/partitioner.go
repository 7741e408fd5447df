// Package query enumerates the search queries that partition the repository
// search space.
package query

import "fmt"

// Partitioner generates search queries by combining language, star-range,
// and creation-year dimensions. Each combination is a distinct search query
// expected to stay under the API's per-query result cap; narrower star bands
// cover the dense low-star regions while broad bands suffice at the top.
//
// Partitioning is static: the generator never observes actual result counts,
// so a bucket that still exceeds the cap silently loses its tail. That is a
// deliberate precision/completeness trade-off, not a bug.
type Partitioner struct {
	languages  []string
	starRanges []string
	yearRanges []string
}

// NewPartitioner builds a Partitioner over the given dimensions. The year
// dimension may be empty, in which case only the two-dimensional queries are
// produced.
func NewPartitioner(languages, starRanges, yearRanges []string) *Partitioner {
	return &Partitioner{
		languages:  languages,
		starRanges: starRanges,
		yearRanges: yearRanges,
	}
}

// Generate returns the full ordered query list: every language x star-range x
// year-range combination, followed by language x star-range fallbacks that
// drop the year dimension to catch repositories with missing creation
// metadata. Pure and deterministic; the same dimensions always produce the
// same list.
func (p *Partitioner) Generate() []string {
	queries := make([]string, 0, len(p.languages)*len(p.starRanges)*(len(p.yearRanges)+1))

	if len(p.yearRanges) == 0 {
		for _, lang := range p.languages {
			for _, stars := range p.starRanges {
				queries = append(queries, fmt.Sprintf("language:%s %s", lang, stars))
			}
		}
		return queries
	}

	for _, lang := range p.languages {
		for _, stars := range p.starRanges {
			for _, year := range p.yearRanges {
				queries = append(queries, fmt.Sprintf("language:%s %s %s", lang, stars, year))
			}
		}
	}

	// Fallbacks intentionally overlap the primary queries; the deduplicator
	// absorbs the overlap.
	for _, lang := range p.languages {
		for _, stars := range p.starRanges {
			queries = append(queries, fmt.Sprintf("language:%s %s", lang, stars))
		}
	}

	return queries
}
