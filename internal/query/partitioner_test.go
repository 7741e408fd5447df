package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateTwoDimensions(t *testing.T) {
	t.Parallel()

	p := NewPartitioner(
		[]string{"go", "rust"},
		[]string{"stars:100..500", "stars:>500"},
		nil,
	)

	queries := p.Generate()
	require.Len(t, queries, 4)
	require.ElementsMatch(t, []string{
		"language:go stars:100..500",
		"language:go stars:>500",
		"language:rust stars:100..500",
		"language:rust stars:>500",
	}, queries)
}

func TestGenerateThreeDimensionsWithFallbacks(t *testing.T) {
	t.Parallel()

	p := NewPartitioner(
		[]string{"go"},
		[]string{"stars:10..50"},
		[]string{"created:2020-01-01..2020-12-31", "created:2021-01-01..2021-12-31"},
	)

	queries := p.Generate()
	// 1x1x2 primaries plus one 1x1 fallback without the year term.
	require.Len(t, queries, 3)
	require.Equal(t, "language:go stars:10..50 created:2020-01-01..2020-12-31", queries[0])
	require.Equal(t, "language:go stars:10..50 created:2021-01-01..2021-12-31", queries[1])
	require.Equal(t, "language:go stars:10..50", queries[2])
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	p := NewPartitioner(
		[]string{"python", "java"},
		[]string{"stars:>1000"},
		[]string{"created:<2015-01-01"},
	)

	require.Equal(t, p.Generate(), p.Generate())
}

func TestGenerateAllDistinct(t *testing.T) {
	t.Parallel()

	p := NewPartitioner(
		[]string{"go", "rust", "python"},
		[]string{"stars:10..100", "stars:>100"},
		[]string{"created:2019-01-01..2019-12-31"},
	)

	queries := p.Generate()
	seen := make(map[string]struct{}, len(queries))
	for _, q := range queries {
		_, dup := seen[q]
		require.Falsef(t, dup, "duplicate query %q", q)
		seen[q] = struct{}{}
	}
}

func TestGenerateEmptyDimensions(t *testing.T) {
	t.Parallel()

	require.Empty(t, NewPartitioner(nil, nil, nil).Generate())
	require.Empty(t, NewPartitioner([]string{"go"}, nil, nil).Generate())
}
