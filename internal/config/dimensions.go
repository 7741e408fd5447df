package config

// Default partitioning dimensions. Combining language, star range, and
// creation year keeps the true result count of any single search query under
// the API's 1,000-result cap: 20 languages x 8 star ranges x 10 year ranges
// gives 1,600 primary queries plus 160 year-free fallbacks.

var defaultLanguages = []string{
	"Python", "JavaScript", "TypeScript", "Java", "Go",
	"Rust", "C++", "C", "C#", "Ruby",
	"PHP", "Swift", "Kotlin", "Scala", "Shell",
	"HTML", "CSS", "Vue", "Dart", "R",
}

var defaultStarRanges = []string{
	"stars:>10000",
	"stars:1000..9999",
	"stars:500..999",
	"stars:100..499",
	"stars:50..99",
	"stars:20..49",
	"stars:10..19",
	"stars:1..9",
}

var defaultYearRanges = []string{
	"created:2024-01-01..2024-12-31",
	"created:2023-01-01..2023-12-31",
	"created:2022-01-01..2022-12-31",
	"created:2021-01-01..2021-12-31",
	"created:2020-01-01..2020-12-31",
	"created:2019-01-01..2019-12-31",
	"created:2018-01-01..2018-12-31",
	"created:2017-01-01..2017-12-31",
	"created:2016-01-01..2016-12-31",
	"created:<2016-01-01",
}
