package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreURL_Level0(t *testing.T) {
	assert.Equal(t, 0, ScoreURL("https://example.com/mandi/price-report"))
	assert.Equal(t, 0, ScoreURL("https://example.com/apmc/arrivals?commodity=wheat"))
}

func TestScoreURL_Level1(t *testing.T) {
	assert.Equal(t, 1, ScoreURL("https://example.com/daily-bulletin"))
}

func TestScoreURL_Level3(t *testing.T) {
	assert.Equal(t, 3, ScoreURL("https://example.com/archive/2020"))
}

func TestScoreURL_Level2Default(t *testing.T) {
	assert.Equal(t, 2, ScoreURL("https://example.com/about-us"))
}

func TestScoreURL_Level0WinsOverLevel3(t *testing.T) {
	// A URL matching both a level-0 and a level-3 keyword scores 0.
	assert.Equal(t, 0, ScoreURL("https://example.com/mandi/archive"))
}

func TestScoreURLWithDetails_ReportsMatches(t *testing.T) {
	level, matched := ScoreURLWithDetails("https://example.com/mandi-price")
	assert.Equal(t, 0, level)
	assert.NotEmpty(t, matched)
}

func TestScoreURL_RangeInvariant(t *testing.T) {
	urls := []string{
		"https://example.com/mandi",
		"https://example.com/daily",
		"https://example.com/archive",
		"https://example.com/other",
	}
	for _, u := range urls {
		level := ScoreURL(u)
		assert.GreaterOrEqual(t, level, 0)
		assert.LessOrEqual(t, level, 3)
	}
}
