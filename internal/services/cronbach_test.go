package services

import (
	"math"
	"testing"

	"github.com/soaringjerry/Huddle/internal/models"
)

// heroRow lays out one participant's HERO scores the way TeamSummary does.
func heroRow(h models.Hero) []float64 {
	return []float64{float64(h.Hope), float64(h.Efficacy), float64(h.Resilience), float64(h.Optimism)}
}

func TestCronbachAlphaConsistentHeroScores(t *testing.T) {
	rows := [][]float64{
		heroRow(models.Hero{Hope: 1, Efficacy: 1, Resilience: 1, Optimism: 1}),
		heroRow(models.Hero{Hope: 3, Efficacy: 3, Resilience: 3, Optimism: 3}),
		heroRow(models.Hero{Hope: 5, Efficacy: 5, Resilience: 5, Optimism: 5}),
	}
	if got := CronbachAlpha(rows); math.Abs(got-1) > 1e-9 {
		t.Fatalf("alpha = %f, want 1 for identical items", got)
	}
}

func TestCronbachAlphaMixedHeroScores(t *testing.T) {
	// Item variances 2/3, 2/3, 2/3, 2/9; total variance 74/9.
	rows := [][]float64{
		{2, 3, 1, 4},
		{3, 4, 2, 4},
		{4, 5, 3, 5},
	}
	want := 4.0 / 3.0 * (1 - (20.0/9.0)/(74.0/9.0))
	if got := CronbachAlpha(rows); math.Abs(got-want) > 1e-9 {
		t.Fatalf("alpha = %f, want %f", got, want)
	}
	for _, row := range rows {
		for _, v := range row {
			if !models.HeroRange.Contains(v) {
				t.Fatalf("fixture %v outside hero range", row)
			}
		}
	}
}

func TestCronbachAlphaDegenerateInputs(t *testing.T) {
	cases := []struct {
		name string
		rows [][]float64
	}{
		{"no respondents", nil},
		{"single item", [][]float64{{3}, {4}, {5}}},
		{"everyone identical", [][]float64{{2, 4, 3, 5}, {2, 4, 3, 5}, {2, 4, 3, 5}}},
		{"ragged rows", [][]float64{{1, 2, 3, 4}, {2, 3, 4}, {3, 4, 5, 5}}},
	}
	for _, tc := range cases {
		if got := CronbachAlpha(tc.rows); got != 0 {
			t.Fatalf("%s: alpha = %f, want 0", tc.name, got)
		}
	}
}

func TestCronbachAlphaClampsNegative(t *testing.T) {
	// Opposed items nearly cancel in the total, which drives raw alpha below 0.
	rows := [][]float64{
		{0, 5, 1, 3},
		{5, 0, 4, 1},
		{1, 4, 0, 5},
		{4, 1, 5, 0},
	}
	if got := CronbachAlpha(rows); got != 0 {
		t.Fatalf("alpha = %f, want clamped 0", got)
	}
}
