package services

import (
	"math"
	"sort"

	"github.com/soaringjerry/Huddle/internal/models"
)

// responseStats are the numbers every analysis and summary agrees on.
type responseStats struct {
	Count        int
	AverageAsIs  float64
	AverageToBe  float64
	AverageGap   float64
	Distribution models.GapDistribution
	Tags         []models.TagCount
}

func computeStats(rs []models.Response) responseStats {
	st := responseStats{Count: len(rs), Tags: []models.TagCount{}}
	if len(rs) == 0 {
		return st
	}
	var asIs, toBe, gap float64
	tags := map[string]int{}
	for _, r := range rs {
		g := r.ComputeGap()
		asIs += float64(r.AsIs.Score)
		toBe += float64(r.ToBe.Score)
		gap += float64(g)
		switch {
		case g > 0:
			st.Distribution.Positive++
		case g < 0:
			st.Distribution.Negative++
		default:
			st.Distribution.Zero++
		}
		if r.Solution != nil {
			for _, t := range r.Solution.Tags {
				tags[t]++
			}
		}
	}
	n := float64(len(rs))
	st.AverageAsIs = round2(asIs / n)
	st.AverageToBe = round2(toBe / n)
	st.AverageGap = round2(gap / n)
	st.Tags = sortTagCounts(tags)
	return st
}

func sortTagCounts(counts map[string]int) []models.TagCount {
	out := make([]models.TagCount, 0, len(counts))
	for tag, c := range counts {
		out = append(out, models.TagCount{Tag: tag, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
