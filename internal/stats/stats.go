// Package stats derives statistics from a snapshot of PR records. Pure
// functions, no side effects.
package stats

import (
	"math"

	"github.com/alan/pr-tracker/internal/model"
)

// Aggregate computes status counts, the merge rate and the average time to
// merge over the given records. An empty snapshot yields all-zero
// statistics; there is no division by zero.
func Aggregate(records []model.PRRecord) model.Stats {
	s := model.Stats{Total: len(records)}
	if s.Total == 0 {
		return s
	}

	var mergeDays float64
	var mergedWithTimes int
	for i := range records {
		rec := &records[i]
		switch rec.Status() {
		case model.StatusOpen, model.StatusDraft:
			s.Open++
		case model.StatusClosed:
			s.Closed++
		case model.StatusMerged:
			s.Merged++
			if rec.CreatedAt != nil && rec.MergedAt != nil {
				mergeDays += rec.MergedAt.Sub(*rec.CreatedAt).Hours() / 24
				mergedWithTimes++
			}
		}
	}

	s.MergeRatePct = int(math.Round(float64(s.Merged) / float64(s.Total) * 100))
	if mergedWithTimes > 0 {
		avg := mergeDays / float64(mergedWithTimes)
		s.AvgMergeDays = math.Round(avg*100) / 100
	}
	return s
}
