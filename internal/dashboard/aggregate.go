// Package dashboard computes a user's statistics from their result history.
//
// The aggregate functions are pure: they never fail and never touch storage.
// Results pointing at simulations or roles that no longer exist are skipped.
package dashboard

import (
	"slices"

	"github.com/terra-clan/simulex-engine/internal/models"
)

// DefaultRecentLimit is the number of entries in the recent activity list
const DefaultRecentLimit = 5

// Stats summarizes completed results
type Stats struct {
	CompletedSimulations int     `json:"completedSimulations"`
	CompletedTasks       int     `json:"completedTasks"`
	AverageScore         float64 `json:"averageScore"`
	AverageAccuracy      float64 `json:"averageAccuracy"`
	AverageSpeed         float64 `json:"averageSpeed"`
	TotalMinutes         float64 `json:"totalMinutes"`
}

// RoleScore is the mean score of a user's completed results under one role
type RoleScore struct {
	RoleID string  `json:"roleId"`
	Title  string  `json:"title"`
	Color  string  `json:"color,omitempty"`
	Icon   string  `json:"icon,omitempty"`
	Count  int     `json:"count"`
	Score  float64 `json:"score"`
}

// CompletionStats counts distinct completed simulations and averages the
// scores of completed results. Missing scores count as 0.
func CompletionStats(results []*models.Result) Stats {
	var stats Stats
	var score, accuracy, speed float64
	simulations := make(map[string]struct{})

	for _, r := range results {
		if r == nil || !r.Completed {
			continue
		}

		stats.CompletedTasks++
		simulations[r.SimulationID] = struct{}{}
		score += value(r.Score)
		accuracy += value(r.Accuracy)
		speed += value(r.Speed)

		if r.EndTime != nil {
			stats.TotalMinutes += r.EndTime.Sub(r.StartTime).Minutes()
		}
	}

	stats.CompletedSimulations = len(simulations)
	if stats.CompletedTasks > 0 {
		n := float64(stats.CompletedTasks)
		stats.AverageScore = score / n
		stats.AverageAccuracy = accuracy / n
		stats.AverageSpeed = speed / n
	}

	return stats
}

// RolePerformance groups completed, scored results by the role of their simulation
func RolePerformance(results []*models.Result, simulations map[string]*models.Simulation, roles map[string]*models.Role) map[string]RoleScore {
	sums := make(map[string]float64)
	perf := make(map[string]RoleScore)

	for _, r := range results {
		if r == nil || !r.Completed || r.Score == nil {
			continue
		}

		sim, ok := simulations[r.SimulationID]
		if !ok || sim == nil {
			continue
		}
		role, ok := roles[sim.RoleID]
		if !ok || role == nil {
			continue
		}

		entry := perf[role.ID]
		entry.RoleID = role.ID
		entry.Title = role.Title
		entry.Color = role.Color
		entry.Icon = role.Icon
		entry.Count++
		perf[role.ID] = entry
		sums[role.ID] += *r.Score
	}

	for id, entry := range perf {
		entry.Score = sums[id] / float64(entry.Count)
		perf[id] = entry
	}

	return perf
}

// RecentActivity returns the latest completed results, newest first.
// A non-positive limit uses DefaultRecentLimit.
func RecentActivity(results []*models.Result, limit int) []*models.Result {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	completed := make([]*models.Result, 0, len(results))
	for _, r := range results {
		if r != nil && r.Completed {
			completed = append(completed, r)
		}
	}

	sortNewestFirst(completed)
	if len(completed) > limit {
		completed = completed[:limit]
	}
	return completed
}

// History returns every result, newest first
func History(results []*models.Result) []*models.Result {
	out := make([]*models.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out
}

// sortNewestFirst orders by end time, or start time when unfinished. Ties keep input order.
func sortNewestFirst(results []*models.Result) {
	slices.SortStableFunc(results, func(a, b *models.Result) int {
		return b.ActivityTime().Compare(a.ActivityTime())
	})
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
