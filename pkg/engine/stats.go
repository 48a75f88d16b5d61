package engine

import (
	"context"
	"math"

	"github.com/Waterbottle88/todolist-api/pkg/task"
)

// Stats is the aggregate view over one owner's live tasks.
type Stats struct {
	Total              int            `json:"total"`
	ByStatus           map[string]int `json:"by_status"`
	ByPriority         map[string]int `json:"by_priority"`
	AveragePriority    float64        `json:"average_priority"`
	CompletionRate     float64        `json:"completion_rate"`
	MostCommonPriority string         `json:"most_common_priority"`
	ProductivityScore  float64        `json:"productivity_score"`
	ProductivityBand   string         `json:"productivity_band"`
}

var allStatuses = []task.Status{task.StatusPending, task.StatusDone}

var allPriorities = []task.Priority{
	task.PriorityCritical,
	task.PriorityHigh,
	task.PriorityMedium,
	task.PriorityLow,
	task.PriorityLowest,
}

// Stats computes the aggregate figures. Every status and priority bucket
// is present in the output even when zero, and an empty task set yields
// zeroed figures rather than a division fault.
func (e *Engine) Stats(ctx context.Context, ownerID string) (*Stats, error) {
	byStatus, err := e.store.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	byPriority, err := e.store.CountByPriority(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		ByStatus:   make(map[string]int, len(allStatuses)),
		ByPriority: make(map[string]int, len(allPriorities)),
	}
	for _, s := range allStatuses {
		st.ByStatus[string(s)] = byStatus[s]
		st.Total += byStatus[s]
	}

	weighted := 0
	for _, p := range allPriorities {
		st.ByPriority[p.String()] = byPriority[p]
		weighted += int(p) * byPriority[p]
	}

	if st.Total == 0 {
		st.MostCommonPriority = "none"
		st.ProductivityBand = "No Data"
		return st, nil
	}

	done := byStatus[task.StatusDone]
	st.CompletionRate = round2(float64(done) / float64(st.Total) * 100)
	st.AveragePriority = round2(float64(weighted) / float64(st.Total))
	st.MostCommonPriority = mostCommonPriority(byPriority).String()

	// Volume bonus: a tenth of a point per task, capped at 10, on top of
	// the completion rate, capped at 100 overall.
	st.ProductivityScore = math.Min(st.CompletionRate+math.Min(float64(st.Total)/10, 10), 100)
	st.ProductivityBand = productivityBand(st.ProductivityScore)
	return st, nil
}

// mostCommonPriority picks the bucket with the highest count; ties go to
// the more urgent priority.
func mostCommonPriority(counts map[task.Priority]int) task.Priority {
	best := allPriorities[0]
	for _, p := range allPriorities[1:] {
		if counts[p] > counts[best] {
			best = p
		}
	}
	return best
}

func productivityBand(score float64) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	case score >= 40:
		return "Average"
	case score >= 20:
		return "Below Average"
	default:
		return "Poor"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
