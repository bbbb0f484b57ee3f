package service

import (
	"sort"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
)

// SummarizeMilestones считает общий прогресс по этапам работы
func SummarizeMilestones(milestones []model.Milestone) model.MilestoneProgress {
	progress := model.MilestoneProgress{Total: len(milestones)}
	for i := range milestones {
		if milestones[i].IsCompleted() {
			progress.Completed++
		}
	}

	if progress.Total > 0 {
		progress.PercentComplete = progress.Completed * 100 / progress.Total
	}

	return progress
}

// NextMilestone возвращает незавершённый этап с наименьшим порядковым номером,
// nil когда все этапы завершены
func NextMilestone(milestones []model.Milestone) *model.Milestone {
	remaining := make([]model.Milestone, 0, len(milestones))
	for _, m := range milestones {
		if !m.IsCompleted() {
			remaining = append(remaining, m)
		}
	}

	if len(remaining) == 0 {
		return nil
	}

	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].OrderIndex < remaining[j].OrderIndex
	})

	next := remaining[0]
	return &next
}
