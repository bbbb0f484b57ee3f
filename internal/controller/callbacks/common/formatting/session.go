package formatting

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
)

// FormatSession карточка консультации; counterpart имя второй стороны встречи
func FormatSession(session *model.GuidanceSession, counterpart string, loc *time.Location) string {
	display := GetGuidanceStatusDisplay(session.Status)
	start := session.ScheduledAt()
	if loc != nil {
		start = start.In(loc)
	}
	end := start.Add(time.Duration(session.DurationMinutes) * time.Minute)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>%s</b>\n", display.Emoji, html.EscapeString(counterpart))
	fmt.Fprintf(&sb, "📅 %s, %s (%s)\n", start.Format("02.01.2006"), FormatTimeRange(start, end), FormatDuration(session.DurationMinutes))
	fmt.Fprintf(&sb, "📊 Статус: %s", display.Text)

	if session.StudentNotes != "" {
		fmt.Fprintf(&sb, "\n💬 %s", html.EscapeString(session.StudentNotes))
	}
	if session.SupervisorMessage != "" {
		fmt.Fprintf(&sb, "\n👨‍🏫 %s", html.EscapeString(session.SupervisorMessage))
	}
	if session.CancelReason != "" {
		fmt.Fprintf(&sb, "\n❌ Причина отмены: %s", html.EscapeString(session.CancelReason))
	}
	if session.SessionSummary != "" {
		fmt.Fprintf(&sb, "\n📝 Итоги: %s", html.EscapeString(session.SessionSummary))
	}
	return sb.String()
}

// FormatProgress сводка этапов работы с полосой прогресса
func FormatProgress(milestones []model.Milestone, progress model.MilestoneProgress, next *model.Milestone) string {
	if progress.Total == 0 {
		return "📋 Этапы работы ещё не созданы."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📈 Прогресс: %s %d%% (%d из %d)\n\n",
		progressBar(progress.PercentComplete), progress.PercentComplete, progress.Completed, progress.Total)

	for _, m := range milestones {
		display := GetMilestoneStatusDisplay(m.Status)
		fmt.Fprintf(&sb, "%s %d. %s", display.Emoji, m.OrderIndex, html.EscapeString(m.Title))
		if m.Status == model.MilestoneStatusInProgress && m.ProgressPercentage > 0 {
			fmt.Fprintf(&sb, " (%d%%)", m.ProgressPercentage)
		}
		sb.WriteString("\n")
	}

	if next != nil {
		fmt.Fprintf(&sb, "\n➡️ Следующий этап: %s", html.EscapeString(next.Title))
	} else {
		sb.WriteString("\n🎉 Все этапы приняты!")
	}
	return sb.String()
}

func progressBar(percent int) string {
	const width = 10
	filled := percent * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
}

// Counterpart имя второй стороны встречи для роли зрителя
func Counterpart(session *model.GuidanceSession, viewer model.Role) string {
	if viewer == model.RoleSupervisor {
		return session.StudentName
	}
	return session.SupervisorName
}

// FormatSupervisorRequest карточка заявки на второго руководителя для руководителя
func FormatSupervisorRequest(req *model.SupervisorRequest) string {
	display := GetSupervisorRequestStatusDisplay(req.Status)
	text := fmt.Sprintf("%s <b>%s</b> просит стать вторым руководителем\n📊 Статус: %s",
		display.Emoji, html.EscapeString(req.StudentName), display.Text)
	if req.Message != "" {
		text += "\n💬 " + html.EscapeString(req.Message)
	}
	return text
}
