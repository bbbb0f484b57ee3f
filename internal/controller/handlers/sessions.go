package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// maxListedSessions сколько последних консультаций показывает /mysessions
const maxListedSessions = 10

// HandleMySessions обрабатывает /mysessions: ближайшие встречи и история
func (h *Handlers) HandleMySessions(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID
	actor := actorOf(user)

	upcoming, err := h.guidanceService.Upcoming(ctx, actor)
	if err != nil {
		h.reportError(ctx, b, chatID, err, "list upcoming guidance")
		return
	}

	sessions, err := h.guidanceService.List(ctx, actor, nil)
	if err != nil {
		h.reportError(ctx, b, chatID, err, "list guidance")
		return
	}

	if len(sessions) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 Консультаций с "+counterpartLine(user)+" пока нет.", nil)
		return
	}

	var sb strings.Builder
	if len(upcoming) > 0 {
		sb.WriteString("📅 <b>Ближайшие встречи</b>\n")
		for _, s := range upcoming {
			start := s.ScheduledAt().In(h.location)
			fmt.Fprintf(&sb, "• %s %s - %s\n",
				start.Format("02.01"), formatting.FormatTimeRange(start, s.EndsAt().In(h.location)),
				html.EscapeString(formatting.Counterpart(s, user.Role)))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "🗂 Всего: %d %s", len(sessions), formatting.PluralizeSessions(len(sessions)))
	if len(sessions) > maxListedSessions {
		fmt.Fprintf(&sb, ", показаны последние %d", maxListedSessions)
		sessions = sessions[:maxListedSessions]
	}
	h.sendMessage(ctx, b, chatID, sb.String(), nil)

	for _, s := range sessions {
		h.sendMessage(ctx, b, chatID,
			formatting.FormatSession(s, formatting.Counterpart(s, user.Role), h.location),
			keyboard.SessionActions(s, user.Role))
	}
}

// HandlePending обрабатывает /pending.
// Студент видит свою неразобранную заявку, руководитель - входящие заявки с кнопками решения.
func (h *Handlers) HandlePending(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	if user.IsSupervisor() {
		h.supervisorInbox(ctx, b, update.Message.Chat.ID, user)
		return
	}
	h.studentPending(ctx, b, update.Message.Chat.ID, user)
}

func (h *Handlers) studentPending(ctx context.Context, b *bot.Bot, chatID int64, user *model.User) {
	actor := actorOf(user)

	pending, err := h.guidanceService.FindPending(ctx, actor)
	if err != nil {
		h.reportError(ctx, b, chatID, err, "find pending guidance")
		return
	}

	if pending == nil {
		h.sendMessage(ctx, b, chatID, "✅ Неразобранных заявок нет. Новую можно создать командой /request", nil)
	} else {
		h.sendMessage(ctx, b, chatID,
			"⏳ Заявка ждёт решения руководителя:\n\n"+formatting.FormatSession(pending, pending.SupervisorName, h.location),
			keyboard.SessionActions(pending, user.Role))
	}

	requests, err := h.supervisorRequestService.List(ctx, actor)
	if err != nil {
		h.reportError(ctx, b, chatID, err, "list supervisor requests")
		return
	}
	for _, r := range requests {
		if r.IsPending() {
			h.sendMessage(ctx, b, chatID,
				fmt.Sprintf("⏳ Заявка на второго руководителя (%s) ждёт ответа", html.EscapeString(r.SupervisorName)), nil)
		}
	}
}

func (h *Handlers) supervisorInbox(ctx context.Context, b *bot.Bot, chatID int64, user *model.User) {
	actor := actorOf(user)
	requested := model.GuidanceStatusRequested
	summaryPending := model.GuidanceStatusSummaryPending

	sessions, err := h.guidanceService.List(ctx, actor, &requested)
	if err != nil {
		h.reportError(ctx, b, chatID, err, "list requested guidance")
		return
	}
	summaries, err := h.guidanceService.List(ctx, actor, &summaryPending)
	if err != nil {
		h.reportError(ctx, b, chatID, err, "list summaries")
		return
	}
	requests, err := h.supervisorRequestService.List(ctx, actor)
	if err != nil {
		h.reportError(ctx, b, chatID, err, "list supervisor requests")
		return
	}

	var pendingRequests []*model.SupervisorRequest
	for _, r := range requests {
		if r.IsPending() {
			pendingRequests = append(pendingRequests, r)
		}
	}

	if len(sessions)+len(summaries)+len(pendingRequests) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 Нет заявок, ждущих решения.", nil)
		return
	}

	for _, s := range append(sessions, summaries...) {
		h.sendMessage(ctx, b, chatID,
			formatting.FormatSession(s, s.StudentName, h.location),
			keyboard.SessionActions(s, user.Role))
	}
	for _, r := range pendingRequests {
		h.sendMessage(ctx, b, chatID, formatting.FormatSupervisorRequest(r), keyboard.SupervisorRequestActions(r))
	}
}

// HandleProgress обрабатывает /progress
func (h *Handlers) HandleProgress(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID
	actor := actorOf(user)

	if !user.IsSupervisor() {
		thesis, err := h.userService.ThesisOf(ctx, actor)
		if err != nil {
			h.reportError(ctx, b, chatID, err, "get thesis")
			return
		}
		if thesis == nil {
			h.sendMessage(ctx, b, chatID, "📋 Выпускная работа ещё не зарегистрирована.", nil)
			return
		}

		overview, err := h.milestoneService.List(ctx, actor, thesis.ID)
		if err != nil {
			h.reportError(ctx, b, chatID, err, "list milestones")
			return
		}
		h.sendMessage(ctx, b, chatID,
			"🎓 <b>"+html.EscapeString(thesis.Title)+"</b>\n\n"+
				formatting.FormatProgress(overview.Milestones, overview.Progress, overview.Next), nil)
		return
	}

	theses, err := h.userService.SupervisedTheses(ctx, actor)
	if err != nil {
		h.reportError(ctx, b, chatID, err, "list supervised theses")
		return
	}
	if len(theses) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 За вами пока не закреплено ни одной работы.", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("🎓 <b>Работы студентов</b>\n\n")
	for _, t := range theses {
		overview, err := h.milestoneService.List(ctx, actor, t.ID)
		if err != nil {
			h.reportError(ctx, b, chatID, err, "list milestones")
			return
		}
		fmt.Fprintf(&sb, "• %s: %d%% (%d/%d)", html.EscapeString(t.Title),
			overview.Progress.PercentComplete, overview.Progress.Completed, overview.Progress.Total)
		if overview.Next != nil {
			fmt.Fprintf(&sb, ", дальше: %s", html.EscapeString(overview.Next.Title))
		}
		sb.WriteString("\n")
	}
	h.sendMessage(ctx, b, chatID, sb.String(), nil)
}
