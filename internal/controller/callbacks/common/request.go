package common

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/state"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestDraft черновик заявки на консультацию, собранный диалогом
type RequestDraft struct {
	SupervisorID   uuid.UUID
	SupervisorName string
	Start          time.Time // zero если дата ещё не введена
	Duration       int       // 0 если длительность ещё не выбрана
	Notes          string
}

// LoadDraft собирает черновик из данных диалога
func LoadDraft(data map[string]string) (RequestDraft, error) {
	var draft RequestDraft

	supervisorID, err := uuid.Parse(data[state.KeySupervisorID])
	if err != nil {
		return draft, ErrDialogExpired
	}
	draft.SupervisorID = supervisorID
	draft.SupervisorName = data[state.KeySupervisorName]
	draft.Notes = data[state.KeyNotes]

	if raw := data[state.KeyRequestedAt]; raw != "" {
		if draft.Start, err = time.Parse(time.RFC3339, raw); err != nil {
			return draft, ErrDialogExpired
		}
	}
	if raw := data[state.KeyDuration]; raw != "" {
		if draft.Duration, err = strconv.Atoi(raw); err != nil {
			return draft, ErrDialogExpired
		}
	}
	return draft, nil
}

// DraftValues значения черновика для сохранения в state
func DraftValues(draft RequestDraft) map[string]string {
	values := map[string]string{
		state.KeySupervisorID:   draft.SupervisorID.String(),
		state.KeySupervisorName: draft.SupervisorName,
		state.KeyNotes:          draft.Notes,
	}
	if !draft.Start.IsZero() {
		values[state.KeyRequestedAt] = draft.Start.Format(time.RFC3339)
	}
	if draft.Duration > 0 {
		values[state.KeyDuration] = strconv.Itoa(draft.Duration)
	}
	return values
}

// CheckKey ключ проверок занятости для диалога пользователя
func CheckKey(telegramID int64) string {
	return "request:" + strconv.FormatInt(telegramID, 10)
}

// CheckCandidate проверяет время черновика под новым токеном.
// fresh == false значит, что пока шла проверка, пользователь начал новую, и результат надо выбросить.
func CheckCandidate(
	ctx context.Context,
	guidance *service.GuidanceService,
	checks *service.CheckTracker,
	telegramID int64,
	draft RequestDraft,
) (result service.ConflictResult, fresh bool, err error) {
	key := CheckKey(telegramID)
	token := checks.Begin(key)

	result, err = guidance.CheckAvailability(ctx, draft.SupervisorID, draft.Start, draft.Duration)
	return result, checks.IsLatest(key, token), err
}

// CheckOutcome текст и клавиатура по результату проверки.
// ok == true: время свободно, диалог переходит к подтверждению; иначе пользователь вводит другое время.
func CheckOutcome(draft RequestDraft, result service.ConflictResult, err error, loc *time.Location) (string, *models.InlineKeyboardMarkup, bool) {
	if err != nil {
		return ErrorMessage(err) + "\n\nВведите другое время в формате " + formatting.InputLayout, nil, false
	}

	switch result.Status {
	case service.NoConflict:
		return DraftSummary(draft, loc) + "\n\n🟢 Время свободно. Можно добавить комментарий сообщением или сразу отправить заявку.",
			keyboard.Confirm(), true
	case service.Conflict:
		return "⛔️ " + html.EscapeString(result.Message) + "\n\nВведите другое время в формате " + formatting.InputLayout, nil, false
	default:
		return ErrorMessage(result.Err()) + "\n\nВведите время ещё раз, чтобы повторить проверку.", nil, false
	}
}

// DraftSummary текст подтверждения заявки
func DraftSummary(draft RequestDraft, loc *time.Location) string {
	start := draft.Start
	if loc != nil {
		start = start.In(loc)
	}
	end := start.Add(time.Duration(draft.Duration) * time.Minute)

	var sb strings.Builder
	sb.WriteString("📨 <b>Заявка на консультацию</b>\n\n")
	fmt.Fprintf(&sb, "👨‍🏫 %s\n", html.EscapeString(draft.SupervisorName))
	fmt.Fprintf(&sb, "📅 %s, %s (%s)", start.Format("02.01.2006"), formatting.FormatTimeRange(start, end), formatting.FormatDuration(draft.Duration))
	if draft.Notes != "" {
		fmt.Fprintf(&sb, "\n💬 %s", html.EscapeString(draft.Notes))
	}
	return sb.String()
}

// RunCheck проверяет время черновика и показывает результат через reply.
// Результат устаревшей проверки отбрасывается: его место уже занял ответ на более новый ввод.
func RunCheck(
	ctx context.Context,
	h *callbacktypes.Handler,
	telegramID int64,
	draft RequestDraft,
	reply func(text string, kb *models.InlineKeyboardMarkup),
) {
	result, fresh, err := CheckCandidate(ctx, h.GuidanceService, h.Checks, telegramID, draft)
	if !fresh {
		h.Logger.Debug("Dropping stale availability check", zap.Int64("telegram_id", telegramID))
		return
	}

	text, kb, ok := CheckOutcome(draft, result, err, h.Location)
	if ok {
		h.StateManager.SetState(telegramID, callbacktypes.UserState(state.StateRequestConfirm))
	} else {
		h.StateManager.SetState(telegramID, callbacktypes.UserState(state.StateRequestDate))
	}
	reply(text, kb)
}
