package service

import "github.com/Freeeeeet/thesis_tracker/internal/model"

// Action действие над сессией консультации
type Action string

const (
	ActionReschedule     Action = "reschedule"
	ActionCancel         Action = "cancel"
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionSubmitSummary  Action = "submit_summary"
	ActionApproveSummary Action = "approve_summary"
	ActionUpdateNotes    Action = "update_notes"
)

// Transition is a single allowed edge in the guidance lifecycle
type Transition struct {
	From   model.GuidanceStatus
	To     model.GuidanceStatus
	Action Action
	Role   model.Role
}

var guidanceTransitions = []Transition{
	{From: model.GuidanceStatusRequested, To: model.GuidanceStatusRequested, Action: ActionReschedule, Role: model.RoleStudent},
	{From: model.GuidanceStatusRequested, To: model.GuidanceStatusCancelled, Action: ActionCancel, Role: model.RoleStudent},
	{From: model.GuidanceStatusRequested, To: model.GuidanceStatusAccepted, Action: ActionApprove, Role: model.RoleSupervisor},
	{From: model.GuidanceStatusRequested, To: model.GuidanceStatusRejected, Action: ActionReject, Role: model.RoleSupervisor},
	{From: model.GuidanceStatusAccepted, To: model.GuidanceStatusSummaryPending, Action: ActionSubmitSummary, Role: model.RoleStudent},
	{From: model.GuidanceStatusSummaryPending, To: model.GuidanceStatusCompleted, Action: ActionApproveSummary, Role: model.RoleSupervisor},

	// Заметки меняются без смены статуса
	{From: model.GuidanceStatusRequested, To: model.GuidanceStatusRequested, Action: ActionUpdateNotes, Role: model.RoleStudent},
	{From: model.GuidanceStatusAccepted, To: model.GuidanceStatusAccepted, Action: ActionUpdateNotes, Role: model.RoleStudent},
}

// TransitionFor returns the allowed transition for a given status+action
func TransitionFor(from model.GuidanceStatus, action Action) (Transition, bool) {
	for _, tr := range guidanceTransitions {
		if tr.From == from && tr.Action == action {
			return tr, true
		}
	}
	return Transition{}, false
}

// CanTransition checks if action is legal from the given status
func CanTransition(from model.GuidanceStatus, action Action) bool {
	_, ok := TransitionFor(from, action)
	return ok
}

// AllowedActions возвращает действия, доступные из статуса для роли
func AllowedActions(from model.GuidanceStatus, role model.Role) []Action {
	var actions []Action
	for _, tr := range guidanceTransitions {
		if tr.From == from && tr.Role == role {
			actions = append(actions, tr.Action)
		}
	}
	return actions
}
