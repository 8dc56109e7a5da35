// Package workflow holds the submission lifecycle rules: the status
// transition table, the quantity reconciliation invariants, and the
// distribution step gating. Everything here is pure: services load state,
// call in, and persist the outcome.
package workflow

import (
	"agromed-backend/internal/model"
	"agromed-backend/pkg/apperrors"
)

// Action names every externally drivable lifecycle change.
type Action string

const (
	ActionSubmit            Action = "submit"
	ActionStartReview       Action = "start_review"
	ActionApprove           Action = "approve"
	ActionPartiallyApprove  Action = "partially_approve"
	ActionReject            Action = "reject"
	ActionBeginDistribution Action = "begin_distribution"
	ActionStartDistribution Action = "start_distribution"
	ActionComplete          Action = "complete"
	ActionCancel            Action = "cancel"
	ActionExpire            Action = "expire"
)

// RoleSystem is the internal actor used by the expiry sweeper. It is not a
// user role and never arrives through the HTTP layer.
const RoleSystem = "system"

type rule struct {
	next  string
	roles []string
}

func (r rule) allows(role string) bool {
	for _, allowed := range r.roles {
		if allowed == role {
			return true
		}
	}
	return false
}

var (
	cancellers = []string{model.RoleAdmin, model.RoleFieldOfficer, model.RoleReviewer}
	reviewers  = []string{model.RoleReviewer, model.RoleAdmin}
	warehouse  = []string{model.RoleWarehouseOfficer, model.RoleAdmin}
)

// transitions is the single source of truth for the lifecycle. A (status,
// action) pair absent from the table is illegal regardless of role.
var transitions = map[string]map[Action]rule{
	model.StatusDraft: {
		ActionSubmit: {next: model.StatusSubmitted, roles: []string{model.RoleFieldOfficer, model.RoleAdmin}},
		ActionCancel: {next: model.StatusCancelled, roles: cancellers},
	},
	model.StatusSubmitted: {
		ActionStartReview:      {next: model.StatusUnderReview, roles: reviewers},
		ActionApprove:          {next: model.StatusApproved, roles: reviewers},
		ActionPartiallyApprove: {next: model.StatusPartiallyApproved, roles: reviewers},
		ActionReject:           {next: model.StatusRejected, roles: reviewers},
		ActionExpire:           {next: model.StatusExpired, roles: []string{RoleSystem}},
		ActionCancel:           {next: model.StatusCancelled, roles: cancellers},
	},
	model.StatusUnderReview: {
		ActionApprove:          {next: model.StatusApproved, roles: reviewers},
		ActionPartiallyApprove: {next: model.StatusPartiallyApproved, roles: reviewers},
		ActionReject:           {next: model.StatusRejected, roles: reviewers},
		ActionExpire:           {next: model.StatusExpired, roles: []string{RoleSystem}},
		ActionCancel:           {next: model.StatusCancelled, roles: cancellers},
	},
	model.StatusApproved: {
		ActionBeginDistribution: {next: model.StatusReadyDistribution, roles: warehouse},
		ActionCancel:            {next: model.StatusCancelled, roles: cancellers},
	},
	model.StatusPartiallyApproved: {
		ActionBeginDistribution: {next: model.StatusReadyDistribution, roles: warehouse},
		ActionCancel:            {next: model.StatusCancelled, roles: cancellers},
	},
	model.StatusReadyDistribution: {
		ActionStartDistribution: {next: model.StatusDistributing, roles: warehouse},
		ActionCancel:            {next: model.StatusCancelled, roles: cancellers},
	},
	model.StatusDistributing: {
		ActionComplete: {next: model.StatusCompleted, roles: warehouse},
		ActionCancel:   {next: model.StatusCancelled, roles: cancellers},
	},
}

// Transition resolves the next status for (current, action, role). The table
// is total: a pair that is not listed fails with BusinessLogicError, a
// listed pair driven by the wrong role fails with AuthorizationError. It
// never silently no-ops.
func Transition(current string, action Action, role string) (string, error) {
	actions, ok := transitions[current]
	if !ok {
		return "", apperrors.BusinessLogic("submission in terminal state %q accepts no actions", current)
	}
	r, ok := actions[action]
	if !ok {
		return "", apperrors.BusinessLogic("action %q is not allowed from state %q", action, current)
	}
	if !r.allows(role) {
		return "", apperrors.Authorization("role %q may not perform %q on a %q submission", role, action, current)
	}
	return r.next, nil
}

// CanTransition reports whether the triple is legal without resolving it.
func CanTransition(current string, action Action, role string) bool {
	_, err := Transition(current, action, role)
	return err == nil
}
