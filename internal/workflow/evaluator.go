package workflow

import (
	"hr-reminder-service/internal/models"

	"github.com/google/uuid"
)

// Actor is the user attempting a transition, resolved by the caller.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

// edges are the legal forward transitions a human actor may request.
// escalated_to_manager is entered only by the escalation ladder, never chosen
// by an actor, so it appears as a source here but not as a target.
var edges = map[models.WorkflowStatus][]models.WorkflowStatus{
	models.StatusNew:                   {models.StatusAcknowledged},
	models.StatusAcknowledged:          {models.StatusInProgress},
	models.StatusInProgress:            {models.StatusDonePendingSupervisor},
	models.StatusDonePendingSupervisor: {models.StatusFinished, models.StatusReturned},
	models.StatusReturned:              {models.StatusInProgress},
	models.StatusEscalatedToManager:    {models.StatusInProgress},
	models.StatusFinished:              {},
}

// supervisorOnly marks targets that require a role at or above supervisor
// regardless of responsibility assignment.
var supervisorOnly = map[models.WorkflowStatus]bool{
	models.StatusFinished: true,
	models.StatusReturned: true,
}

// NextStates returns the set of statuses the actor may move the item to.
// Recipients who are neither the responsible person nor at least a supervisor
// get an empty set: they are read-only.
func NextStates(item models.Item, actor Actor) []models.WorkflowStatus {
	if !canAct(item, actor) {
		return nil
	}
	var out []models.WorkflowStatus
	for _, to := range edges[item.WorkflowStatus] {
		if supervisorOnly[to] && !actor.Role.AtLeast(models.RoleSupervisor) {
			continue
		}
		out = append(out, to)
	}
	return out
}

// Validate checks one requested transition. It returns nil when the edge is
// legal for this actor and all side-effect requirements are met; otherwise a
// typed *Error. It never mutates the item.
func Validate(item models.Item, to models.WorkflowStatus, actor Actor, note string, hasAttachment bool) error {
	if !models.IsValidWorkflowStatus(to) {
		return invalidTransition("unknown target status %q", to)
	}
	if item.WorkflowStatus == models.StatusFinished {
		return invalidTransition("item %s is finished, no further transitions", item.ID)
	}
	if to == models.StatusEscalatedToManager {
		return invalidTransition("escalated_to_manager is set by the escalation ladder, not by actors")
	}
	if !canAct(item, actor) {
		return permissionDenied("actor %s is read-only for item %s", actor.ID, item.ID)
	}
	if !hasEdge(item.WorkflowStatus, to) {
		return invalidTransition("no edge %s -> %s", item.WorkflowStatus, to)
	}
	if supervisorOnly[to] && !actor.Role.AtLeast(models.RoleSupervisor) {
		return permissionDenied("transition to %s requires role %s or above", to, models.RoleSupervisor)
	}
	if to == models.StatusDonePendingSupervisor && note == "" && !hasAttachment {
		return &Error{Kind: KindMissingCompletion, Message: "completion requires a description or attachment"}
	}
	return nil
}

func canAct(item models.Item, actor Actor) bool {
	return actor.ID == item.ResponsiblePerson || actor.Role.AtLeast(models.RoleSupervisor)
}

func hasEdge(from, to models.WorkflowStatus) bool {
	for _, t := range edges[from] {
		if t == to {
			return true
		}
	}
	return false
}
