package models

// WorkflowStatus is the business-process state of an item.
type WorkflowStatus string

const (
	StatusNew                   WorkflowStatus = "new"
	StatusAcknowledged          WorkflowStatus = "acknowledged"
	StatusInProgress            WorkflowStatus = "in_progress"
	StatusDonePendingSupervisor WorkflowStatus = "done_pending_supervisor"
	StatusReturned              WorkflowStatus = "returned"
	StatusEscalatedToManager    WorkflowStatus = "escalated_to_manager"
	StatusFinished              WorkflowStatus = "finished"
)

// WorkflowStatusLabels maps statuses to the text shown in notifications.
var WorkflowStatusLabels = map[WorkflowStatus]string{
	StatusNew:                   "New",
	StatusAcknowledged:          "Acknowledged",
	StatusInProgress:            "In Progress",
	StatusDonePendingSupervisor: "Done - Pending Supervisor",
	StatusReturned:              "Returned",
	StatusEscalatedToManager:    "Escalated to Manager",
	StatusFinished:              "Finished",
}

// IsValidWorkflowStatus reports whether s is a known workflow status.
func IsValidWorkflowStatus(s WorkflowStatus) bool {
	_, ok := WorkflowStatusLabels[s]
	return ok
}

// Role is an organizational role with an ordering used for permission checks.
type Role string

const (
	RoleEmployee          Role = "employee"
	RoleSupervisor        Role = "supervisor"
	RoleDepartmentManager Role = "department_manager"
	RoleGeneralManager    Role = "general_manager"
	RoleHR                Role = "hr"
)

var roleRank = map[Role]int{
	RoleEmployee:          0,
	RoleSupervisor:        1,
	RoleDepartmentManager: 2,
	RoleGeneralManager:    3,
	RoleHR:                4,
}

// AtLeast reports whether r ranks at or above min in the organizational ladder.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// Channel is a delivery channel for reminders and escalations.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
	ChannelEmail    Channel = "email"
	ChannelInApp    Channel = "in_app"
)

// AllChannels is the full channel set in dispatch order.
var AllChannels = []Channel{ChannelWhatsApp, ChannelTelegram, ChannelEmail, ChannelInApp}

// ToChannels converts raw text[] values scanned from the DB.
func ToChannels(raw []string) []Channel {
	channels := make([]Channel, 0, len(raw))
	for _, r := range raw {
		channels = append(channels, Channel(r))
	}
	return channels
}

// ChannelStrings converts channels back to plain strings for DB writes.
func ChannelStrings(channels []Channel) []string {
	raw := make([]string, 0, len(channels))
	for _, c := range channels {
		raw = append(raw, string(c))
	}
	return raw
}

// EscalationStatus is the state of an escalation log.
type EscalationStatus string

const (
	EscalationPending      EscalationStatus = "pending"
	EscalationAcknowledged EscalationStatus = "acknowledged"
	EscalationEscalated    EscalationStatus = "escalated"
	EscalationResolved     EscalationStatus = "resolved"
	EscalationExpired      EscalationStatus = "expired"
)

// Terminal reports whether the escalation log is frozen for good.
func (s EscalationStatus) Terminal() bool {
	return s == EscalationResolved || s == EscalationExpired
}

// EscalationLevelLabels maps ladder levels to the role that owns them.
var EscalationLevelLabels = map[int]string{
	0: "Recipient",
	1: "Supervisor",
	2: "Department Manager",
	3: "General Manager",
	4: "HR",
}
