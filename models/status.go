package models

// WorkStatus is the lifecycle state of a Work request.
type WorkStatus string

const (
	StatusOpen        WorkStatus = "open"
	StatusTaken       WorkStatus = "taken"
	StatusApproved    WorkStatus = "approved"
	StatusDispatch    WorkStatus = "dispatch"
	StatusInProgress  WorkStatus = "inprogress"
	StatusCompleted   WorkStatus = "completed"
	StatusConfirm     WorkStatus = "confirm"
	StatusOnHoldParts WorkStatus = "onhold_parts"
	StatusEscalated   WorkStatus = "escalated"
	StatusRescheduled WorkStatus = "rescheduled"
	StatusReject      WorkStatus = "reject"
	StatusUnavailable WorkStatus = "unavailable"
)

// workTransitions is the single source of truth for which status changes are
// legal. Handlers must consult CanTransitionTo instead of re-checking status
// strings inline.
var workTransitions = map[WorkStatus][]WorkStatus{
	StatusOpen:        {StatusTaken, StatusApproved, StatusReject, StatusUnavailable},
	StatusTaken:       {StatusDispatch, StatusInProgress},
	StatusApproved:    {StatusDispatch, StatusInProgress},
	StatusDispatch:    {StatusInProgress},
	StatusInProgress:  {StatusCompleted, StatusOnHoldParts, StatusEscalated, StatusRescheduled},
	StatusOnHoldParts: {StatusInProgress},
	StatusEscalated:   {StatusInProgress},
	StatusRescheduled: {StatusInProgress},
	StatusCompleted:   {StatusConfirm},
	// reject, unavailable and confirm are terminal
	StatusConfirm:     {},
	StatusReject:      {},
	StatusUnavailable: {},
}

// CanTransitionTo reports whether moving from s to next is a legal step in
// the lifecycle graph.
func (s WorkStatus) CanTransitionTo(next WorkStatus) bool {
	for _, allowed := range workTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from s.
func (s WorkStatus) IsTerminal() bool {
	return len(workTransitions[s]) == 0
}

// ActiveAssignmentStatuses are the states in which a technician counts as
// engaged on a work, used for matching and booking-conflict checks.
var ActiveAssignmentStatuses = []WorkStatus{
	StatusTaken, StatusApproved, StatusDispatch, StatusInProgress,
}

// HoldStatuses are the issue-report side branches an admin can resolve back
// to inprogress.
var HoldStatuses = []WorkStatus{
	StatusOnHoldParts, StatusEscalated, StatusRescheduled,
}

// IssueType names a problem a technician can report from the field.
const (
	IssueNeedParts           = "need_parts"
	IssueNeedSpecialist      = "need_specialist"
	IssueCustomerUnavailable = "customer_unavailable"
)

// IssueStatus maps a reported issue type to the hold status it triggers.
// Unknown issue types are a validation error at the boundary.
func IssueStatus(issueType string) (WorkStatus, bool) {
	switch issueType {
	case IssueNeedParts:
		return StatusOnHoldParts, true
	case IssueNeedSpecialist:
		return StatusEscalated, true
	case IssueCustomerUnavailable:
		return StatusRescheduled, true
	default:
		return "", false
	}
}
