package workflow

import "time"

// Event type constants identify the lifecycle milestone an Event reports.
const (
	// EvInstanceStarted is emitted when Start creates a workflow instance.
	EvInstanceStarted = "instance_started"

	// EvNodeLanded is emitted whenever a course lands on a persistent node.
	EvNodeLanded = "node_landed"

	// EvBranchSpawned is emitted for each pending branch course a SPLIT
	// creates.
	EvBranchSpawned = "branch_spawned"

	// EvCourseEnded is emitted when a course terminates through an EXIT node.
	EvCourseEnded = "course_ended"

	// EvCourseCancelled / EvCourseJoined are emitted when a course terminates
	// through its CANCEL or JOINED node.
	EvCourseCancelled = "course_cancelled"
	EvCourseJoined    = "course_joined"

	// EvJoinerInvoked is emitted after a SPLIT's joiner ran, with the action
	// it chose (empty when it chose to keep waiting).
	EvJoinerInvoked = "joiner_invoked"

	// EvWorkflowCompleted is emitted when the root course terminates.
	EvWorkflowCompleted = "workflow_completed"
)

// Event is a structured message emitted by the engine during execution.
// Events are advisory: they are emitted while the enclosing transaction is
// still open, so a consumer may observe events for an operation that later
// rolled back. The audit subsystem proper lives outside the engine.
type Event struct {
	// Type is one of the Ev* constants.
	Type string `json:"type"`

	// WorkflowID identifies the workflow instance.
	WorkflowID string `json:"workflow_id"`

	// Course is the course spec code of the affected course instance (empty
	// for the root course), CourseID its instance ID.
	Course   string `json:"course"`
	CourseID string `json:"course_id,omitempty"`

	// Node is the node spec code involved, when applicable.
	Node string `json:"node,omitempty"`

	// Action is the action name a joiner chose, when applicable.
	Action string `json:"action,omitempty"`

	// ExitValue carries the exit value for EvCourseEnded.
	ExitValue *int `json:"exit_value,omitempty"`

	// TermLevel carries the termination depth for cancel and join cascades.
	TermLevel *int `json:"term_level,omitempty"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`
}
