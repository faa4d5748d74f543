package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Document is the subject a workflow instance attaches to. The engine never
// persists documents; it identifies them by (type, id) and hands them to
// landing handlers, conditions, and joiners. Attributes exposes the values
// expression-backed conditions may inspect.
type Document interface {
	DocumentType() string
	DocumentID() string
	Attributes() map[string]any
}

// DocumentResolver materializes the document a workflow instance is bound to.
// The engine calls it once per externally-initiated operation.
type DocumentResolver interface {
	ResolveDocument(ctx context.Context, documentType, documentID string) (Document, error)
}

// User identifies the acting user. It is opaque to the engine; the permission
// Oracle interprets it.
type User string

// Oracle answers "does user hold permission on document". Permission
// identifiers are opaque strings of the form "app.permission".
type Oracle interface {
	HasPermission(ctx context.Context, user User, permission string, doc Document) (bool, error)
}

// WorkflowInstance is a running realization of a WorkflowSpec, bound to
// exactly one document. At most one instance may exist per document.
type WorkflowInstance struct {
	ID           string
	SpecCode     string
	DocumentType string
	DocumentID   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CourseInstance is a running realization of a CourseSpec. A pending course
// has no NodeInstance yet; a terminated course's current node is EXIT,
// CANCEL, or JOINED.
type CourseInstance struct {
	ID         string
	WorkflowID string

	// CourseCode references the CourseSpec within the workflow's spec.
	CourseCode string

	// ParentNodeID is the ID of the SPLIT NodeInstance that spawned this
	// course, or empty for the root course.
	ParentNodeID string

	// TermLevel records the depth at which the course was terminated during a
	// recursive cancel or join: 0 for the course the operation targeted, one
	// more per nesting level below it. Nil for running courses and for
	// courses that terminated through an EXIT node.
	TermLevel *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NodeInstance records the persistent current node of a course instance.
// Transient node types (ENTER, STEP, MULTIPLEXER) are never stored.
type NodeInstance struct {
	ID       string
	CourseID string

	// NodeCode references the NodeSpec within the course's spec.
	NodeCode string

	CreatedAt time.Time
}

// BranchStatus reports one branch's state to a joiner callable. A running
// branch has Terminated false; a cancelled or joined branch reports exit
// value -1; a branch that reached an EXIT node reports that node's
// non-negative exit value.
type BranchStatus struct {
	Terminated bool
	ExitValue  int
}

// BranchStatuses maps branch course codes to their current status.
type BranchStatuses map[string]BranchStatus

// AllTerminated reports whether every branch has terminated.
func (s BranchStatuses) AllTerminated() bool {
	for _, st := range s {
		if !st.Terminated {
			return false
		}
	}
	return true
}

// newWorkflowInstance creates an instance of the given spec bound to doc.
func newWorkflowInstance(spec *WorkflowSpec, doc Document) *WorkflowInstance {
	now := time.Now()
	return &WorkflowInstance{
		ID:           uuid.NewString(),
		SpecCode:     spec.Code,
		DocumentType: doc.DocumentType(),
		DocumentID:   doc.DocumentID(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// newCourseInstance creates a pending course instance. parentNodeID is empty
// for the root course.
func newCourseInstance(workflowID, courseCode, parentNodeID string) *CourseInstance {
	now := time.Now()
	return &CourseInstance{
		ID:           uuid.NewString(),
		WorkflowID:   workflowID,
		CourseCode:   courseCode,
		ParentNodeID: parentNodeID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// newNodeInstance creates the stored current node record for a course.
func newNodeInstance(courseID, nodeCode string) *NodeInstance {
	return &NodeInstance{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		NodeCode:  nodeCode,
		CreatedAt: time.Now(),
	}
}
