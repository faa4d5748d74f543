package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Permission errors. Each names the layer that denied the operation so
// callers can distinguish a workflow-level denial from a course- or
// node-level one.
var (
	// ErrCreateDenied is returned by Start when the workflow's create
	// permission is set and the user does not hold it on the document.
	ErrCreateDenied = errors.New("workflow instantiation denied")

	// ErrCancelDeniedByWorkflow and ErrCancelDeniedByCourse are returned by
	// Cancel when the workflow-level or course-level cancel permission,
	// respectively, is set and not held.
	ErrCancelDeniedByWorkflow = errors.New("course cancellation denied by workflow permission")
	ErrCancelDeniedByCourse   = errors.New("course cancellation denied by course permission")

	// ErrAdvanceDeniedByNode is returned by Advance when the current INPUT
	// node's execute permission is set and not held.
	ErrAdvanceDeniedByNode = errors.New("course advance denied by node permission")

	// ErrAdvanceDeniedByTransition is returned by Advance when the chosen
	// transition's permission is set and not held.
	ErrAdvanceDeniedByTransition = errors.New("course advance denied by transition permission")

	// ErrWrongNodeType is returned by Advance when the course's current node
	// is neither absent (pending course) nor an INPUT node. SPLIT nodes only
	// advance internally, through their joiner.
	ErrWrongNodeType = errors.New("course cannot be advanced from its current node")
)

// Structural runtime errors.
var (
	// ErrCourseNodeDoesNotExist is returned when a node code does not resolve
	// within the course's spec.
	ErrCourseNodeDoesNotExist = errors.New("node does not exist in course")

	// ErrForeignNode is returned when a move targets a node spec that belongs
	// to a different course.
	ErrForeignNode = errors.New("node belongs to a different course")

	// ErrNoSuchElement is returned by course navigation when a dotted path
	// segment matches no branch, or matches more than one (which indicates
	// inconsistent stored data), and by action resolution when no outbound
	// transition carries the requested action.
	ErrNoSuchElement = errors.New("no such element")

	// ErrMultiplexerNoMatch is returned when none of a multiplexer's
	// conditions evaluates true.
	ErrMultiplexerNoMatch = errors.New("no multiplexer condition matched")

	// ErrNotCancellable is returned by Cancel when the course declares no
	// CANCEL node.
	ErrNotCancellable = errors.New("course has no cancel node")

	// ErrNotJoinable is returned by Join on a root course or on a course that
	// declares no JOINED node.
	ErrNotJoinable = errors.New("course is not joinable")

	// ErrSplitUnresolved is returned when every branch of a SPLIT has
	// terminated but its joiner still declines to pick an action.
	ErrSplitUnresolved = errors.New("all branches terminated but joiner chose no action")

	// ErrDocumentTypeMismatch is returned by Start when the document's type
	// tag differs from the workflow spec's document type.
	ErrDocumentTypeMismatch = errors.New("document type does not match workflow spec")
)

// Store errors. Implementations of Store must return these sentinels (wrapped
// freely) so the engine and installer can react uniformly.
var (
	// ErrNotFound is returned when a requested entity does not exist. A
	// course with no NodeInstance (pending) also surfaces as ErrNotFound from
	// Tx.NodeInstanceByCourse.
	ErrNotFound = errors.New("not found")

	// ErrSpecExists is returned when installing a workflow spec whose code is
	// already taken.
	ErrSpecExists = errors.New("workflow spec already installed")

	// ErrSpecInUse is returned when deleting a workflow spec that still has
	// instances referencing it.
	ErrSpecInUse = errors.New("workflow spec has live instances")

	// ErrInstanceExists is returned when a workflow instance already exists
	// for the target document.
	ErrInstanceExists = errors.New("document already has a workflow instance")
)

// ValidationError carries a collected ValidationResult across an error
// boundary, e.g. out of the installer.
type ValidationError struct {
	Workflow string
	Result   *ValidationResult
}

// Error summarizes the issues on one line each.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "workflow %q is invalid (%d issues)", e.Workflow, len(e.Result.Issues))
	for _, is := range e.Result.Issues {
		b.WriteString("\n  ")
		b.WriteString(is.String())
	}
	return b.String()
}
