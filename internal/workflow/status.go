package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CourseStatus is the observable state of a course instance, derived from its
// stored current node. Since transient nodes are never stored, the current
// node is always INPUT, SPLIT, EXIT, CANCEL, or JOINED, or absent entirely.
type CourseStatus string

const (
	// StatusPending means the course was created but never advanced.
	StatusPending CourseStatus = "pending"

	// StatusWaiting means the course rests on an INPUT node.
	StatusWaiting CourseStatus = "waiting"

	// StatusSplitting means the course rests on a SPLIT node with live
	// branches below it.
	StatusSplitting CourseStatus = "splitting"

	// StatusEnded, StatusCancelled, and StatusJoined are the terminal states,
	// one per terminal node type.
	StatusEnded     CourseStatus = "ended"
	StatusCancelled CourseStatus = "cancelled"
	StatusJoined    CourseStatus = "joined"
)

// CourseView pairs a course instance with the spec of its current node (nil
// while pending) for status inspection.
type CourseView struct {
	Course *CourseInstance
	Node   *NodeSpec
}

// Status derives the course's observable state.
func (v *CourseView) Status() CourseStatus {
	if v.Node == nil {
		return StatusPending
	}
	switch v.Node.Type {
	case NodeInput:
		return StatusWaiting
	case NodeSplit:
		return StatusSplitting
	case NodeExit:
		return StatusEnded
	case NodeCancel:
		return StatusCancelled
	default:
		return StatusJoined
	}
}

func (v *CourseView) IsPending() bool   { return v.Node == nil }
func (v *CourseView) IsWaiting() bool   { return v.Node != nil && v.Node.Type == NodeInput }
func (v *CourseView) IsSplitting() bool { return v.Node != nil && v.Node.Type == NodeSplit }
func (v *CourseView) IsEnded() bool     { return v.Node != nil && v.Node.Type == NodeExit }
func (v *CourseView) IsCancelled() bool { return v.Node != nil && v.Node.Type == NodeCancel }
func (v *CourseView) IsJoined() bool    { return v.Node != nil && v.Node.Type == NodeJoined }

// IsTerminated reports whether the course reached any terminal node.
func (v *CourseView) IsTerminated() bool { return v.Node != nil && v.Node.Type.Terminal() }

// Workflow loads a workflow instance by ID.
func (e *Engine) Workflow(ctx context.Context, workflowID string) (*WorkflowInstance, error) {
	var wi *WorkflowInstance
	err := e.store.Atomically(ctx, func(tx Tx) error {
		var err error
		wi, err = tx.WorkflowInstance(workflowID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wi, nil
}

// WorkflowByDocument loads the workflow instance attached to a document.
func (e *Engine) WorkflowByDocument(ctx context.Context, documentType, documentID string) (*WorkflowInstance, error) {
	var wi *WorkflowInstance
	err := e.store.Atomically(ctx, func(tx Tx) error {
		var err error
		wi, err = tx.WorkflowInstanceByDocument(documentType, documentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wi, nil
}

// Course loads one course instance with its current node resolved.
func (e *Engine) Course(ctx context.Context, courseID string) (*CourseView, error) {
	var view *CourseView
	err := e.store.Atomically(ctx, func(tx Tx) error {
		course, err := tx.CourseInstance(courseID)
		if err != nil {
			return err
		}
		view, err = e.viewCourse(tx, course)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Courses loads every course instance of a workflow, in creation order, with
// current nodes resolved.
func (e *Engine) Courses(ctx context.Context, workflowID string) ([]*CourseView, error) {
	var views []*CourseView
	err := e.store.Atomically(ctx, func(tx Tx) error {
		courses, err := tx.CoursesByWorkflow(workflowID)
		if err != nil {
			return err
		}
		views = make([]*CourseView, 0, len(courses))
		for _, course := range courses {
			view, err := e.viewCourse(tx, course)
			if err != nil {
				return err
			}
			views = append(views, view)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// FindCourse navigates a workflow instance's course tree by a dotted path of
// branch course codes. The empty path names the root course; "foo.bar" names
// the bar branch below the foo branch below the root. Each segment must
// descend through a course currently resting on its SPLIT node.
func (e *Engine) FindCourse(ctx context.Context, workflowID, path string) (*CourseView, error) {
	var view *CourseView
	err := e.store.Atomically(ctx, func(tx Tx) error {
		courses, err := tx.CoursesByWorkflow(workflowID)
		if err != nil {
			return err
		}
		var root *CourseInstance
		roots := 0
		for _, course := range courses {
			if course.ParentNodeID == "" {
				root = course
				roots++
			}
		}
		if roots != 1 {
			return fmt.Errorf("workflow %s has %d root courses, want 1: %w", workflowID, roots, ErrNoSuchElement)
		}

		view, err = e.descend(tx, root, path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// descend resolves one dotted-path step at a time below course.
func (e *Engine) descend(tx Tx, course *CourseInstance, path string) (*CourseView, error) {
	view, err := e.viewCourse(tx, course)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return view, nil
	}
	if !view.IsSplitting() {
		return nil, fmt.Errorf("course %q has no children: %w", course.CourseCode, ErrNoSuchElement)
	}

	head, tail, _ := strings.Cut(path, ".")
	ni, err := tx.NodeInstanceByCourse(course.ID)
	if err != nil {
		return nil, err
	}
	children, err := tx.CoursesByParent(ni.ID)
	if err != nil {
		return nil, err
	}
	var match *CourseInstance
	matches := 0
	for _, child := range children {
		if child.CourseCode == head {
			match = child
			matches++
		}
	}
	switch matches {
	case 1:
		return e.descend(tx, match, tail)
	case 0:
		return nil, fmt.Errorf("course %q has no child %q: %w", course.CourseCode, head, ErrNoSuchElement)
	default:
		return nil, fmt.Errorf("course %q has %d children %q: %w", course.CourseCode, matches, head, ErrNoSuchElement)
	}
}

// viewCourse resolves a course's current node against its workflow's spec.
func (e *Engine) viewCourse(tx Tx, course *CourseInstance) (*CourseView, error) {
	wi, err := tx.WorkflowInstance(course.WorkflowID)
	if err != nil {
		return nil, err
	}
	spec, err := tx.WorkflowSpec(wi.SpecCode)
	if err != nil {
		return nil, err
	}
	cs := spec.Course(course.CourseCode)
	if cs == nil {
		return nil, fmt.Errorf("course instance %s references course %q absent from workflow %q: %w",
			course.ID, course.CourseCode, spec.Code, ErrCourseNodeDoesNotExist)
	}

	view := &CourseView{Course: course}
	ni, err := tx.NodeInstanceByCourse(course.ID)
	if errors.Is(err, ErrNotFound) {
		return view, nil
	}
	if err != nil {
		return nil, err
	}
	node := cs.Node(ni.NodeCode)
	if node == nil {
		return nil, fmt.Errorf("course %q: stored node %q: %w", cs.Code, ni.NodeCode, ErrCourseNodeDoesNotExist)
	}
	view.Node = node
	return view, nil
}
