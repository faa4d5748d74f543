package workflow

import "fmt"

// The permission gate sits between externally-initiated operations and the
// runtime. Every check consults the Oracle against the instance's document;
// a permission that is not set never denies.

// canInstantiate authorizes Start: when the workflow declares a create
// permission the user must hold it on the document.
func (e *Engine) canInstantiate(rc *runContext, spec *WorkflowSpec) error {
	if spec.CreatePermission == "" {
		return nil
	}
	held, err := e.oracle.HasPermission(rc.ctx, rc.user, spec.CreatePermission, rc.doc)
	if err != nil {
		return fmt.Errorf("checking create permission: %w", err)
	}
	if !held {
		return fmt.Errorf("workflow %q requires %q: %w", spec.Code, spec.CreatePermission, ErrCreateDenied)
	}
	return nil
}

// canCancel authorizes Cancel: both the workflow-level and the course-level
// cancel permission, when set, must hold. The two denials are distinct error
// kinds so callers can tell which layer refused.
func (e *Engine) canCancel(rc *runContext, cs *CourseSpec) error {
	if p := rc.spec.CancelPermission; p != "" {
		held, err := e.oracle.HasPermission(rc.ctx, rc.user, p, rc.doc)
		if err != nil {
			return fmt.Errorf("checking workflow cancel permission: %w", err)
		}
		if !held {
			return fmt.Errorf("workflow %q requires %q: %w", rc.spec.Code, p, ErrCancelDeniedByWorkflow)
		}
	}
	if p := cs.CancelPermission; p != "" {
		held, err := e.oracle.HasPermission(rc.ctx, rc.user, p, rc.doc)
		if err != nil {
			return fmt.Errorf("checking course cancel permission: %w", err)
		}
		if !held {
			return fmt.Errorf("course %q requires %q: %w", cs.Code, p, ErrCancelDeniedByCourse)
		}
	}
	return nil
}

// canAdvance authorizes an externally-initiated advance. A pending course is
// starting: only the initial transition's permission applies. A course
// waiting at an INPUT node requires the node's execute permission and the
// transition's permission, both when set. Any other current node refuses
// outright: STEP and MULTIPLEXER nodes are never a resting state, terminals
// do not advance, and SPLIT nodes advance only internally through their
// joiner.
func (e *Engine) canAdvance(rc *runContext, current *NodeSpec, t *TransitionSpec) error {
	if current != nil {
		if current.Type != NodeInput {
			return fmt.Errorf("current node %q is %s: %w", current.Code, current.Type, ErrWrongNodeType)
		}
		if p := current.ExecutePermission; p != "" {
			held, err := e.oracle.HasPermission(rc.ctx, rc.user, p, rc.doc)
			if err != nil {
				return fmt.Errorf("checking node execute permission: %w", err)
			}
			if !held {
				return fmt.Errorf("node %q requires %q: %w", current.Code, p, ErrAdvanceDeniedByNode)
			}
		}
	}
	if p := t.Permission; p != "" {
		held, err := e.oracle.HasPermission(rc.ctx, rc.user, p, rc.doc)
		if err != nil {
			return fmt.Errorf("checking transition permission: %w", err)
		}
		if !held {
			return fmt.Errorf("transition to %q requires %q: %w", t.Destination, p, ErrAdvanceDeniedByTransition)
		}
	}
	return nil
}
