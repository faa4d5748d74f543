package workflow

import "context"

// Store is the persistence boundary of the engine. Implementations must
// provide referential integrity, the uniqueness constraints documented on
// each Tx method, and all-or-nothing semantics for Atomically.
type Store interface {
	// Atomically runs fn inside a single transaction. Every mutation fn
	// performs through the Tx is committed together when fn returns nil and
	// discarded entirely when fn returns an error or panics.
	Atomically(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside a Store transaction. Methods
// return ErrNotFound (possibly wrapped) for missing entities.
type Tx interface {
	// InsertWorkflowSpec persists a validated spec tree. Returns
	// ErrSpecExists when the code is already taken.
	InsertWorkflowSpec(spec *WorkflowSpec) error

	// WorkflowSpec loads the full spec tree for code.
	WorkflowSpec(code string) (*WorkflowSpec, error)

	// DeleteWorkflowSpec removes a spec tree. Returns ErrSpecInUse while any
	// workflow instance references it.
	DeleteWorkflowSpec(code string) error

	// ListWorkflowSpecs returns every installed spec, ordered by code.
	ListWorkflowSpecs() ([]*WorkflowSpec, error)

	// InsertWorkflowInstance persists a new instance. Returns
	// ErrInstanceExists when the (document type, document id) pair is taken.
	InsertWorkflowInstance(wi *WorkflowInstance) error

	// WorkflowInstance loads an instance by ID.
	WorkflowInstance(id string) (*WorkflowInstance, error)

	// WorkflowInstanceByDocument loads the instance attached to a document.
	WorkflowInstanceByDocument(documentType, documentID string) (*WorkflowInstance, error)

	// DeleteWorkflowInstance removes an instance and cascades to its course
	// and node instances.
	DeleteWorkflowInstance(id string) error

	// InsertCourseInstance persists a new course instance.
	InsertCourseInstance(ci *CourseInstance) error

	// CourseInstance loads a course instance by ID.
	CourseInstance(id string) (*CourseInstance, error)

	// UpdateCourseInstance rewrites a course instance (term level updates).
	UpdateCourseInstance(ci *CourseInstance) error

	// CoursesByWorkflow returns every course instance of a workflow instance
	// in creation order.
	CoursesByWorkflow(workflowID string) ([]*CourseInstance, error)

	// CoursesByParent returns the branch course instances spawned by a SPLIT
	// node instance, in creation order.
	CoursesByParent(nodeInstanceID string) ([]*CourseInstance, error)

	// InsertNodeInstance persists the current node record of a course. At
	// most one node instance exists per course instance.
	InsertNodeInstance(ni *NodeInstance) error

	// NodeInstance loads a node instance by ID.
	NodeInstance(id string) (*NodeInstance, error)

	// NodeInstanceByCourse returns the current node record of a course, or
	// ErrNotFound when the course is pending.
	NodeInstanceByCourse(courseID string) (*NodeInstance, error)

	// DeleteNodeInstance removes a node instance by ID. Branch courses keep
	// referencing the deleted SPLIT node instance so terminated branch
	// history stays queryable.
	DeleteNodeInstance(id string) error
}
