package workflow

import "sort"

// NodeType classifies the nodes of a course graph. String values are used
// (not iota) so they round-trip cleanly through spec documents and the store.
type NodeType string

const (
	// NodeEnter is the unique entry point of a course. It carries exactly one
	// outbound transition and can never be a transition destination.
	NodeEnter NodeType = "ENTER"

	// NodeExit is a success terminal. Every EXIT node carries a non-negative
	// exit value that is reported to a parent SPLIT's joiner.
	NodeExit NodeType = "EXIT"

	// NodeCancel is the terminal a course lands on when cancelled.
	NodeCancel NodeType = "CANCEL"

	// NodeJoined is the terminal a branch course lands on when its parent
	// SPLIT joins it. Only non-root courses may declare one.
	NodeJoined NodeType = "JOINED"

	// NodeInput pauses the course until a user invokes one of its named
	// actions. The only node type that may carry an execute permission.
	NodeInput NodeType = "INPUT"

	// NodeStep advances automatically through its single outbound transition.
	NodeStep NodeType = "STEP"

	// NodeMultiplexer picks one of its outbound transitions by evaluating
	// their conditions in ascending priority order.
	NodeMultiplexer NodeType = "MULTIPLEXER"

	// NodeSplit forks the course into parallel branch courses, one pending
	// CourseInstance per declared branch.
	NodeSplit NodeType = "SPLIT"
)

// valid reports whether t is one of the eight defined node types.
func (t NodeType) valid() bool {
	switch t {
	case NodeEnter, NodeExit, NodeCancel, NodeJoined, NodeInput, NodeStep, NodeMultiplexer, NodeSplit:
		return true
	}
	return false
}

// Transient reports whether a node of this type leaves no persistent
// NodeInstance behind: the engine passes through it within a single
// transaction and the stored current node is only ever a persistent type.
func (t NodeType) Transient() bool {
	return t == NodeEnter || t == NodeStep || t == NodeMultiplexer
}

// Terminal reports whether landing on a node of this type terminates the
// course instance.
func (t NodeType) Terminal() bool {
	return t == NodeExit || t == NodeCancel || t == NodeJoined
}

// WorkflowSpec is an authored workflow template bound to a document type.
// It owns one root course (empty code, depth 0) and any number of branch
// courses referenced from SPLIT nodes.
type WorkflowSpec struct {
	// Code uniquely identifies the workflow in the store.
	Code string

	// Name and Description are human-readable labels.
	Name        string
	Description string

	// DocumentType is the type tag of the document class instances of this
	// workflow attach to.
	DocumentType string

	// CreatePermission, when non-empty, must be held by a user on the target
	// document to start an instance. CancelPermission gates cancellation of
	// any course of the workflow.
	CreatePermission string
	CancelPermission string

	// Fingerprint is the xxhash of the canonicalized spec document this spec
	// was installed from, or zero for programmatically built specs.
	Fingerprint uint64

	// Courses holds the root course and all branch courses.
	Courses []*CourseSpec
}

// Course returns the course with the given code, or nil. The root course has
// the empty code.
func (ws *WorkflowSpec) Course(code string) *CourseSpec {
	for _, cs := range ws.Courses {
		if cs.Code == code {
			return cs
		}
	}
	return nil
}

// Root returns the root course (empty code), or nil when the spec is invalid.
func (ws *WorkflowSpec) Root() *CourseSpec { return ws.Course("") }

// CourseSpec is a subgraph within a workflow. The root course drives the main
// flow; every other course is a branch spawned by a SPLIT node at depth one
// greater than the splitting course.
type CourseSpec struct {
	// Code is empty for the root course and a slug otherwise, unique within
	// the workflow.
	Code string

	// Name is a human-readable label.
	Name string

	// Depth is 0 for the root course; a branch course's depth is the depth of
	// the course containing its referencing SPLIT plus one.
	Depth int

	// CancelPermission, when non-empty, additionally gates cancellation of
	// instances of this course.
	CancelPermission string

	Nodes       []*NodeSpec
	Transitions []*TransitionSpec
}

// Node returns the node with the given code, or nil.
func (cs *CourseSpec) Node(code string) *NodeSpec {
	for _, n := range cs.Nodes {
		if n.Code == code {
			return n
		}
	}
	return nil
}

// NodeOfType returns the first node of the given type, or nil. Used for the
// singleton types (ENTER, CANCEL, JOINED).
func (cs *CourseSpec) NodeOfType(t NodeType) *NodeSpec {
	for _, n := range cs.Nodes {
		if n.Type == t {
			return n
		}
	}
	return nil
}

// Outbounds returns the transitions whose origin is the given node code, in
// declaration order.
func (cs *CourseSpec) Outbounds(nodeCode string) []*TransitionSpec {
	var out []*TransitionSpec
	for _, t := range cs.Transitions {
		if t.Origin == nodeCode {
			out = append(out, t)
		}
	}
	return out
}

// OutboundsByPriority returns the outbound transitions of a node sorted by
// ascending priority. Transitions without a priority sort last; validation
// guarantees multiplexer outbounds all carry distinct priorities.
func (cs *CourseSpec) OutboundsByPriority(nodeCode string) []*TransitionSpec {
	out := cs.Outbounds(nodeCode)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Priority, out[j].Priority
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return *pi < *pj
		}
	})
	return out
}

// OutboundByAction returns the outbound transition of a node carrying the
// given action name, or nil.
func (cs *CourseSpec) OutboundByAction(nodeCode, action string) *TransitionSpec {
	for _, t := range cs.Outbounds(nodeCode) {
		if t.ActionName == action && action != "" {
			return t
		}
	}
	return nil
}

// NodeSpec is a single state in a course. Which optional fields are
// meaningful depends on Type; Validate enforces the per-type field matrix.
type NodeSpec struct {
	Type NodeType

	// Code uniquely identifies the node within its course.
	Code string

	// Name is a human-readable label.
	Name string

	// LandingHandler optionally names a registered handler invoked with
	// (document, user) whenever the engine lands on this node. Any node type
	// may carry one.
	LandingHandler string

	// ExitValue is the non-negative value reported to a parent joiner.
	// Required on EXIT nodes, forbidden elsewhere.
	ExitValue *int

	// Joiner optionally names a registered joiner callable. SPLIT only. A
	// SPLIT without a joiner must have exactly one outbound transition and
	// branches that declare no JOINED node; it advances when every branch
	// has terminated.
	Joiner string

	// ExecutePermission, when non-empty, must be held by the acting user to
	// advance from this node. INPUT only.
	ExecutePermission string

	// Branches lists the codes of the courses this node forks into, in spawn
	// order. SPLIT only, non-empty.
	Branches []string
}

// TransitionSpec is a directed edge between two nodes of the same course.
// Which optional fields are required or forbidden depends on the origin
// node's type; Validate enforces the matrix.
type TransitionSpec struct {
	// Origin and Destination are node codes within the owning course.
	Origin      string
	Destination string

	// Name is a human-readable label.
	Name string

	// ActionName names the user action selecting this transition. Required
	// and unique per origin for INPUT and SPLIT origins, forbidden otherwise.
	ActionName string

	// Permission, when non-empty, must be held by the acting user. Allowed
	// only on transitions out of INPUT nodes.
	Permission string

	// Condition names a registered condition callable. Required on
	// MULTIPLEXER outbounds, forbidden otherwise.
	Condition string

	// Priority orders condition evaluation on MULTIPLEXER outbounds, unique
	// per origin. Required there, forbidden otherwise.
	Priority *int
}
