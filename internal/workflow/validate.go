package workflow

import (
	"fmt"
	"strings"
)

// Issue code constants classify each ValidationIssue by its structural
// category. Codes are stable strings so callers can switch on them without
// importing numeric iota values.
const (
	// IssueInvalidType is reported when a node carries an unknown type tag.
	IssueInvalidType = "INVALID_TYPE"

	// IssueInvalidNode is reported when a node's fields violate the per-type
	// matrix (e.g. an exit value on a STEP, branches on an INPUT). The Field
	// attribute names the offending field.
	IssueInvalidNode = "INVALID_NODE_CONFIGURATION"

	// IssueInvalidTransition is reported when a transition's fields violate
	// the per-origin-type matrix, or when its endpoints are of a forbidden
	// type or do not resolve within the course.
	IssueInvalidTransition = "INVALID_TRANSITION_CONFIGURATION"

	// IssueDuplicateActionName is reported when two outbounds of the same
	// INPUT or SPLIT node carry the same action name.
	IssueDuplicateActionName = "DUPLICATE_ACTION_NAME"

	// IssueDuplicatePriority is reported when two outbounds of the same
	// MULTIPLEXER node carry the same priority.
	IssueDuplicatePriority = "DUPLICATE_PRIORITY"

	// IssueUnreachableNode is reported for every node that no transition path
	// from the course's ENTER node can reach.
	IssueUnreachableNode = "UNREACHABLE_NODE"

	// IssueMissingEnter / IssueMultipleEnter enforce the exactly-one-ENTER
	// rule per course.
	IssueMissingEnter  = "MISSING_ENTER"
	IssueMultipleEnter = "MULTIPLE_ENTER"

	// IssueMissingExit is reported when a course declares no EXIT node.
	IssueMissingExit = "MISSING_EXIT"

	// IssueMissingCancel is reported when a non-root course declares no
	// CANCEL node.
	IssueMissingCancel = "MISSING_CANCEL"

	// IssueCourseMustPause is reported when a non-root course has a path from
	// ENTER to an EXIT crossing only automatic nodes (ENTER, STEP,
	// MULTIPLEXER): such a branch could complete before its parent SPLIT
	// finishes spawning siblings, so every branch must pause at an INPUT or
	// SPLIT first.
	IssueCourseMustPause = "COURSE_MUST_PAUSE"

	// IssueBranchDepthMismatch is reported when a branch course's depth is
	// not the splitting course's depth plus one.
	IssueBranchDepthMismatch = "BRANCH_DEPTH_MISMATCH"

	// IssueUnknownBranchCode is reported when a SPLIT references a course
	// code that does not exist in the workflow.
	IssueUnknownBranchCode = "UNKNOWN_BRANCH_CODE"

	// IssueDuplicateNodeCode / IssueDuplicateCourseCode enforce code
	// uniqueness within a course and within a workflow respectively.
	IssueDuplicateNodeCode   = "DUPLICATE_NODE_CODE"
	IssueDuplicateCourseCode = "DUPLICATE_COURSE_CODE"

	// IssueMissingRootCourse / IssueMultipleRootCourses enforce the
	// exactly-one-root rule (one course with the empty code at depth 0).
	IssueMissingRootCourse   = "MISSING_ROOT_COURSE"
	IssueMultipleRootCourses = "MULTIPLE_ROOT_COURSES"

	// IssueOrphanCourse is reported for a non-root course that no SPLIT node
	// references.
	IssueOrphanCourse = "ORPHAN_COURSE"

	// IssueUnknownCallable is reported when a referenced landing handler,
	// condition, or joiner is not registered. Only checked when a Registry is
	// supplied to Validate.
	IssueUnknownCallable = "UNKNOWN_CALLABLE"

	// IssueSplitRequiresJoiner is reported when a SPLIT without a joiner has
	// more than one outbound transition or branches that declare a JOINED
	// node; without a joiner nothing could ever pick among them.
	IssueSplitRequiresJoiner = "SPLIT_REQUIRES_JOINER"

	// IssueInvalidWorkflow is reported for workflow-level field problems
	// (bad code, missing document type).
	IssueInvalidWorkflow = "INVALID_WORKFLOW_CONFIGURATION"
)

// ValidationIssue describes a single structural problem found in a spec tree.
// Course and Node locate the issue when applicable; Field names the offending
// attribute (origin, destination, condition, action_name, priority,
// permission, branches, exit_value, joiner, code, type).
type ValidationIssue struct {
	Code    string `json:"code"`
	Course  string `json:"course,omitempty"`
	Node    string `json:"node,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// String renders the issue as a single line.
func (i ValidationIssue) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", i.Code)
	if i.Course != "" || i.Node != "" {
		fmt.Fprintf(&b, " course %q", i.Course)
	}
	if i.Node != "" {
		fmt.Fprintf(&b, " node %q", i.Node)
	}
	if i.Field != "" {
		fmt.Fprintf(&b, " field %q", i.Field)
	}
	b.WriteString(": ")
	b.WriteString(i.Message)
	return b.String()
}

// ValidationResult collects every issue found while validating a spec tree.
// All issues are fatal: an invalid spec cannot be installed.
type ValidationResult struct {
	Issues []ValidationIssue
}

// IsValid reports whether no issues were found.
func (r *ValidationResult) IsValid() bool { return len(r.Issues) == 0 }

// HasCode reports whether any issue carries the given code.
func (r *ValidationResult) HasCode(code string) bool {
	for _, i := range r.Issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

// HasField reports whether any issue names the given field.
func (r *ValidationResult) HasField(field string) bool {
	for _, i := range r.Issues {
		if i.Field == field {
			return true
		}
	}
	return false
}

// String returns a multi-line summary of all issues.
func (r *ValidationResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Issues (%d):\n", len(r.Issues))
	for _, i := range r.Issues {
		b.WriteString("  ")
		b.WriteString(i.String())
		b.WriteString("\n")
	}
	return b.String()
}

func (r *ValidationResult) add(i ValidationIssue) { r.Issues = append(r.Issues, i) }

// isSlug reports whether s is a non-empty slug: letters, digits, hyphens,
// underscores.
func isSlug(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// requirement expresses whether a field is forbidden, optional, or required
// for a given origin or node type.
type requirement int

const (
	forbidden requirement = iota
	optional
	required
)

// transitionRules is the per-origin-type field matrix for transitions.
type transitionRules struct {
	actionName requirement
	permission requirement
	condition  requirement
	priority   requirement
}

var transitionRulesByOrigin = map[NodeType]transitionRules{
	NodeEnter:       {actionName: forbidden, permission: forbidden, condition: forbidden, priority: forbidden},
	NodeInput:       {actionName: required, permission: optional, condition: forbidden, priority: forbidden},
	NodeStep:        {actionName: forbidden, permission: forbidden, condition: forbidden, priority: forbidden},
	NodeMultiplexer: {actionName: forbidden, permission: forbidden, condition: required, priority: required},
	NodeSplit:       {actionName: required, permission: forbidden, condition: forbidden, priority: forbidden},
}

// outboundRange is the allowed outbound transition count per node type.
// max < 0 means unbounded.
type outboundRange struct{ min, max int }

var outboundsByType = map[NodeType]outboundRange{
	NodeEnter:       {1, 1},
	NodeExit:        {0, 0},
	NodeCancel:      {0, 0},
	NodeJoined:      {0, 0},
	NodeInput:       {1, -1},
	NodeStep:        {1, 1},
	NodeMultiplexer: {2, -1},
	NodeSplit:       {1, -1},
}

// Validate checks the node's field-local rules: a valid type, a slug code,
// and the per-type field matrix. Cross-entity rules (uniqueness,
// reachability, branch depths) live on WorkflowSpec.Validate.
func (n *NodeSpec) Validate() *ValidationResult {
	r := &ValidationResult{}
	n.validateInto(r, "")
	return r
}

func (n *NodeSpec) validateInto(r *ValidationResult, course string) {
	at := func(code, field, msg string) {
		r.add(ValidationIssue{Code: code, Course: course, Node: n.Code, Field: field, Message: msg})
	}

	if !n.Type.valid() {
		at(IssueInvalidType, "type", fmt.Sprintf("unknown node type %q", n.Type))
		return
	}
	if !isSlug(n.Code) {
		at(IssueInvalidNode, "code", fmt.Sprintf("node code %q is not a slug", n.Code))
	}

	if n.Type == NodeExit {
		switch {
		case n.ExitValue == nil:
			at(IssueInvalidNode, "exit_value", "exit nodes require an exit value")
		case *n.ExitValue < 0:
			at(IssueInvalidNode, "exit_value", fmt.Sprintf("exit value %d is negative", *n.ExitValue))
		}
	} else if n.ExitValue != nil {
		at(IssueInvalidNode, "exit_value", fmt.Sprintf("%s nodes carry no exit value", n.Type))
	}

	if n.Joiner != "" && n.Type != NodeSplit {
		at(IssueInvalidNode, "joiner", fmt.Sprintf("%s nodes carry no joiner", n.Type))
	}

	if n.ExecutePermission != "" && n.Type != NodeInput {
		at(IssueInvalidNode, "execute_permission", fmt.Sprintf("%s nodes carry no execute permission", n.Type))
	}

	if n.Type == NodeSplit {
		if len(n.Branches) == 0 {
			at(IssueInvalidNode, "branches", "split nodes require at least one branch")
		}
	} else if len(n.Branches) > 0 {
		at(IssueInvalidNode, "branches", fmt.Sprintf("%s nodes carry no branches", n.Type))
	}
}

// ValidateWith checks the transition's field-local rules given its resolved
// endpoints. Either endpoint may be nil when unresolved; endpoint resolution
// itself is checked by WorkflowSpec.Validate.
func (t *TransitionSpec) ValidateWith(origin, destination *NodeSpec) *ValidationResult {
	r := &ValidationResult{}
	t.validateInto(r, "", origin, destination)
	return r
}

func (t *TransitionSpec) validateInto(r *ValidationResult, course string, origin, destination *NodeSpec) {
	at := func(code, field, msg string) {
		r.add(ValidationIssue{Code: code, Course: course, Node: t.Origin, Field: field, Message: msg})
	}

	if destination != nil {
		switch destination.Type {
		case NodeEnter, NodeCancel, NodeJoined:
			at(IssueInvalidTransition, "destination",
				fmt.Sprintf("transitions cannot target %s nodes", destination.Type))
		}
	}

	if origin == nil {
		return
	}

	rules, ok := transitionRulesByOrigin[origin.Type]
	if !ok {
		// Terminal origins have no outbound rules at all.
		at(IssueInvalidTransition, "origin",
			fmt.Sprintf("%s nodes cannot originate transitions", origin.Type))
		return
	}

	switch rules.actionName {
	case required:
		if t.ActionName == "" {
			at(IssueInvalidTransition, "action_name",
				fmt.Sprintf("transitions from %s nodes require an action name", origin.Type))
		} else if !isSlug(t.ActionName) {
			at(IssueInvalidTransition, "action_name",
				fmt.Sprintf("action name %q is not a slug", t.ActionName))
		}
	case forbidden:
		if t.ActionName != "" {
			at(IssueInvalidTransition, "action_name",
				fmt.Sprintf("transitions from %s nodes carry no action name", origin.Type))
		}
	}

	if rules.permission == forbidden && t.Permission != "" {
		at(IssueInvalidTransition, "permission",
			fmt.Sprintf("transitions from %s nodes carry no permission", origin.Type))
	}

	switch rules.condition {
	case required:
		if t.Condition == "" {
			at(IssueInvalidTransition, "condition",
				fmt.Sprintf("transitions from %s nodes require a condition", origin.Type))
		}
	case forbidden:
		if t.Condition != "" {
			at(IssueInvalidTransition, "condition",
				fmt.Sprintf("transitions from %s nodes carry no condition", origin.Type))
		}
	}

	switch rules.priority {
	case required:
		if t.Priority == nil {
			at(IssueInvalidTransition, "priority",
				fmt.Sprintf("transitions from %s nodes require a priority", origin.Type))
		} else if *t.Priority < 0 {
			at(IssueInvalidTransition, "priority",
				fmt.Sprintf("priority %d is negative", *t.Priority))
		}
	case forbidden:
		if t.Priority != nil {
			at(IssueInvalidTransition, "priority",
				fmt.Sprintf("transitions from %s nodes carry no priority", origin.Type))
		}
	}
}

// Validate checks the complete spec tree: workflow-level fields, the
// exactly-one-root rule, per-course node and transition rules, per-origin
// uniqueness, outbound counts, reachability, the branch pause rule, branch
// references and depths, and (when reg is non-nil) that every referenced
// callable is registered. The returned result collects every issue found.
func (ws *WorkflowSpec) Validate(reg *Registry) *ValidationResult {
	r := &ValidationResult{}

	if !isSlug(ws.Code) {
		r.add(ValidationIssue{Code: IssueInvalidWorkflow, Field: "code",
			Message: fmt.Sprintf("workflow code %q is not a slug", ws.Code)})
	}
	if ws.DocumentType == "" {
		r.add(ValidationIssue{Code: IssueInvalidWorkflow, Field: "document_type",
			Message: "workflow requires a document type"})
	}

	// Course code uniqueness and the exactly-one-root rule.
	seen := make(map[string]bool, len(ws.Courses))
	roots := 0
	for _, cs := range ws.Courses {
		if seen[cs.Code] {
			r.add(ValidationIssue{Code: IssueDuplicateCourseCode, Course: cs.Code, Field: "code",
				Message: fmt.Sprintf("course code %q appears more than once", cs.Code)})
			continue
		}
		seen[cs.Code] = true
		if cs.Code == "" || cs.Depth == 0 {
			roots++
			if cs.Code != "" || cs.Depth != 0 {
				r.add(ValidationIssue{Code: IssueInvalidWorkflow, Course: cs.Code, Field: "depth",
					Message: "the root course has the empty code and depth 0"})
			}
		} else if !isSlug(cs.Code) {
			r.add(ValidationIssue{Code: IssueInvalidWorkflow, Course: cs.Code, Field: "code",
				Message: fmt.Sprintf("course code %q is not a slug", cs.Code)})
		}
	}
	switch {
	case roots == 0:
		r.add(ValidationIssue{Code: IssueMissingRootCourse,
			Message: "workflow requires exactly one root course (empty code, depth 0)"})
	case roots > 1:
		r.add(ValidationIssue{Code: IssueMultipleRootCourses,
			Message: fmt.Sprintf("workflow has %d root courses, expected one", roots)})
	}

	// Branch references: existence, depth, and which courses are referenced.
	referenced := make(map[string]bool)
	for _, cs := range ws.Courses {
		for _, n := range cs.Nodes {
			if n.Type != NodeSplit {
				continue
			}
			for _, code := range n.Branches {
				branch := ws.Course(code)
				if branch == nil || code == "" {
					r.add(ValidationIssue{Code: IssueUnknownBranchCode, Course: cs.Code, Node: n.Code,
						Field: "branches", Message: fmt.Sprintf("branch course %q does not exist", code)})
					continue
				}
				referenced[code] = true
				if branch.Depth != cs.Depth+1 {
					r.add(ValidationIssue{Code: IssueBranchDepthMismatch, Course: cs.Code, Node: n.Code,
						Field: "branches", Message: fmt.Sprintf(
							"branch %q has depth %d, expected %d", code, branch.Depth, cs.Depth+1)})
				}
			}
		}
	}
	for _, cs := range ws.Courses {
		if cs.Code != "" && !referenced[cs.Code] {
			r.add(ValidationIssue{Code: IssueOrphanCourse, Course: cs.Code,
				Message: fmt.Sprintf("course %q is not referenced by any split node", cs.Code)})
		}
	}

	for _, cs := range ws.Courses {
		cs.validateInto(r, ws)
	}

	if reg != nil {
		ws.validateCallables(r, reg)
	}

	return r
}

// validateInto checks one course's cross-entity rules.
func (cs *CourseSpec) validateInto(r *ValidationResult, ws *WorkflowSpec) {
	root := cs.Code == ""

	// Node code uniqueness, field-local node rules, singleton counts.
	nodeSeen := make(map[string]bool, len(cs.Nodes))
	enters, exits, cancels := 0, 0, 0
	for _, n := range cs.Nodes {
		if nodeSeen[n.Code] {
			r.add(ValidationIssue{Code: IssueDuplicateNodeCode, Course: cs.Code, Node: n.Code,
				Field: "code", Message: fmt.Sprintf("node code %q appears more than once", n.Code)})
			continue
		}
		nodeSeen[n.Code] = true
		n.validateInto(r, cs.Code)
		switch n.Type {
		case NodeEnter:
			enters++
		case NodeExit:
			exits++
		case NodeCancel:
			cancels++
		case NodeJoined:
			if root {
				r.add(ValidationIssue{Code: IssueInvalidNode, Course: cs.Code, Node: n.Code,
					Field: "type", Message: "the root course cannot declare a JOINED node"})
			}
		}
	}
	switch {
	case enters == 0:
		r.add(ValidationIssue{Code: IssueMissingEnter, Course: cs.Code,
			Message: "course requires an ENTER node"})
	case enters > 1:
		r.add(ValidationIssue{Code: IssueMultipleEnter, Course: cs.Code,
			Message: fmt.Sprintf("course has %d ENTER nodes, expected one", enters)})
	}
	if exits == 0 {
		r.add(ValidationIssue{Code: IssueMissingExit, Course: cs.Code,
			Message: "course requires at least one EXIT node"})
	}
	if !root && cancels == 0 {
		r.add(ValidationIssue{Code: IssueMissingCancel, Course: cs.Code,
			Message: "branch courses require a CANCEL node"})
	}

	// Transition endpoint resolution and field-local transition rules.
	for _, t := range cs.Transitions {
		origin := cs.Node(t.Origin)
		dest := cs.Node(t.Destination)
		if origin == nil {
			r.add(ValidationIssue{Code: IssueInvalidTransition, Course: cs.Code, Node: t.Origin,
				Field: "origin", Message: fmt.Sprintf("origin node %q does not exist in course", t.Origin)})
		}
		if dest == nil {
			r.add(ValidationIssue{Code: IssueInvalidTransition, Course: cs.Code, Node: t.Origin,
				Field: "destination", Message: fmt.Sprintf("destination node %q does not exist in course", t.Destination)})
		}
		t.validateInto(r, cs.Code, origin, dest)
	}

	// Per-origin action name and priority uniqueness, outbound counts.
	for _, n := range cs.Nodes {
		outs := cs.Outbounds(n.Code)

		if rng, ok := outboundsByType[n.Type]; ok {
			if len(outs) < rng.min || (rng.max >= 0 && len(outs) > rng.max) {
				want := fmt.Sprintf("at least %d", rng.min)
				if rng.max == rng.min {
					want = fmt.Sprintf("exactly %d", rng.min)
				}
				r.add(ValidationIssue{Code: IssueInvalidNode, Course: cs.Code, Node: n.Code,
					Field: "outbounds", Message: fmt.Sprintf(
						"%s nodes require %s outbound transitions, found %d", n.Type, want, len(outs))})
			}
		}

		switch n.Type {
		case NodeInput, NodeSplit:
			actions := make(map[string]bool, len(outs))
			for _, t := range outs {
				if t.ActionName == "" {
					continue // already flagged by the field matrix
				}
				if actions[t.ActionName] {
					r.add(ValidationIssue{Code: IssueDuplicateActionName, Course: cs.Code, Node: n.Code,
						Field: "action_name", Message: fmt.Sprintf(
							"action name %q appears on more than one outbound of node %q", t.ActionName, n.Code)})
				}
				actions[t.ActionName] = true
			}
		case NodeMultiplexer:
			priorities := make(map[int]bool, len(outs))
			for _, t := range outs {
				if t.Priority == nil {
					continue
				}
				if priorities[*t.Priority] {
					r.add(ValidationIssue{Code: IssueDuplicatePriority, Course: cs.Code, Node: n.Code,
						Field: "priority", Message: fmt.Sprintf(
							"priority %d appears on more than one outbound of node %q", *t.Priority, n.Code)})
				}
				priorities[*t.Priority] = true
			}
		}

		// A SPLIT without a joiner has no way to pick among several outbounds
		// or to observe joined branches.
		if n.Type == NodeSplit && n.Joiner == "" {
			if len(outs) != 1 {
				r.add(ValidationIssue{Code: IssueSplitRequiresJoiner, Course: cs.Code, Node: n.Code,
					Field: "joiner", Message: fmt.Sprintf(
						"split %q has no joiner and must have exactly one outbound, found %d", n.Code, len(outs))})
			}
			if ws != nil {
				for _, code := range n.Branches {
					if branch := ws.Course(code); branch != nil && branch.NodeOfType(NodeJoined) != nil {
						r.add(ValidationIssue{Code: IssueSplitRequiresJoiner, Course: cs.Code, Node: n.Code,
							Field: "joiner", Message: fmt.Sprintf(
								"split %q has no joiner but branch %q declares a JOINED node", n.Code, code)})
					}
				}
			}
		}
	}

	cs.validateReachability(r)
	if !root {
		cs.validatePause(r)
	}
}

// validateReachability flags every node that no transition path from the
// ENTER node reaches.
func (cs *CourseSpec) validateReachability(r *ValidationResult) {
	enter := cs.NodeOfType(NodeEnter)
	if enter == nil {
		return // already flagged
	}
	reached := map[string]bool{enter.Code: true}
	queue := []string{enter.Code}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, t := range cs.Outbounds(current) {
			if !reached[t.Destination] && cs.Node(t.Destination) != nil {
				reached[t.Destination] = true
				queue = append(queue, t.Destination)
			}
		}
	}
	for _, n := range cs.Nodes {
		// CANCEL and JOINED nodes are reached by the engine during cancel and
		// join, never through a transition.
		if n.Type == NodeCancel || n.Type == NodeJoined {
			continue
		}
		if !reached[n.Code] {
			r.add(ValidationIssue{Code: IssueUnreachableNode, Course: cs.Code, Node: n.Code,
				Message: fmt.Sprintf("node %q cannot be reached from the ENTER node", n.Code)})
		}
	}
}

// validatePause flags a branch course that can run from ENTER to an EXIT
// crossing only automatic nodes, i.e. one that never pauses at an INPUT or
// SPLIT.
func (cs *CourseSpec) validatePause(r *ValidationResult) {
	enter := cs.NodeOfType(NodeEnter)
	if enter == nil {
		return
	}
	visited := map[string]bool{enter.Code: true}
	queue := []string{enter.Code}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := cs.Node(current)
		if node == nil {
			continue
		}
		if node.Type == NodeExit {
			r.add(ValidationIssue{Code: IssueCourseMustPause, Course: cs.Code, Node: node.Code,
				Message: fmt.Sprintf(
					"course %q can reach EXIT %q without pausing at an INPUT or SPLIT node", cs.Code, node.Code)})
			return
		}
		if !node.Type.Transient() && node.Type != NodeEnter {
			continue // INPUT / SPLIT pause the course; terminals end it
		}
		for _, t := range cs.Outbounds(current) {
			if !visited[t.Destination] {
				visited[t.Destination] = true
				queue = append(queue, t.Destination)
			}
		}
	}
}

// validateCallables confirms every referenced callable is registered.
func (ws *WorkflowSpec) validateCallables(r *ValidationResult, reg *Registry) {
	for _, cs := range ws.Courses {
		for _, n := range cs.Nodes {
			if n.LandingHandler != "" && !reg.HasHandler(n.LandingHandler) {
				r.add(ValidationIssue{Code: IssueUnknownCallable, Course: cs.Code, Node: n.Code,
					Field: "landing_handler", Message: fmt.Sprintf("landing handler %q is not registered", n.LandingHandler)})
			}
			if n.Joiner != "" && !reg.HasJoiner(n.Joiner) {
				r.add(ValidationIssue{Code: IssueUnknownCallable, Course: cs.Code, Node: n.Code,
					Field: "joiner", Message: fmt.Sprintf("joiner %q is not registered", n.Joiner)})
			}
		}
		for _, t := range cs.Transitions {
			if t.Condition != "" && !reg.HasCondition(t.Condition) {
				r.add(ValidationIssue{Code: IssueUnknownCallable, Course: cs.Code, Node: t.Origin,
					Field: "condition", Message: fmt.Sprintf("condition %q is not registered", t.Condition)})
			}
		}
	}
}
