package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"
)

// Engine executes workflow instances against a Store. Every externally
// initiated operation (Start, Advance, Cancel, Join) runs inside a single
// store transaction and under a per-instance lock, so concurrent calls
// against the same workflow instance serialize instead of interleaving.
type Engine struct {
	store     Store
	registry  *Registry
	oracle    Oracle
	documents DocumentResolver
	events    chan<- Event
	logger    *log.Logger

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithEventChannel sets the channel lifecycle events are emitted on. Sends
// are non-blocking: when the consumer falls behind, events are dropped rather
// than stalling the engine mid-transaction.
func WithEventChannel(ch chan<- Event) Option {
	return func(e *Engine) { e.events = ch }
}

// NewEngine creates an engine over the given store, callable registry,
// permission oracle, and document resolver.
func NewEngine(store Store, registry *Registry, oracle Oracle, documents DocumentResolver, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		registry:  registry,
		oracle:    oracle,
		documents: documents,
		logger:    log.New(io.Discard),
		locks:     make(map[string]*semaphore.Weighted),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runContext carries the per-operation state every internal step needs: the
// open transaction, the resolved spec, instance, and document, and the acting
// user.
type runContext struct {
	ctx  context.Context
	tx   Tx
	spec *WorkflowSpec
	wi   *WorkflowInstance
	doc  Document
	user User
}

// ----------------------------------------------------------------------------
// Public operations
// ----------------------------------------------------------------------------

// Start creates a workflow instance of the named spec bound to doc, with a
// pending root course. The first Advance on the root course (with an empty
// action) fires the ENTER transition.
func (e *Engine) Start(ctx context.Context, specCode string, doc Document, user User) (*WorkflowInstance, error) {
	var wi *WorkflowInstance
	err := e.store.Atomically(ctx, func(tx Tx) error {
		spec, err := tx.WorkflowSpec(specCode)
		if err != nil {
			return err
		}
		if spec.DocumentType != doc.DocumentType() {
			return fmt.Errorf("workflow %q attaches to %q documents, document %q is %q: %w",
				spec.Code, spec.DocumentType, doc.DocumentID(), doc.DocumentType(), ErrDocumentTypeMismatch)
		}

		rc := &runContext{ctx: ctx, tx: tx, spec: spec, doc: doc, user: user}
		if err := e.canInstantiate(rc, spec); err != nil {
			return err
		}

		wi = newWorkflowInstance(spec, doc)
		rc.wi = wi
		if err := tx.InsertWorkflowInstance(wi); err != nil {
			return err
		}
		root := newCourseInstance(wi.ID, "", "")
		if err := tx.InsertCourseInstance(root); err != nil {
			return err
		}
		e.emit(Event{Type: EvInstanceStarted, WorkflowID: wi.ID, CourseID: root.ID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("workflow instance started",
		"workflow", specCode, "instance", wi.ID,
		"document", wi.DocumentType+"/"+wi.DocumentID, "user", string(user))
	return wi, nil
}

// Advance moves a course instance forward. A pending course takes the empty
// action and fires its ENTER transition; a course waiting at an INPUT node
// takes one of the node's named actions. The engine then keeps running
// through transient nodes until every affected course rests on a persistent
// node again, all within one transaction.
func (e *Engine) Advance(ctx context.Context, courseID, action string, user User) error {
	release, err := e.lockCourse(ctx, courseID)
	if err != nil {
		return err
	}
	defer release()

	err = e.store.Atomically(ctx, func(tx Tx) error {
		rc, course, cs, err := e.beginRun(ctx, tx, courseID, user)
		if err != nil {
			return err
		}

		current, err := e.currentNode(rc, course, cs)
		if err != nil {
			return err
		}
		t, err := resolveTransition(cs, current, action)
		if err != nil {
			return err
		}
		if err := e.canAdvance(rc, current, t); err != nil {
			return err
		}
		return e.runTransition(rc, course, cs, t)
	})
	if err != nil {
		return err
	}
	e.logger.Info("course advanced", "course", courseID, "action", action, "user", string(user))
	return nil
}

// Cancel terminates a course instance by moving it to its CANCEL node,
// cancelling any live branch courses below it first. The targeted course
// records term level 0, courses one split below it level 1, and so on. When
// the cancelled course is itself a branch, its parent SPLIT is notified as if
// the branch had exited.
func (e *Engine) Cancel(ctx context.Context, courseID string, user User) error {
	release, err := e.lockCourse(ctx, courseID)
	if err != nil {
		return err
	}
	defer release()

	err = e.store.Atomically(ctx, func(tx Tx) error {
		rc, course, cs, err := e.beginRun(ctx, tx, courseID, user)
		if err != nil {
			return err
		}
		if err := e.canCancel(rc, cs); err != nil {
			return err
		}
		return e.cancelRecursive(rc, course, cs, 0, true)
	})
	if err != nil {
		return err
	}
	e.logger.Info("course cancelled", "course", courseID, "user", string(user))
	return nil
}

// Join terminates a branch course by moving it to its JOINED node, joining
// any live branch courses below it first, and notifies the parent SPLIT. The
// root course and courses without a JOINED node are not joinable.
func (e *Engine) Join(ctx context.Context, courseID string, user User) error {
	release, err := e.lockCourse(ctx, courseID)
	if err != nil {
		return err
	}
	defer release()

	err = e.store.Atomically(ctx, func(tx Tx) error {
		rc, course, cs, err := e.beginRun(ctx, tx, courseID, user)
		if err != nil {
			return err
		}
		return e.joinRecursive(rc, course, cs, 0, true)
	})
	if err != nil {
		return err
	}
	e.logger.Info("course joined", "course", courseID, "user", string(user))
	return nil
}

// ----------------------------------------------------------------------------
// Operation setup
// ----------------------------------------------------------------------------

// lockCourse serializes operations per workflow instance: it resolves the
// course's workflow instance and acquires that instance's semaphore,
// returning the release func.
func (e *Engine) lockCourse(ctx context.Context, courseID string) (func(), error) {
	var workflowID string
	err := e.store.Atomically(ctx, func(tx Tx) error {
		course, err := tx.CourseInstance(courseID)
		if err != nil {
			return err
		}
		workflowID = course.WorkflowID
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	sem, ok := e.locks[workflowID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		e.locks[workflowID] = sem
	}
	e.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

// beginRun loads everything an operation on courseID needs: the course, its
// workflow instance, the spec tree, and the bound document.
func (e *Engine) beginRun(ctx context.Context, tx Tx, courseID string, user User) (*runContext, *CourseInstance, *CourseSpec, error) {
	course, err := tx.CourseInstance(courseID)
	if err != nil {
		return nil, nil, nil, err
	}
	wi, err := tx.WorkflowInstance(course.WorkflowID)
	if err != nil {
		return nil, nil, nil, err
	}
	spec, err := tx.WorkflowSpec(wi.SpecCode)
	if err != nil {
		return nil, nil, nil, err
	}
	cs := spec.Course(course.CourseCode)
	if cs == nil {
		return nil, nil, nil, fmt.Errorf("course instance %s references course %q absent from workflow %q: %w",
			course.ID, course.CourseCode, spec.Code, ErrCourseNodeDoesNotExist)
	}
	doc, err := e.documents.ResolveDocument(ctx, wi.DocumentType, wi.DocumentID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolving document %s/%s: %w", wi.DocumentType, wi.DocumentID, err)
	}
	rc := &runContext{ctx: ctx, tx: tx, spec: spec, wi: wi, doc: doc, user: user}
	return rc, course, cs, nil
}

// currentNode returns the spec of the course's stored current node, or nil
// for a pending course.
func (e *Engine) currentNode(rc *runContext, course *CourseInstance, cs *CourseSpec) (*NodeSpec, error) {
	ni, err := rc.tx.NodeInstanceByCourse(course.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	node := cs.Node(ni.NodeCode)
	if node == nil {
		return nil, fmt.Errorf("course %q: stored node %q: %w", cs.Code, ni.NodeCode, ErrCourseNodeDoesNotExist)
	}
	return node, nil
}

// resolveTransition picks the outbound transition an external advance fires.
// A pending course takes its ENTER node's single outbound and accepts no
// action name; INPUT and SPLIT nodes resolve by action name. Terminal nodes
// have no outbounds to resolve.
func resolveTransition(cs *CourseSpec, current *NodeSpec, action string) (*TransitionSpec, error) {
	if current == nil {
		if action != "" {
			return nil, fmt.Errorf("pending course takes no action, got %q: %w", action, ErrNoSuchElement)
		}
		enter := cs.NodeOfType(NodeEnter)
		if enter == nil {
			return nil, fmt.Errorf("course %q has no enter node: %w", cs.Code, ErrCourseNodeDoesNotExist)
		}
		outs := cs.Outbounds(enter.Code)
		if len(outs) != 1 {
			return nil, fmt.Errorf("course %q: enter node %q has %d outbounds, want 1", cs.Code, enter.Code, len(outs))
		}
		return outs[0], nil
	}

	switch current.Type {
	case NodeInput, NodeSplit:
		t := cs.OutboundByAction(current.Code, action)
		if t == nil {
			return nil, fmt.Errorf("node %q has no outbound with action %q: %w", current.Code, action, ErrNoSuchElement)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("current node %q is %s: %w", current.Code, current.Type, ErrWrongNodeType)
	}
}

// ----------------------------------------------------------------------------
// Movement
// ----------------------------------------------------------------------------

// move lands a course on target. It runs the node's landing handler, and for
// persistent node types replaces the course's stored current node and spawns
// the pending branch courses of a SPLIT. Transient targets leave the stored
// node untouched; the caller continues the run within the same transaction.
func (e *Engine) move(rc *runContext, course *CourseInstance, cs *CourseSpec, target *NodeSpec) (*NodeInstance, error) {
	if cs.Node(target.Code) != target {
		return nil, fmt.Errorf("node %q is not part of course %q: %w", target.Code, cs.Code, ErrForeignNode)
	}
	if result := target.Validate(); !result.IsValid() {
		return nil, &ValidationError{Workflow: rc.spec.Code, Result: result}
	}

	if target.LandingHandler != "" {
		handler, err := e.registry.Handler(target.LandingHandler)
		if err != nil {
			return nil, err
		}
		if err := handler(rc.ctx, rc.doc, rc.user); err != nil {
			return nil, fmt.Errorf("landing handler %q on node %q: %w", target.LandingHandler, target.Code, err)
		}
	}

	if target.Type.Transient() {
		return nil, nil
	}

	prev, err := rc.tx.NodeInstanceByCourse(course.ID)
	switch {
	case err == nil:
		if err := rc.tx.DeleteNodeInstance(prev.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	ni := newNodeInstance(course.ID, target.Code)
	if err := rc.tx.InsertNodeInstance(ni); err != nil {
		return nil, err
	}
	course.UpdatedAt = time.Now()
	if err := rc.tx.UpdateCourseInstance(course); err != nil {
		return nil, err
	}
	e.emit(Event{
		Type:       EvNodeLanded,
		WorkflowID: course.WorkflowID,
		Course:     course.CourseCode,
		CourseID:   course.ID,
		Node:       target.Code,
	})
	e.logger.Debug("node landed", "workflow", course.WorkflowID, "course", cs.Code, "node", target.Code)

	if target.Type == NodeSplit {
		for _, code := range target.Branches {
			branch := newCourseInstance(course.WorkflowID, code, ni.ID)
			if err := rc.tx.InsertCourseInstance(branch); err != nil {
				return nil, err
			}
			e.emit(Event{
				Type:       EvBranchSpawned,
				WorkflowID: course.WorkflowID,
				Course:     code,
				CourseID:   branch.ID,
				Node:       target.Code,
			})
		}
	}
	return ni, nil
}

// runTransition moves a course through one transition and keeps running as
// long as the destination continues automatically: STEP takes its single
// outbound, MULTIPLEXER the first outbound (by ascending priority) whose
// condition holds, and EXIT notifies the parent SPLIT. INPUT and SPLIT stop
// and wait.
func (e *Engine) runTransition(rc *runContext, course *CourseInstance, cs *CourseSpec, t *TransitionSpec) error {
	dest := cs.Node(t.Destination)
	if dest == nil {
		return fmt.Errorf("course %q: transition destination %q: %w", cs.Code, t.Destination, ErrCourseNodeDoesNotExist)
	}
	if _, err := e.move(rc, course, cs, dest); err != nil {
		return err
	}

	switch dest.Type {
	case NodeInput, NodeSplit:
		return nil

	case NodeExit:
		e.emit(Event{
			Type:       EvCourseEnded,
			WorkflowID: course.WorkflowID,
			Course:     course.CourseCode,
			CourseID:   course.ID,
			Node:       dest.Code,
			ExitValue:  dest.ExitValue,
		})
		return e.notifyParent(rc, course, cs)

	case NodeStep:
		outs := cs.Outbounds(dest.Code)
		if len(outs) != 1 {
			return fmt.Errorf("course %q: step node %q has %d outbounds, want 1", cs.Code, dest.Code, len(outs))
		}
		return e.runTransition(rc, course, cs, outs[0])

	case NodeMultiplexer:
		for _, next := range cs.OutboundsByPriority(dest.Code) {
			cond, err := e.registry.Condition(next.Condition)
			if err != nil {
				return err
			}
			ok, err := cond(rc.ctx, rc.doc, rc.user)
			if err != nil {
				return fmt.Errorf("condition %q on multiplexer %q: %w", next.Condition, dest.Code, err)
			}
			if ok {
				return e.runTransition(rc, course, cs, next)
			}
		}
		return fmt.Errorf("multiplexer %q: %w", dest.Code, ErrMultiplexerNoMatch)

	default:
		// Validation forbids ENTER, CANCEL, and JOINED destinations.
		return fmt.Errorf("course %q: transition landed on %s node %q", cs.Code, dest.Type, dest.Code)
	}
}

// ----------------------------------------------------------------------------
// Split resolution
// ----------------------------------------------------------------------------

// notifyParent reports a terminated course to the SPLIT that spawned it. For
// the root course it marks the workflow completed instead. A SPLIT with a
// joiner asks it for an action: an empty answer keeps waiting (an error once
// every branch has terminated), a named action joins the remaining live
// branches and advances the parent. A SPLIT without a joiner advances through
// its single outbound once every branch has terminated.
func (e *Engine) notifyParent(rc *runContext, course *CourseInstance, cs *CourseSpec) error {
	if course.ParentNodeID == "" {
		e.emit(Event{Type: EvWorkflowCompleted, WorkflowID: course.WorkflowID, CourseID: course.ID})
		e.logger.Info("workflow completed", "workflow", course.WorkflowID)
		return nil
	}

	parentNI, err := rc.tx.NodeInstance(course.ParentNodeID)
	if err != nil {
		return err
	}
	parentCourse, err := rc.tx.CourseInstance(parentNI.CourseID)
	if err != nil {
		return err
	}
	parentCS := rc.spec.Course(parentCourse.CourseCode)
	if parentCS == nil {
		return fmt.Errorf("parent course %q absent from workflow %q: %w",
			parentCourse.CourseCode, rc.spec.Code, ErrCourseNodeDoesNotExist)
	}
	splitNode := parentCS.Node(parentNI.NodeCode)
	if splitNode == nil || splitNode.Type != NodeSplit {
		return fmt.Errorf("course %q: parent is not waiting on a split node: %w", cs.Code, ErrCourseNodeDoesNotExist)
	}

	siblings, err := rc.tx.CoursesByParent(parentNI.ID)
	if err != nil {
		return err
	}
	statuses := make(BranchStatuses, len(siblings))
	for _, sib := range siblings {
		status, err := e.branchStatus(rc, sib)
		if err != nil {
			return err
		}
		statuses[sib.CourseCode] = status
	}

	if splitNode.Joiner == "" {
		if !statuses.AllTerminated() {
			return nil
		}
		outs := parentCS.Outbounds(splitNode.Code)
		if len(outs) != 1 {
			return fmt.Errorf("course %q: joinerless split %q has %d outbounds, want 1",
				parentCS.Code, splitNode.Code, len(outs))
		}
		return e.runTransition(rc, parentCourse, parentCS, outs[0])
	}

	joiner, err := e.registry.Joiner(splitNode.Joiner)
	if err != nil {
		return err
	}
	action, err := joiner(rc.ctx, rc.doc, statuses, course.CourseCode)
	if err != nil {
		return fmt.Errorf("joiner %q on split %q: %w", splitNode.Joiner, splitNode.Code, err)
	}
	e.emit(Event{
		Type:       EvJoinerInvoked,
		WorkflowID: parentCourse.WorkflowID,
		Course:     parentCourse.CourseCode,
		CourseID:   parentCourse.ID,
		Node:       splitNode.Code,
		Action:     action,
	})

	if action == "" {
		if statuses.AllTerminated() {
			return fmt.Errorf("split %q: %w", splitNode.Code, ErrSplitUnresolved)
		}
		return nil
	}

	t := parentCS.OutboundByAction(splitNode.Code, action)
	if t == nil {
		return fmt.Errorf("joiner %q chose action %q absent from split %q: %w",
			splitNode.Joiner, action, splitNode.Code, ErrNoSuchElement)
	}

	// The joiner decided to leave the split: the still-running siblings are
	// joined without notifying the parent again.
	for _, sib := range siblings {
		if statuses[sib.CourseCode].Terminated {
			continue
		}
		sibCS := rc.spec.Course(sib.CourseCode)
		if sibCS == nil {
			return fmt.Errorf("branch course %q absent from workflow %q: %w",
				sib.CourseCode, rc.spec.Code, ErrCourseNodeDoesNotExist)
		}
		if err := e.joinRecursive(rc, sib, sibCS, 0, false); err != nil {
			return err
		}
	}
	return e.runTransition(rc, parentCourse, parentCS, t)
}

// branchStatus reads one branch course's status as reported to joiners: not
// terminated while running or pending, exit value -1 when cancelled or
// joined, the EXIT node's value otherwise.
func (e *Engine) branchStatus(rc *runContext, course *CourseInstance) (BranchStatus, error) {
	cs := rc.spec.Course(course.CourseCode)
	if cs == nil {
		return BranchStatus{}, fmt.Errorf("branch course %q absent from workflow %q: %w",
			course.CourseCode, rc.spec.Code, ErrCourseNodeDoesNotExist)
	}
	node, err := e.currentNode(rc, course, cs)
	if err != nil || node == nil {
		return BranchStatus{}, err
	}
	switch node.Type {
	case NodeExit:
		value := -1
		if node.ExitValue != nil {
			value = *node.ExitValue
		}
		return BranchStatus{Terminated: true, ExitValue: value}, nil
	case NodeCancel, NodeJoined:
		return BranchStatus{Terminated: true, ExitValue: -1}, nil
	default:
		return BranchStatus{}, nil
	}
}

// ----------------------------------------------------------------------------
// Recursive termination
// ----------------------------------------------------------------------------

// cancelRecursive moves a course to its CANCEL node, cancelling live branches
// below it first (one term level deeper per split). Terminated courses are
// left untouched. notify controls whether a top-level cancel reports to the
// parent SPLIT.
func (e *Engine) cancelRecursive(rc *runContext, course *CourseInstance, cs *CourseSpec, level int, notify bool) error {
	current, err := e.currentNode(rc, course, cs)
	if err != nil {
		return err
	}
	if current != nil && current.Type.Terminal() {
		return nil
	}
	cancelNode := cs.NodeOfType(NodeCancel)
	if cancelNode == nil {
		return fmt.Errorf("course %q: %w", cs.Code, ErrNotCancellable)
	}

	if current != nil && current.Type == NodeSplit {
		if err := e.terminateBranches(rc, course, level, e.cancelRecursive); err != nil {
			return err
		}
	}

	if _, err := e.move(rc, course, cs, cancelNode); err != nil {
		return err
	}
	lvl := level
	course.TermLevel = &lvl
	course.UpdatedAt = time.Now()
	if err := rc.tx.UpdateCourseInstance(course); err != nil {
		return err
	}
	e.emit(Event{
		Type:       EvCourseCancelled,
		WorkflowID: course.WorkflowID,
		Course:     course.CourseCode,
		CourseID:   course.ID,
		Node:       cancelNode.Code,
		TermLevel:  course.TermLevel,
	})

	if notify {
		return e.notifyParent(rc, course, cs)
	}
	return nil
}

// joinRecursive is the JOINED counterpart of cancelRecursive. Courses without
// a JOINED node (the root course among them) are not joinable.
func (e *Engine) joinRecursive(rc *runContext, course *CourseInstance, cs *CourseSpec, level int, notify bool) error {
	current, err := e.currentNode(rc, course, cs)
	if err != nil {
		return err
	}
	if current != nil && current.Type.Terminal() {
		return nil
	}
	joinedNode := cs.NodeOfType(NodeJoined)
	if joinedNode == nil {
		return fmt.Errorf("course %q: %w", cs.Code, ErrNotJoinable)
	}

	if current != nil && current.Type == NodeSplit {
		if err := e.terminateBranches(rc, course, level, e.joinRecursive); err != nil {
			return err
		}
	}

	if _, err := e.move(rc, course, cs, joinedNode); err != nil {
		return err
	}
	lvl := level
	course.TermLevel = &lvl
	course.UpdatedAt = time.Now()
	if err := rc.tx.UpdateCourseInstance(course); err != nil {
		return err
	}
	e.emit(Event{
		Type:       EvCourseJoined,
		WorkflowID: course.WorkflowID,
		Course:     course.CourseCode,
		CourseID:   course.ID,
		Node:       joinedNode.Code,
		TermLevel:  course.TermLevel,
	})

	if notify {
		return e.notifyParent(rc, course, cs)
	}
	return nil
}

// terminateBranches applies fn to every branch spawned by the splitting
// course's current SPLIT node, one term level deeper and without parent
// notification.
func (e *Engine) terminateBranches(rc *runContext, course *CourseInstance, level int,
	fn func(*runContext, *CourseInstance, *CourseSpec, int, bool) error) error {

	ni, err := rc.tx.NodeInstanceByCourse(course.ID)
	if err != nil {
		return err
	}
	branches, err := rc.tx.CoursesByParent(ni.ID)
	if err != nil {
		return err
	}
	for _, branch := range branches {
		branchCS := rc.spec.Course(branch.CourseCode)
		if branchCS == nil {
			return fmt.Errorf("branch course %q absent from workflow %q: %w",
				branch.CourseCode, rc.spec.Code, ErrCourseNodeDoesNotExist)
		}
		if err := fn(rc, branch, branchCS, level+1, false); err != nil {
			return err
		}
	}
	return nil
}

// emit sends an event to the configured channel, stamping it first. Sends
// never block.
func (e *Engine) emit(ev Event) {
	if e.events == nil {
		return
	}
	ev.Timestamp = time.Now()
	select {
	case e.events <- ev:
	default:
	}
}
