package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/AbdelazizMoustafa10m/traject/internal/workflow"
)

// Memory is an in-memory workflow.Store. A single mutex serializes
// transactions; rollback restores a snapshot taken at transaction start.
// Installed specs are treated as immutable and shared by reference; instance
// records are cloned on every read and write so callers never alias internal
// state.
type Memory struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	specs     map[string]*workflow.WorkflowSpec
	workflows map[string]*workflow.WorkflowInstance
	courses   map[string]*workflow.CourseInstance
	nodes     map[string]*workflow.NodeInstance

	// courseOrder preserves creation order for CoursesByWorkflow and
	// CoursesByParent.
	courseOrder []string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: memState{
		specs:     make(map[string]*workflow.WorkflowSpec),
		workflows: make(map[string]*workflow.WorkflowInstance),
		courses:   make(map[string]*workflow.CourseInstance),
		nodes:     make(map[string]*workflow.NodeInstance),
	}}
}

// Atomically implements workflow.Store. fn runs under the store lock; when it
// returns an error or panics, the pre-transaction snapshot is restored.
func (m *Memory) Atomically(ctx context.Context, fn func(tx workflow.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.snapshot()
	defer func() {
		if r := recover(); r != nil {
			m.state = snapshot
			panic(r)
		}
	}()

	if err := fn(&memTx{state: &m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// snapshot copies the state maps. Stored values are never mutated in place
// (updates replace entries with fresh clones), so a shallow copy per map is a
// complete rollback point.
func (s *memState) snapshot() memState {
	cp := memState{
		specs:       make(map[string]*workflow.WorkflowSpec, len(s.specs)),
		workflows:   make(map[string]*workflow.WorkflowInstance, len(s.workflows)),
		courses:     make(map[string]*workflow.CourseInstance, len(s.courses)),
		nodes:       make(map[string]*workflow.NodeInstance, len(s.nodes)),
		courseOrder: append([]string(nil), s.courseOrder...),
	}
	for k, v := range s.specs {
		cp.specs[k] = v
	}
	for k, v := range s.workflows {
		cp.workflows[k] = v
	}
	for k, v := range s.courses {
		cp.courses[k] = v
	}
	for k, v := range s.nodes {
		cp.nodes[k] = v
	}
	return cp
}

type memTx struct {
	state *memState
}

// ----------------------------------------------------------------------------
// Specs
// ----------------------------------------------------------------------------

func (t *memTx) InsertWorkflowSpec(spec *workflow.WorkflowSpec) error {
	if _, ok := t.state.specs[spec.Code]; ok {
		return fmt.Errorf("workflow spec %q: %w", spec.Code, workflow.ErrSpecExists)
	}
	t.state.specs[spec.Code] = spec
	return nil
}

func (t *memTx) WorkflowSpec(code string) (*workflow.WorkflowSpec, error) {
	spec, ok := t.state.specs[code]
	if !ok {
		return nil, fmt.Errorf("workflow spec %q: %w", code, workflow.ErrNotFound)
	}
	return spec, nil
}

func (t *memTx) DeleteWorkflowSpec(code string) error {
	if _, ok := t.state.specs[code]; !ok {
		return fmt.Errorf("workflow spec %q: %w", code, workflow.ErrNotFound)
	}
	for _, wi := range t.state.workflows {
		if wi.SpecCode == code {
			return fmt.Errorf("workflow spec %q: %w", code, workflow.ErrSpecInUse)
		}
	}
	delete(t.state.specs, code)
	return nil
}

func (t *memTx) ListWorkflowSpecs() ([]*workflow.WorkflowSpec, error) {
	specs := make([]*workflow.WorkflowSpec, 0, len(t.state.specs))
	for _, spec := range t.state.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Code < specs[j].Code })
	return specs, nil
}

// ----------------------------------------------------------------------------
// Workflow instances
// ----------------------------------------------------------------------------

func (t *memTx) InsertWorkflowInstance(wi *workflow.WorkflowInstance) error {
	if _, ok := t.state.workflows[wi.ID]; ok {
		return fmt.Errorf("workflow instance %s: %w", wi.ID, workflow.ErrInstanceExists)
	}
	for _, other := range t.state.workflows {
		if other.DocumentType == wi.DocumentType && other.DocumentID == wi.DocumentID {
			return fmt.Errorf("document %s/%s: %w", wi.DocumentType, wi.DocumentID, workflow.ErrInstanceExists)
		}
	}
	t.state.workflows[wi.ID] = cloneWorkflowInstance(wi)
	return nil
}

func (t *memTx) WorkflowInstance(id string) (*workflow.WorkflowInstance, error) {
	wi, ok := t.state.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow instance %s: %w", id, workflow.ErrNotFound)
	}
	return cloneWorkflowInstance(wi), nil
}

func (t *memTx) WorkflowInstanceByDocument(documentType, documentID string) (*workflow.WorkflowInstance, error) {
	for _, wi := range t.state.workflows {
		if wi.DocumentType == documentType && wi.DocumentID == documentID {
			return cloneWorkflowInstance(wi), nil
		}
	}
	return nil, fmt.Errorf("document %s/%s: %w", documentType, documentID, workflow.ErrNotFound)
}

func (t *memTx) DeleteWorkflowInstance(id string) error {
	if _, ok := t.state.workflows[id]; !ok {
		return fmt.Errorf("workflow instance %s: %w", id, workflow.ErrNotFound)
	}
	delete(t.state.workflows, id)

	kept := t.state.courseOrder[:0:0]
	for _, courseID := range t.state.courseOrder {
		course := t.state.courses[courseID]
		if course == nil || course.WorkflowID != id {
			kept = append(kept, courseID)
			continue
		}
		delete(t.state.courses, courseID)
		for niID, ni := range t.state.nodes {
			if ni.CourseID == courseID {
				delete(t.state.nodes, niID)
			}
		}
	}
	t.state.courseOrder = kept
	return nil
}

// ----------------------------------------------------------------------------
// Course instances
// ----------------------------------------------------------------------------

func (t *memTx) InsertCourseInstance(ci *workflow.CourseInstance) error {
	if _, ok := t.state.courses[ci.ID]; ok {
		return fmt.Errorf("course instance %s already exists", ci.ID)
	}
	t.state.courses[ci.ID] = cloneCourseInstance(ci)
	t.state.courseOrder = append(t.state.courseOrder, ci.ID)
	return nil
}

func (t *memTx) CourseInstance(id string) (*workflow.CourseInstance, error) {
	ci, ok := t.state.courses[id]
	if !ok {
		return nil, fmt.Errorf("course instance %s: %w", id, workflow.ErrNotFound)
	}
	return cloneCourseInstance(ci), nil
}

func (t *memTx) UpdateCourseInstance(ci *workflow.CourseInstance) error {
	if _, ok := t.state.courses[ci.ID]; !ok {
		return fmt.Errorf("course instance %s: %w", ci.ID, workflow.ErrNotFound)
	}
	t.state.courses[ci.ID] = cloneCourseInstance(ci)
	return nil
}

func (t *memTx) CoursesByWorkflow(workflowID string) ([]*workflow.CourseInstance, error) {
	var out []*workflow.CourseInstance
	for _, id := range t.state.courseOrder {
		if ci := t.state.courses[id]; ci != nil && ci.WorkflowID == workflowID {
			out = append(out, cloneCourseInstance(ci))
		}
	}
	return out, nil
}

func (t *memTx) CoursesByParent(nodeInstanceID string) ([]*workflow.CourseInstance, error) {
	var out []*workflow.CourseInstance
	for _, id := range t.state.courseOrder {
		if ci := t.state.courses[id]; ci != nil && ci.ParentNodeID == nodeInstanceID {
			out = append(out, cloneCourseInstance(ci))
		}
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// Node instances
// ----------------------------------------------------------------------------

func (t *memTx) InsertNodeInstance(ni *workflow.NodeInstance) error {
	if _, ok := t.state.courses[ni.CourseID]; !ok {
		return fmt.Errorf("course instance %s: %w", ni.CourseID, workflow.ErrNotFound)
	}
	for _, other := range t.state.nodes {
		if other.CourseID == ni.CourseID {
			return fmt.Errorf("course instance %s already has a node instance", ni.CourseID)
		}
	}
	t.state.nodes[ni.ID] = cloneNodeInstance(ni)
	return nil
}

func (t *memTx) NodeInstance(id string) (*workflow.NodeInstance, error) {
	ni, ok := t.state.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node instance %s: %w", id, workflow.ErrNotFound)
	}
	return cloneNodeInstance(ni), nil
}

func (t *memTx) NodeInstanceByCourse(courseID string) (*workflow.NodeInstance, error) {
	for _, ni := range t.state.nodes {
		if ni.CourseID == courseID {
			return cloneNodeInstance(ni), nil
		}
	}
	return nil, fmt.Errorf("course instance %s has no node instance: %w", courseID, workflow.ErrNotFound)
}

func (t *memTx) DeleteNodeInstance(id string) error {
	if _, ok := t.state.nodes[id]; !ok {
		return fmt.Errorf("node instance %s: %w", id, workflow.ErrNotFound)
	}
	delete(t.state.nodes, id)
	return nil
}

// ----------------------------------------------------------------------------
// Clones
// ----------------------------------------------------------------------------

func cloneWorkflowInstance(wi *workflow.WorkflowInstance) *workflow.WorkflowInstance {
	cp := *wi
	return &cp
}

func cloneCourseInstance(ci *workflow.CourseInstance) *workflow.CourseInstance {
	cp := *ci
	if ci.TermLevel != nil {
		level := *ci.TermLevel
		cp.TermLevel = &level
	}
	return &cp
}

func cloneNodeInstance(ni *workflow.NodeInstance) *workflow.NodeInstance {
	cp := *ni
	return &cp
}
