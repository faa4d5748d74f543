package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AbdelazizMoustafa10m/traject/internal/workflow"
)

// SQLite is a durable workflow.Store backed by a single SQLite database file
// (modernc.org/sqlite, no cgo). Atomically maps directly onto a database
// transaction.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS workflow_specs (
	code              TEXT PRIMARY KEY,
	name              TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	document_type     TEXT NOT NULL,
	create_permission TEXT NOT NULL DEFAULT '',
	cancel_permission TEXT NOT NULL DEFAULT '',
	fingerprint       TEXT NOT NULL DEFAULT '0'
);

CREATE TABLE IF NOT EXISTS course_specs (
	workflow_code     TEXT NOT NULL REFERENCES workflow_specs(code) ON DELETE CASCADE,
	code              TEXT NOT NULL,
	name              TEXT NOT NULL DEFAULT '',
	depth             INTEGER NOT NULL,
	cancel_permission TEXT NOT NULL DEFAULT '',
	ord               INTEGER NOT NULL,
	PRIMARY KEY (workflow_code, code)
);

CREATE TABLE IF NOT EXISTS node_specs (
	workflow_code      TEXT NOT NULL,
	course_code        TEXT NOT NULL,
	code               TEXT NOT NULL,
	type               TEXT NOT NULL,
	name               TEXT NOT NULL DEFAULT '',
	landing_handler    TEXT NOT NULL DEFAULT '',
	exit_value         INTEGER,
	joiner             TEXT NOT NULL DEFAULT '',
	execute_permission TEXT NOT NULL DEFAULT '',
	ord                INTEGER NOT NULL,
	PRIMARY KEY (workflow_code, course_code, code),
	FOREIGN KEY (workflow_code, course_code)
		REFERENCES course_specs(workflow_code, code) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS node_branches (
	workflow_code TEXT NOT NULL,
	course_code   TEXT NOT NULL,
	node_code     TEXT NOT NULL,
	branch_code   TEXT NOT NULL,
	ord           INTEGER NOT NULL,
	PRIMARY KEY (workflow_code, course_code, node_code, branch_code),
	FOREIGN KEY (workflow_code, course_code, node_code)
		REFERENCES node_specs(workflow_code, course_code, code) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transition_specs (
	workflow_code TEXT NOT NULL,
	course_code   TEXT NOT NULL,
	origin        TEXT NOT NULL,
	destination   TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	action_name   TEXT NOT NULL DEFAULT '',
	permission    TEXT NOT NULL DEFAULT '',
	condition     TEXT NOT NULL DEFAULT '',
	priority      INTEGER,
	ord           INTEGER NOT NULL,
	PRIMARY KEY (workflow_code, course_code, ord),
	FOREIGN KEY (workflow_code, course_code)
		REFERENCES course_specs(workflow_code, code) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS workflow_instances (
	id            TEXT PRIMARY KEY,
	spec_code     TEXT NOT NULL REFERENCES workflow_specs(code),
	document_type TEXT NOT NULL,
	document_id   TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	UNIQUE (document_type, document_id)
);

-- parent_node_id is a soft reference to the SPLIT node instance that spawned
-- the course: the node instance is replaced when the parent course moves on,
-- and the terminated branch history must survive that.
CREATE TABLE IF NOT EXISTS course_instances (
	id             TEXT PRIMARY KEY,
	workflow_id    TEXT NOT NULL REFERENCES workflow_instances(id) ON DELETE CASCADE,
	course_code    TEXT NOT NULL,
	parent_node_id TEXT NOT NULL DEFAULT '',
	term_level     INTEGER,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_course_instances_workflow ON course_instances(workflow_id);
CREATE INDEX IF NOT EXISTS idx_course_instances_parent ON course_instances(parent_node_id);

CREATE TABLE IF NOT EXISTS node_instances (
	id         TEXT PRIMARY KEY,
	course_id  TEXT NOT NULL UNIQUE REFERENCES course_instances(id) ON DELETE CASCADE,
	node_code  TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. Pass ":memory:" for an in-process throwaway database.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	// A single writer keeps transaction serialization in the database
	// instead of racing on SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

// Atomically implements workflow.Store over a database transaction.
func (s *SQLite) Atomically(ctx context.Context, fn func(tx workflow.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sqlite transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&sqliteTx{ctx: ctx, tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sqlite transaction: %w", err)
	}
	return nil
}

type sqliteTx struct {
	ctx context.Context
	tx  *sql.Tx
}

// ----------------------------------------------------------------------------
// Specs
// ----------------------------------------------------------------------------

func (t *sqliteTx) InsertWorkflowSpec(spec *workflow.WorkflowSpec) error {
	var exists int
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT COUNT(*) FROM workflow_specs WHERE code = ?`, spec.Code).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("workflow spec %q: %w", spec.Code, workflow.ErrSpecExists)
	}

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO workflow_specs (code, name, description, document_type, create_permission, cancel_permission, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		spec.Code, spec.Name, spec.Description, spec.DocumentType,
		spec.CreatePermission, spec.CancelPermission, strconv.FormatUint(spec.Fingerprint, 16))
	if err != nil {
		return err
	}

	for ci, cs := range spec.Courses {
		_, err = t.tx.ExecContext(t.ctx, `
			INSERT INTO course_specs (workflow_code, code, name, depth, cancel_permission, ord)
			VALUES (?, ?, ?, ?, ?, ?)`,
			spec.Code, cs.Code, cs.Name, cs.Depth, cs.CancelPermission, ci)
		if err != nil {
			return err
		}
		for ni, n := range cs.Nodes {
			_, err = t.tx.ExecContext(t.ctx, `
				INSERT INTO node_specs (workflow_code, course_code, code, type, name, landing_handler, exit_value, joiner, execute_permission, ord)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				spec.Code, cs.Code, n.Code, string(n.Type), n.Name, n.LandingHandler,
				nullableInt(n.ExitValue), n.Joiner, n.ExecutePermission, ni)
			if err != nil {
				return err
			}
			for bi, branch := range n.Branches {
				_, err = t.tx.ExecContext(t.ctx, `
					INSERT INTO node_branches (workflow_code, course_code, node_code, branch_code, ord)
					VALUES (?, ?, ?, ?, ?)`,
					spec.Code, cs.Code, n.Code, branch, bi)
				if err != nil {
					return err
				}
			}
		}
		for ti, tr := range cs.Transitions {
			_, err = t.tx.ExecContext(t.ctx, `
				INSERT INTO transition_specs (workflow_code, course_code, origin, destination, name, action_name, permission, condition, priority, ord)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				spec.Code, cs.Code, tr.Origin, tr.Destination, tr.Name,
				tr.ActionName, tr.Permission, tr.Condition, nullableInt(tr.Priority), ti)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *sqliteTx) WorkflowSpec(code string) (*workflow.WorkflowSpec, error) {
	spec := &workflow.WorkflowSpec{}
	var fingerprint string
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT code, name, description, document_type, create_permission, cancel_permission, fingerprint
		FROM workflow_specs WHERE code = ?`, code).Scan(
		&spec.Code, &spec.Name, &spec.Description, &spec.DocumentType,
		&spec.CreatePermission, &spec.CancelPermission, &fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflow spec %q: %w", code, workflow.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	spec.Fingerprint, err = strconv.ParseUint(fingerprint, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("workflow spec %q: decoding fingerprint: %w", code, err)
	}

	if err := t.loadCourses(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func (t *sqliteTx) loadCourses(spec *workflow.WorkflowSpec) error {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT code, name, depth, cancel_permission
		FROM course_specs WHERE workflow_code = ? ORDER BY ord`, spec.Code)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		cs := &workflow.CourseSpec{}
		if err := rows.Scan(&cs.Code, &cs.Name, &cs.Depth, &cs.CancelPermission); err != nil {
			return err
		}
		spec.Courses = append(spec.Courses, cs)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, cs := range spec.Courses {
		if err := t.loadNodes(spec.Code, cs); err != nil {
			return err
		}
		if err := t.loadTransitions(spec.Code, cs); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqliteTx) loadNodes(workflowCode string, cs *workflow.CourseSpec) error {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT code, type, name, landing_handler, exit_value, joiner, execute_permission
		FROM node_specs WHERE workflow_code = ? AND course_code = ? ORDER BY ord`,
		workflowCode, cs.Code)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		n := &workflow.NodeSpec{}
		var typ string
		var exitValue sql.NullInt64
		if err := rows.Scan(&n.Code, &typ, &n.Name, &n.LandingHandler, &exitValue, &n.Joiner, &n.ExecutePermission); err != nil {
			return err
		}
		n.Type = workflow.NodeType(typ)
		if exitValue.Valid {
			v := int(exitValue.Int64)
			n.ExitValue = &v
		}
		cs.Nodes = append(cs.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, n := range cs.Nodes {
		if n.Type != workflow.NodeSplit {
			continue
		}
		branchRows, err := t.tx.QueryContext(t.ctx, `
			SELECT branch_code FROM node_branches
			WHERE workflow_code = ? AND course_code = ? AND node_code = ? ORDER BY ord`,
			workflowCode, cs.Code, n.Code)
		if err != nil {
			return err
		}
		for branchRows.Next() {
			var branch string
			if err := branchRows.Scan(&branch); err != nil {
				branchRows.Close()
				return err
			}
			n.Branches = append(n.Branches, branch)
		}
		if err := branchRows.Err(); err != nil {
			branchRows.Close()
			return err
		}
		branchRows.Close()
	}
	return nil
}

func (t *sqliteTx) loadTransitions(workflowCode string, cs *workflow.CourseSpec) error {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT origin, destination, name, action_name, permission, condition, priority
		FROM transition_specs WHERE workflow_code = ? AND course_code = ? ORDER BY ord`,
		workflowCode, cs.Code)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		tr := &workflow.TransitionSpec{}
		var priority sql.NullInt64
		if err := rows.Scan(&tr.Origin, &tr.Destination, &tr.Name, &tr.ActionName, &tr.Permission, &tr.Condition, &priority); err != nil {
			return err
		}
		if priority.Valid {
			v := int(priority.Int64)
			tr.Priority = &v
		}
		cs.Transitions = append(cs.Transitions, tr)
	}
	return rows.Err()
}

func (t *sqliteTx) DeleteWorkflowSpec(code string) error {
	var instances int
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT COUNT(*) FROM workflow_instances WHERE spec_code = ?`, code).Scan(&instances)
	if err != nil {
		return err
	}
	if instances > 0 {
		return fmt.Errorf("workflow spec %q: %w", code, workflow.ErrSpecInUse)
	}
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM workflow_specs WHERE code = ?`, code)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("workflow spec %q: %w", code, workflow.ErrNotFound)
	}
	return nil
}

func (t *sqliteTx) ListWorkflowSpecs() ([]*workflow.WorkflowSpec, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT code FROM workflow_specs ORDER BY code`)
	if err != nil {
		return nil, err
	}
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return nil, err
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	specs := make([]*workflow.WorkflowSpec, 0, len(codes))
	for _, code := range codes {
		spec, err := t.WorkflowSpec(code)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// ----------------------------------------------------------------------------
// Workflow instances
// ----------------------------------------------------------------------------

func (t *sqliteTx) InsertWorkflowInstance(wi *workflow.WorkflowInstance) error {
	var exists int
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT COUNT(*) FROM workflow_instances
		WHERE id = ? OR (document_type = ? AND document_id = ?)`,
		wi.ID, wi.DocumentType, wi.DocumentID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("document %s/%s: %w", wi.DocumentType, wi.DocumentID, workflow.ErrInstanceExists)
	}
	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO workflow_instances (id, spec_code, document_type, document_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		wi.ID, wi.SpecCode, wi.DocumentType, wi.DocumentID,
		encodeTime(wi.CreatedAt), encodeTime(wi.UpdatedAt))
	return err
}

func (t *sqliteTx) WorkflowInstance(id string) (*workflow.WorkflowInstance, error) {
	return t.scanWorkflowInstance(t.tx.QueryRowContext(t.ctx, `
		SELECT id, spec_code, document_type, document_id, created_at, updated_at
		FROM workflow_instances WHERE id = ?`, id),
		fmt.Sprintf("workflow instance %s", id))
}

func (t *sqliteTx) WorkflowInstanceByDocument(documentType, documentID string) (*workflow.WorkflowInstance, error) {
	return t.scanWorkflowInstance(t.tx.QueryRowContext(t.ctx, `
		SELECT id, spec_code, document_type, document_id, created_at, updated_at
		FROM workflow_instances WHERE document_type = ? AND document_id = ?`, documentType, documentID),
		fmt.Sprintf("document %s/%s", documentType, documentID))
}

func (t *sqliteTx) scanWorkflowInstance(row *sql.Row, what string) (*workflow.WorkflowInstance, error) {
	wi := &workflow.WorkflowInstance{}
	var createdAt, updatedAt string
	err := row.Scan(&wi.ID, &wi.SpecCode, &wi.DocumentType, &wi.DocumentID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, workflow.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if wi.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if wi.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return wi, nil
}

func (t *sqliteTx) DeleteWorkflowInstance(id string) error {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM workflow_instances WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("workflow instance %s: %w", id, workflow.ErrNotFound)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Course instances
// ----------------------------------------------------------------------------

func (t *sqliteTx) InsertCourseInstance(ci *workflow.CourseInstance) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO course_instances (id, workflow_id, course_code, parent_node_id, term_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ci.ID, ci.WorkflowID, ci.CourseCode, ci.ParentNodeID,
		nullableInt(ci.TermLevel), encodeTime(ci.CreatedAt), encodeTime(ci.UpdatedAt))
	return err
}

func (t *sqliteTx) CourseInstance(id string) (*workflow.CourseInstance, error) {
	ci, err := scanCourseInstance(t.tx.QueryRowContext(t.ctx, `
		SELECT id, workflow_id, course_code, parent_node_id, term_level, created_at, updated_at
		FROM course_instances WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course instance %s: %w", id, workflow.ErrNotFound)
	}
	return ci, err
}

func (t *sqliteTx) UpdateCourseInstance(ci *workflow.CourseInstance) error {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE course_instances SET term_level = ?, updated_at = ? WHERE id = ?`,
		nullableInt(ci.TermLevel), encodeTime(ci.UpdatedAt), ci.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("course instance %s: %w", ci.ID, workflow.ErrNotFound)
	}
	return nil
}

func (t *sqliteTx) CoursesByWorkflow(workflowID string) ([]*workflow.CourseInstance, error) {
	return t.queryCourses(`
		SELECT id, workflow_id, course_code, parent_node_id, term_level, created_at, updated_at
		FROM course_instances WHERE workflow_id = ? ORDER BY rowid`, workflowID)
}

func (t *sqliteTx) CoursesByParent(nodeInstanceID string) ([]*workflow.CourseInstance, error) {
	return t.queryCourses(`
		SELECT id, workflow_id, course_code, parent_node_id, term_level, created_at, updated_at
		FROM course_instances WHERE parent_node_id = ? ORDER BY rowid`, nodeInstanceID)
}

func (t *sqliteTx) queryCourses(query string, arg any) ([]*workflow.CourseInstance, error) {
	rows, err := t.tx.QueryContext(t.ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*workflow.CourseInstance
	for rows.Next() {
		ci, err := scanCourseInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ci)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourseInstance(row rowScanner) (*workflow.CourseInstance, error) {
	ci := &workflow.CourseInstance{}
	var termLevel sql.NullInt64
	var createdAt, updatedAt string
	err := row.Scan(&ci.ID, &ci.WorkflowID, &ci.CourseCode, &ci.ParentNodeID, &termLevel, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if termLevel.Valid {
		v := int(termLevel.Int64)
		ci.TermLevel = &v
	}
	if ci.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if ci.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return ci, nil
}

// ----------------------------------------------------------------------------
// Node instances
// ----------------------------------------------------------------------------

func (t *sqliteTx) InsertNodeInstance(ni *workflow.NodeInstance) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO node_instances (id, course_id, node_code, created_at)
		VALUES (?, ?, ?, ?)`,
		ni.ID, ni.CourseID, ni.NodeCode, encodeTime(ni.CreatedAt))
	return err
}

func (t *sqliteTx) NodeInstance(id string) (*workflow.NodeInstance, error) {
	ni, err := t.scanNodeInstance(t.tx.QueryRowContext(t.ctx, `
		SELECT id, course_id, node_code, created_at FROM node_instances WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node instance %s: %w", id, workflow.ErrNotFound)
	}
	return ni, err
}

func (t *sqliteTx) NodeInstanceByCourse(courseID string) (*workflow.NodeInstance, error) {
	ni, err := t.scanNodeInstance(t.tx.QueryRowContext(t.ctx, `
		SELECT id, course_id, node_code, created_at FROM node_instances WHERE course_id = ?`, courseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course instance %s has no node instance: %w", courseID, workflow.ErrNotFound)
	}
	return ni, err
}

func (t *sqliteTx) scanNodeInstance(row *sql.Row) (*workflow.NodeInstance, error) {
	ni := &workflow.NodeInstance{}
	var createdAt string
	err := row.Scan(&ni.ID, &ni.CourseID, &ni.NodeCode, &createdAt)
	if err != nil {
		return nil, err
	}
	if ni.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	return ni, nil
}

func (t *sqliteTx) DeleteNodeInstance(id string) error {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM node_instances WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("node instance %s: %w", id, workflow.ErrNotFound)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Encoding helpers
// ----------------------------------------------------------------------------

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func encodeTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decoding stored timestamp %q: %w", s, err)
	}
	return t, nil
}
