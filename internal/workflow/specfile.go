package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// SpecFile is the declarative on-disk form of a workflow spec: one workflow
// per document, with nested courses, nodes, and transitions, and branch
// references by course code. Supported encodings are YAML and TOML.
type SpecFile struct {
	Code             string       `yaml:"code" toml:"code" json:"code"`
	Name             string       `yaml:"name" toml:"name" json:"name"`
	Description      string       `yaml:"description" toml:"description" json:"description"`
	DocumentType     string       `yaml:"document_type" toml:"document_type" json:"document_type"`
	CreatePermission string       `yaml:"create_permission" toml:"create_permission" json:"create_permission"`
	CancelPermission string       `yaml:"cancel_permission" toml:"cancel_permission" json:"cancel_permission"`
	Courses          []CourseFile `yaml:"courses" toml:"courses" json:"courses"`
}

// CourseFile is one course entry of a SpecFile. Depth is not declared; it is
// derived from the split nodes that reference the course.
type CourseFile struct {
	Code             string           `yaml:"code" toml:"code" json:"code"`
	Name             string           `yaml:"name" toml:"name" json:"name"`
	CancelPermission string           `yaml:"cancel_permission" toml:"cancel_permission" json:"cancel_permission"`
	Nodes            []NodeFile       `yaml:"nodes" toml:"nodes" json:"nodes"`
	Transitions      []TransitionFile `yaml:"transitions" toml:"transitions" json:"transitions"`
}

// NodeFile is one node entry of a CourseFile.
type NodeFile struct {
	Type              string   `yaml:"type" toml:"type" json:"type"`
	Code              string   `yaml:"code" toml:"code" json:"code"`
	Name              string   `yaml:"name" toml:"name" json:"name"`
	LandingHandler    string   `yaml:"landing_handler" toml:"landing_handler" json:"landing_handler"`
	ExitValue         *int     `yaml:"exit_value" toml:"exit_value" json:"exit_value"`
	Joiner            string   `yaml:"joiner" toml:"joiner" json:"joiner"`
	ExecutePermission string   `yaml:"execute_permission" toml:"execute_permission" json:"execute_permission"`
	Branches          []string `yaml:"branches" toml:"branches" json:"branches"`
}

// TransitionFile is one transition entry of a CourseFile. Origin and
// Destination are node codes within the same course.
type TransitionFile struct {
	Origin      string `yaml:"origin" toml:"origin" json:"origin"`
	Destination string `yaml:"destination" toml:"destination" json:"destination"`
	Name        string `yaml:"name" toml:"name" json:"name"`
	ActionName  string `yaml:"action_name" toml:"action_name" json:"action_name"`
	Permission  string `yaml:"permission" toml:"permission" json:"permission"`
	Condition   string `yaml:"condition" toml:"condition" json:"condition"`
	Priority    *int   `yaml:"priority" toml:"priority" json:"priority"`
}

// ParseSpecPath reads and decodes the spec document at path, choosing the
// decoder by file extension (.yaml, .yml, .toml).
func ParseSpecPath(path string) (*SpecFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec document: %w", err)
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		return ParseSpecBytes(data, "yaml")
	case ".toml":
		return ParseSpecBytes(data, "toml")
	default:
		return nil, fmt.Errorf("spec document %s: unsupported extension %q", path, ext)
	}
}

// ParseSpecBytes decodes a spec document from data. format is "yaml" or
// "toml".
func ParseSpecBytes(data []byte, format string) (*SpecFile, error) {
	var sf SpecFile
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("decoding yaml spec document: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("decoding toml spec document: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported spec document format %q", format)
	}
	return &sf, nil
}

// Build materializes the declarative document into a WorkflowSpec tree.
// Course depths are derived by walking split branch references from the root
// course; a course no split references keeps depth -1 so that validation
// reports it as orphaned rather than as a second root. Build performs no
// validation beyond depth derivation — callers validate the result.
func (sf *SpecFile) Build() *WorkflowSpec {
	ws := &WorkflowSpec{
		Code:             sf.Code,
		Name:             sf.Name,
		Description:      sf.Description,
		DocumentType:     sf.DocumentType,
		CreatePermission: sf.CreatePermission,
		CancelPermission: sf.CancelPermission,
		Fingerprint:      sf.Fingerprint(),
	}

	for _, cf := range sf.Courses {
		cs := &CourseSpec{
			Code:             cf.Code,
			Name:             cf.Name,
			Depth:            -1,
			CancelPermission: cf.CancelPermission,
		}
		if cf.Code == "" {
			cs.Depth = 0
		}
		for _, nf := range cf.Nodes {
			cs.Nodes = append(cs.Nodes, &NodeSpec{
				Type:              NodeType(strings.ToUpper(nf.Type)),
				Code:              nf.Code,
				Name:              nf.Name,
				LandingHandler:    nf.LandingHandler,
				ExitValue:         nf.ExitValue,
				Joiner:            nf.Joiner,
				ExecutePermission: nf.ExecutePermission,
				Branches:          nf.Branches,
			})
		}
		for _, tf := range cf.Transitions {
			cs.Transitions = append(cs.Transitions, &TransitionSpec{
				Origin:      tf.Origin,
				Destination: tf.Destination,
				Name:        tf.Name,
				ActionName:  tf.ActionName,
				Permission:  tf.Permission,
				Condition:   tf.Condition,
				Priority:    tf.Priority,
			})
		}
		ws.Courses = append(ws.Courses, cs)
	}

	deriveDepths(ws)
	return ws
}

// deriveDepths assigns branch course depths breadth-first from the root.
// The first reference to a course wins; validation flags any split whose
// branch ended up at a conflicting depth.
func deriveDepths(ws *WorkflowSpec) {
	root := ws.Root()
	if root == nil {
		return
	}
	queue := []*CourseSpec{root}
	visited := map[string]bool{root.Code: true}
	for len(queue) > 0 {
		cs := queue[0]
		queue = queue[1:]
		for _, n := range cs.Nodes {
			if n.Type != NodeSplit {
				continue
			}
			for _, code := range n.Branches {
				branch := ws.Course(code)
				if branch == nil || code == "" || visited[code] {
					continue
				}
				visited[code] = true
				branch.Depth = cs.Depth + 1
				queue = append(queue, branch)
			}
		}
	}
}

// Fingerprint returns the xxhash of the canonical (JSON) encoding of the
// document. Two documents with identical content hash identically regardless
// of their on-disk encoding or formatting.
func (sf *SpecFile) Fingerprint() uint64 {
	data, err := json.Marshal(sf)
	if err != nil {
		// A SpecFile is plain data; its JSON encoding cannot fail.
		panic(fmt.Sprintf("workflow: encoding spec document: %v", err))
	}
	return sum64(data)
}
