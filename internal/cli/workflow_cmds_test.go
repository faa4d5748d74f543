package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// straightSpecYAML is a minimal one-course workflow used by the command tests.
const straightSpecYAML = `
code: straight
name: Straight
document_type: memo
courses:
  - code: ""
    nodes:
      - {type: enter, code: start}
      - {type: input, code: ask}
      - {type: exit, code: done, exit_value: 0}
      - {type: cancel, code: aborted}
    transitions:
      - {origin: start, destination: ask}
      - {origin: ask, destination: done, action_name: finish}
`

// resetCmdFlags resets the persistent flags plus every subcommand's local
// flags back to their defaults, including Cobra's Changed tracking.
func resetCmdFlags(t *testing.T) {
	t.Helper()
	resetRootCmd(t)
	for _, cmd := range rootCmd.Commands() {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
}

// writeWorkspace lays out a traject.toml with a SQLite store and one declared
// memo document, plus the straight spec file. Returns the config and spec
// paths.
func writeWorkspace(t *testing.T) (configPath, specPath string) {
	t.Helper()
	dir := t.TempDir()

	cfg := fmt.Sprintf(`
[store]
driver = "sqlite"
path = %q

[permissions]
alice = ["memos.finish"]

[[documents]]
type = "memo"
id = "7"
attributes = { urgency = "low" }
`, filepath.Join(dir, "traject.db"))

	configPath = filepath.Join(dir, "traject.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))

	specPath = filepath.Join(dir, "straight.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(straightSpecYAML), 0o644))
	return configPath, specPath
}

// runTraject invokes the CLI against the given config, capturing the command
// tree's out and err writers.
func runTraject(t *testing.T, configPath string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	resetCmdFlags(t)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", configPath}, args...))

	code = Execute()
	return code, out.String(), errOut.String()
}

// statusReport mirrors the status command's --json output shape.
type statusReport struct {
	InstanceID   string `json:"instance_id"`
	Workflow     string `json:"workflow"`
	DocumentType string `json:"document_type"`
	DocumentID   string `json:"document_id"`
	Courses      []struct {
		Path      string `json:"path"`
		Code      string `json:"code"`
		Status    string `json:"status"`
		Node      string `json:"node"`
		ExitValue *int   `json:"exit_value"`
		TermLevel *int   `json:"term_level"`
	} `json:"courses"`
}

func TestWorkflowCommands_Lifecycle(t *testing.T) {
	configPath, specPath := writeWorkspace(t)

	// Install the spec.
	code, _, stderr := runTraject(t, configPath, "install", specPath)
	require.Equal(t, 0, code, "install failed: %s", stderr)
	assert.Contains(t, stderr, `installed workflow "straight"`)

	// It shows up in the spec listing.
	code, _, stderr = runTraject(t, configPath, "specs")
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "straight")
	assert.Contains(t, stderr, "memo")

	// Start an instance on the declared document.
	code, _, stderr = runTraject(t, configPath, "start", "straight", "memo/7", "--user", "alice")
	require.Equal(t, 0, code, "start failed: %s", stderr)
	assert.Contains(t, stderr, `started workflow "straight" on memo/7`)

	// A second start on the same document fails.
	code, _, _ = runTraject(t, configPath, "start", "straight", "memo/7", "--user", "alice")
	assert.Equal(t, 1, code, "a document carries at most one workflow instance")

	// Fire the enter transition; the course comes to rest at the input node.
	code, _, stderr = runTraject(t, configPath, "advance", "memo/7", "--user", "alice")
	require.Equal(t, 0, code, "advance failed: %s", stderr)
	assert.Contains(t, stderr, `"ask"`)
	assert.Contains(t, stderr, "waiting")

	// Status reflects the waiting course.
	code, stdout, _ := runTraject(t, configPath, "status", "memo/7", "--json")
	require.Equal(t, 0, code)
	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "straight", report.Workflow)
	assert.Equal(t, "memo", report.DocumentType)
	assert.Equal(t, "7", report.DocumentID)
	require.Len(t, report.Courses, 1)
	assert.Equal(t, "waiting", report.Courses[0].Status)
	assert.Equal(t, "ask", report.Courses[0].Node)

	// Uninstalling while the instance lives fails.
	code, _, _ = runTraject(t, configPath, "uninstall", "straight")
	assert.Equal(t, 1, code, "uninstall must fail while an instance references the spec")

	// Take the finish action; the course ends at the exit node.
	code, _, stderr = runTraject(t, configPath, "advance", "memo/7", "finish", "--user", "alice")
	require.Equal(t, 0, code, "advance finish failed: %s", stderr)
	assert.Contains(t, stderr, "ended")

	code, stdout, _ = runTraject(t, configPath, "status", "memo/7", "--json")
	require.Equal(t, 0, code)
	report = statusReport{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Courses, 1)
	assert.Equal(t, "ended", report.Courses[0].Status)
	assert.Equal(t, "done", report.Courses[0].Node)
	require.NotNil(t, report.Courses[0].ExitValue)
	assert.Equal(t, 0, *report.Courses[0].ExitValue)
}

func TestWorkflowCommands_Cancel(t *testing.T) {
	configPath, specPath := writeWorkspace(t)

	code, _, stderr := runTraject(t, configPath, "install", specPath)
	require.Equal(t, 0, code, "install failed: %s", stderr)
	code, _, stderr = runTraject(t, configPath, "start", "straight", "memo/7", "--user", "alice")
	require.Equal(t, 0, code, "start failed: %s", stderr)
	code, _, stderr = runTraject(t, configPath, "advance", "memo/7", "--user", "alice")
	require.Equal(t, 0, code, "advance failed: %s", stderr)

	code, _, stderr = runTraject(t, configPath, "cancel", "memo/7", "--user", "alice")
	require.Equal(t, 0, code, "cancel failed: %s", stderr)
	assert.Contains(t, stderr, "cancelled")

	code, stdout, _ := runTraject(t, configPath, "status", "memo/7", "--json")
	require.Equal(t, 0, code)
	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Courses, 1)
	assert.Equal(t, "cancelled", report.Courses[0].Status)
	require.NotNil(t, report.Courses[0].TermLevel)
	assert.Equal(t, 0, *report.Courses[0].TermLevel)
}

func TestWorkflowCommands_Uninstall(t *testing.T) {
	configPath, specPath := writeWorkspace(t)

	code, _, stderr := runTraject(t, configPath, "install", specPath)
	require.Equal(t, 0, code, "install failed: %s", stderr)

	code, _, stderr = runTraject(t, configPath, "uninstall", "straight")
	require.Equal(t, 0, code, "uninstall failed: %s", stderr)
	assert.Contains(t, stderr, `uninstalled workflow "straight"`)

	// Gone from the listing; a second uninstall fails.
	code, _, stderr = runTraject(t, configPath, "specs")
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "No workflow specs installed")

	code, _, _ = runTraject(t, configPath, "uninstall", "straight")
	assert.Equal(t, 1, code)
}

func TestInstallCmd_InvalidSpecFails(t *testing.T) {
	configPath, _ := writeWorkspace(t)

	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	// No exit node: the root course cannot terminate.
	require.NoError(t, os.WriteFile(broken, []byte(`
code: broken
document_type: memo
courses:
  - code: ""
    nodes:
      - {type: enter, code: start}
      - {type: input, code: ask}
    transitions:
      - {origin: start, destination: ask}
`), 0o644))

	code, _, stderr := runTraject(t, configPath, "install", broken)
	assert.Equal(t, 1, code, "invalid spec must fail to install")
	assert.Contains(t, stderr, "broken.yaml")

	// Nothing was left behind.
	code, _, stderr = runTraject(t, configPath, "specs")
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "No workflow specs installed")
}

func TestStartCmd_UndeclaredDocument(t *testing.T) {
	configPath, specPath := writeWorkspace(t)

	code, _, stderr := runTraject(t, configPath, "install", specPath)
	require.Equal(t, 0, code, "install failed: %s", stderr)

	code, _, _ = runTraject(t, configPath, "start", "straight", "memo/99", "--user", "alice")
	assert.Equal(t, 1, code, "undeclared documents cannot carry workflows")
}

func TestStartCmd_BadDocRef(t *testing.T) {
	configPath, _ := writeWorkspace(t)

	code, _, _ := runTraject(t, configPath, "start", "straight", "not-a-ref")
	assert.Equal(t, 1, code, "document references must be type/id")
}

func TestValidateCmd_ValidSpec(t *testing.T) {
	configPath, specPath := writeWorkspace(t)

	code, _, stderr := runTraject(t, configPath, "validate", specPath)
	assert.Equal(t, 0, code, "validate failed: %s", stderr)
	assert.Contains(t, stderr, `workflow "straight" is valid`)
}

func TestValidateCmd_InvalidSpecJSON(t *testing.T) {
	configPath, _ := writeWorkspace(t)

	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte(`
code: broken
document_type: memo
courses:
  - code: ""
    nodes:
      - {type: input, code: ask}
      - {type: exit, code: done, exit_value: 0}
    transitions:
      - {origin: ask, destination: done, action_name: finish}
`), 0o644))

	code, stdout, _ := runTraject(t, configPath, "validate", broken, "--json")
	assert.Equal(t, 1, code, "invalid spec must exit nonzero")

	var outputs []struct {
		Path     string `json:"path"`
		Workflow string `json:"workflow"`
		Valid    bool   `json:"valid"`
		Issues   []struct {
			Code string `json:"code"`
		} `json:"issues"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &outputs))
	require.Len(t, outputs, 1)
	assert.Equal(t, "broken", outputs[0].Workflow)
	assert.False(t, outputs[0].Valid)
	assert.NotEmpty(t, outputs[0].Issues)
}

func TestValidateCmd_UnparseableFile(t *testing.T) {
	configPath, _ := writeWorkspace(t)

	dir := t.TempDir()
	garbled := filepath.Join(dir, "garbled.yaml")
	require.NoError(t, os.WriteFile(garbled, []byte("{:"), 0o644))

	code, _, _ := runTraject(t, configPath, "validate", garbled)
	assert.Equal(t, 1, code)
}

func TestWorkflowCommands_Registered(t *testing.T) {
	want := []string{"install", "uninstall", "specs", "validate", "start", "advance", "cancel", "join", "status"}
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range want {
		assert.True(t, names[name], "command %q must be registered in rootCmd", name)
	}
}
