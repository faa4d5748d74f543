package internal_test

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// projectRoot returns the absolute path to the project root directory.
// It walks up from the current file's directory until it finds go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()

	// Start from the working directory (tests run from the package directory).
	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (no go.mod found in any parent directory)")
		}
		dir = parent
	}
}

// readFileContent reads a file and returns its content as a string.
func readFileContent(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)
	return string(data)
}

func TestInternalSubpackages_Exist(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)

	expectedPackages := []struct {
		name    string
		file    string
		pkgDecl string
	}{
		{name: "cli", file: "root.go", pkgDecl: "package cli"},
		{name: "config", file: "config.go", pkgDecl: "package config"},
		{name: "workflow", file: "spec.go", pkgDecl: "package workflow"},
		{name: "store", file: "memory.go", pkgDecl: "package store"},
		{name: "logging", file: "logging.go", pkgDecl: "package logging"},
		{name: "buildinfo", file: "buildinfo.go", pkgDecl: "package buildinfo"},
	}

	for _, pkg := range expectedPackages {
		t.Run(pkg.name, func(t *testing.T) {
			t.Parallel()

			pkgDir := filepath.Join(root, "internal", pkg.name)

			// Verify directory exists.
			info, err := os.Stat(pkgDir)
			require.NoError(t, err, "internal/%s directory does not exist", pkg.name)
			assert.True(t, info.IsDir(), "internal/%s is not a directory", pkg.name)

			// Verify the package's primary file has a valid package declaration.
			content := readFileContent(t, filepath.Join(pkgDir, pkg.file))
			assert.Contains(t, content, pkg.pkgDecl,
				"%s in internal/%s must contain %q", pkg.file, pkg.name, pkg.pkgDecl)
		})
	}
}

func TestInternalSubpackages_Count(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	internalDir := filepath.Join(root, "internal")

	entries, err := os.ReadDir(internalDir)
	require.NoError(t, err, "failed to read internal/ directory")

	// Count only directories (exclude files like project_test.go).
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}

	assert.Len(t, dirs, 6,
		"expected exactly 6 internal subpackages, got: %v", dirs)
}

func TestGoMod_Exists(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	goModPath := filepath.Join(root, "go.mod")

	_, err := os.Stat(goModPath)
	require.NoError(t, err, "go.mod does not exist at project root")
}

func TestGoMod_ModulePath(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, "go.mod"))

	assert.Contains(t, content, "module github.com/AbdelazizMoustafa10m/traject",
		"go.mod must declare module path as github.com/AbdelazizMoustafa10m/traject")
}

func TestGoMod_GoDirective(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, "go.mod"))

	// The go directive should specify 1.24 or higher.
	// It may be "go 1.24", "go 1.24.0", "go 1.24.2", etc.
	assert.Contains(t, content, "go 1.24",
		"go.mod must have a Go 1.24+ directive")
}

func TestGoMod_DirectDependencies(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, "go.mod"))

	expectedDeps := []struct {
		name       string
		modulePath string
	}{
		{name: "cobra", modulePath: "github.com/spf13/cobra"},
		{name: "lipgloss", modulePath: "github.com/charmbracelet/lipgloss"},
		{name: "log", modulePath: "github.com/charmbracelet/log"},
		{name: "toml", modulePath: "github.com/BurntSushi/toml"},
		{name: "expr", modulePath: "github.com/expr-lang/expr"},
		{name: "uuid", modulePath: "github.com/google/uuid"},
		{name: "sqlite", modulePath: "modernc.org/sqlite"},
		{name: "yaml", modulePath: "gopkg.in/yaml.v3"},
		{name: "sync", modulePath: "golang.org/x/sync"},
		{name: "doublestar", modulePath: "github.com/bmatcuk/doublestar"},
		{name: "testify", modulePath: "github.com/stretchr/testify"},
		{name: "xxhash", modulePath: "github.com/cespare/xxhash"},
	}

	for _, dep := range expectedDeps {
		t.Run(dep.name, func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, content, dep.modulePath,
				"go.mod must declare direct dependency on %s (%s)", dep.name, dep.modulePath)
		})
	}
}

func TestGoMod_NoReplaceDirectives(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, "go.mod"))

	assert.NotContains(t, content, "replace ",
		"go.mod must not contain replace directives")
}

func TestGitignore_Exists(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	gitignorePath := filepath.Join(root, ".gitignore")

	_, err := os.Stat(gitignorePath)
	require.NoError(t, err, ".gitignore does not exist at project root")
}

func TestGitignore_RequiredEntries(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, ".gitignore"))

	requiredEntries := []struct {
		name    string
		pattern string
	}{
		{name: "compiled binaries (exe)", pattern: "*.exe"},
		{name: "workflow database", pattern: "traject.db"},
		{name: "dist directory", pattern: "dist/"},
		{name: "vendor directory", pattern: "vendor/"},
		{name: "IDE files (idea)", pattern: ".idea/"},
		{name: "IDE files (vscode)", pattern: ".vscode/"},
	}

	for _, entry := range requiredEntries {
		t.Run(entry.name, func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, content, entry.pattern,
				".gitignore must include pattern %q for %s", entry.pattern, entry.name)
		})
	}
}

func TestSourceFiles_NoInitFunctions(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)

	// Project convention: no init() functions except for cobra command
	// registration in internal/cli.
	goFiles := []string{
		filepath.Join(root, "cmd", "traject", "main.go"),
		filepath.Join(root, "internal", "workflow", "engine.go"),
		filepath.Join(root, "internal", "store", "memory.go"),
		filepath.Join(root, "internal", "store", "sqlite.go"),
		filepath.Join(root, "internal", "config", "load.go"),
		filepath.Join(root, "internal", "logging", "logging.go"),
	}

	for _, file := range goFiles {
		t.Run(filepath.Base(filepath.Dir(file))+"/"+filepath.Base(file), func(t *testing.T) {
			t.Parallel()

			content := readFileContent(t, file)
			assert.NotContains(t, content, "func init()",
				"file %s must not contain init() functions per project conventions", file)
		})
	}
}

func TestMainGo_Exists(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	mainPath := filepath.Join(root, "cmd", "traject", "main.go")

	_, err := os.Stat(mainPath)
	require.NoError(t, err, "cmd/traject/main.go does not exist")
}

func TestMainGo_PackageMain(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, "cmd", "traject", "main.go"))

	assert.Contains(t, content, "package main",
		"cmd/traject/main.go must declare package main")
}

func TestMainGo_HasMainFunction(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, "cmd", "traject", "main.go"))

	assert.Contains(t, content, "func main()",
		"cmd/traject/main.go must define a main function")
}

func TestProjectStructure_CmdTrajectDir(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	cmdDir := filepath.Join(root, "cmd", "traject")

	info, err := os.Stat(cmdDir)
	require.NoError(t, err, "cmd/traject/ directory does not exist")
	assert.True(t, info.IsDir(), "cmd/traject/ is not a directory")
}

func TestProjectStructure_InternalDir(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	internalDir := filepath.Join(root, "internal")

	info, err := os.Stat(internalDir)
	require.NoError(t, err, "internal/ directory does not exist")
	assert.True(t, info.IsDir(), "internal/ is not a directory")
}

func TestGoMod_DependencyVersions(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, "go.mod"))

	versionChecks := []struct {
		name       string
		dep        string
		minVersion string
	}{
		{name: "toml v1.5.0", dep: "github.com/BurntSushi/toml", minVersion: "v1.5.0"},
		{name: "cobra v1.10+", dep: "github.com/spf13/cobra", minVersion: "v1.10"},
		{name: "doublestar v4.10+", dep: "github.com/bmatcuk/doublestar/v4", minVersion: "v4.10"},
		{name: "sync v0.19+", dep: "golang.org/x/sync", minVersion: "v0.19"},
	}

	for _, vc := range versionChecks {
		t.Run(vc.name, func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, content, vc.dep,
				"go.mod must contain dependency %s", vc.dep)
			// Extract the version line for this dependency.
			scanner := bufio.NewScanner(strings.NewReader(content))
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if strings.Contains(line, vc.dep) && !strings.HasPrefix(line, "//") {
					assert.Contains(t, line, vc.minVersion,
						"dependency %s must be at least version %s", vc.dep, vc.minVersion)
					break
				}
			}
		})
	}
}
