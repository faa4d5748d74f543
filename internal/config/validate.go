package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/expr-lang/expr"
)

// ValidationSeverity indicates whether a validation issue is an error or warning.
type ValidationSeverity string

const (
	// SeverityError indicates a fatal validation issue; the configuration is unusable.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning indicates an informational validation issue; the configuration works
	// but may have problems.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity
	Field    string // dotted path, e.g., "store.driver"
	Message  string
}

// ValidationResult holds all validation findings.
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasErrors returns true if any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any issue has warning severity.
func (vr *ValidationResult) HasWarnings() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	var errs []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (vr *ValidationResult) Warnings() []ValidationIssue {
	var warns []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			warns = append(warns, issue)
		}
	}
	return warns
}

// validDrivers is the set of valid values for store.driver.
var validDrivers = map[string]bool{
	"":       true,
	"sqlite": true,
	"memory": true,
}

// Validate checks the configuration for correctness and completeness.
// It performs structural validation, semantic validation, and unknown key detection.
//
// Parameters:
//   - cfg: the configuration to validate
//   - meta: TOML metadata from BurntSushi/toml (may be nil if no file was loaded)
//
// Returns validation results. Check HasErrors() to determine if the config is usable.
func Validate(cfg *Config, meta *toml.MetaData) *ValidationResult {
	vr := &ValidationResult{}

	if cfg == nil {
		addError(vr, "", "configuration is nil")
		return vr
	}

	validateStore(vr, &cfg.Store)
	validatePermissions(vr, cfg.Permissions)
	validateConditions(vr, cfg.Conditions)
	validateDocuments(vr, cfg.Documents)
	validateUnknownKeys(vr, meta)

	return vr
}

// validateStore checks the [store] section.
func validateStore(vr *ValidationResult, s *StoreConfig) {
	// Error: store.driver must be recognized.
	if !validDrivers[s.Driver] {
		addError(vr, "store.driver",
			fmt.Sprintf("unrecognized driver %q; must be one of: sqlite, memory, or empty", s.Driver))
	}

	// Error: the sqlite driver needs a database path.
	if s.Driver == "sqlite" && s.Path == "" {
		addError(vr, "store.path", "must not be empty when store.driver is \"sqlite\"")
	}

	// Warning: a path configured for the memory driver is ignored.
	if s.Driver == "memory" && s.Path != "" {
		addWarning(vr, "store.path", "ignored by the memory driver")
	}
}

// validatePermissions checks the [permissions] table (user -> held permissions).
func validatePermissions(vr *ValidationResult, permissions map[string][]string) {
	for user, perms := range permissions {
		prefix := "permissions." + user

		if user == "" {
			addError(vr, "permissions", "user name must not be empty")
		}
		for i, perm := range perms {
			if perm == "" {
				addError(vr, fmt.Sprintf("%s[%d]", prefix, i), "must not be an empty string")
			}
		}
	}
}

// validateConditions checks the [conditions] table (name -> expression source).
// Every expression must compile.
func validateConditions(vr *ValidationResult, conditions map[string]string) {
	for name, src := range conditions {
		prefix := "conditions." + name

		if src == "" {
			addError(vr, prefix, "must not be empty")
			continue
		}
		if _, err := expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables()); err != nil {
			addError(vr, prefix, fmt.Sprintf("invalid expression %q: %v", src, err))
		}
	}
}

// validateDocuments checks all [[documents]] entries.
func validateDocuments(vr *ValidationResult, documents []DocumentConfig) {
	seen := make(map[string]bool, len(documents))
	for i, doc := range documents {
		prefix := fmt.Sprintf("documents[%d]", i)

		if doc.Type == "" {
			addError(vr, prefix+".type", "must not be empty")
		}
		if doc.ID == "" {
			addError(vr, prefix+".id", "must not be empty")
		}

		key := doc.Type + "/" + doc.ID
		if seen[key] {
			addError(vr, prefix, fmt.Sprintf("duplicate document %s", key))
		}
		seen[key] = true
	}
}

// validateUnknownKeys checks for TOML keys that did not map to any config struct field.
func validateUnknownKeys(vr *ValidationResult, meta *toml.MetaData) {
	if meta == nil {
		return
	}

	for _, key := range meta.Undecoded() {
		path := strings.Join(key, ".")
		addWarning(vr, path, "unknown configuration key")
	}
}

// addError appends an error-severity issue to the validation result.
func addError(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityError,
		Field:    field,
		Message:  message,
	})
}

// addWarning appends a warning-severity issue to the validation result.
func addWarning(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityWarning,
		Field:    field,
		Message:  message,
	})
}
