package workflow

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
)

// sum64 hashes data with xxhash. Split out so the spec document code does not
// import the hash package directly.
func sum64(data []byte) uint64 { return xxhash.Sum64(data) }

// Installer materializes declarative spec documents into validated,
// persisted WorkflowSpecs. Installation is transactional: a document that
// fails validation or collides with an installed code leaves no rows behind.
type Installer struct {
	store    Store
	registry *Registry
	logger   *log.Logger
}

// NewInstaller creates an installer. registry may be nil to skip callable
// reference checks (useful for offline validation); logger may be nil for
// silent operation.
func NewInstaller(store Store, registry *Registry, logger *log.Logger) *Installer {
	return &Installer{store: store, registry: registry, logger: logger}
}

// Install builds, validates, and persists one spec document. It returns a
// *ValidationError when the document is structurally invalid and ErrSpecExists
// (wrapped) when the workflow code is already installed; the wrap notes
// whether the installed spec was built from an identical document.
func (ins *Installer) Install(ctx context.Context, sf *SpecFile) (*WorkflowSpec, error) {
	ws := sf.Build()

	if result := ws.Validate(ins.registry); !result.IsValid() {
		return nil, &ValidationError{Workflow: ws.Code, Result: result}
	}

	err := ins.store.Atomically(ctx, func(tx Tx) error {
		if insErr := tx.InsertWorkflowSpec(ws); insErr != nil {
			if existing, loadErr := tx.WorkflowSpec(ws.Code); loadErr == nil {
				if existing.Fingerprint == ws.Fingerprint && ws.Fingerprint != 0 {
					return fmt.Errorf("workflow %q: identical document already installed: %w", ws.Code, insErr)
				}
				return fmt.Errorf("workflow %q: a diverging spec is already installed: %w", ws.Code, insErr)
			}
			return insErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ins.logger != nil {
		ins.logger.Info("workflow spec installed",
			"workflow", ws.Code, "courses", len(ws.Courses), "fingerprint", fmt.Sprintf("%016x", ws.Fingerprint))
	}
	return ws, nil
}

// InstallPath parses the spec document at path and installs it.
func (ins *Installer) InstallPath(ctx context.Context, path string) (*WorkflowSpec, error) {
	sf, err := ParseSpecPath(path)
	if err != nil {
		return nil, err
	}
	return ins.Install(ctx, sf)
}

// Uninstall deletes an installed spec. It fails with ErrSpecInUse while any
// workflow instance still references the spec.
func (ins *Installer) Uninstall(ctx context.Context, code string) error {
	return ins.store.Atomically(ctx, func(tx Tx) error {
		return tx.DeleteWorkflowSpec(code)
	})
}
