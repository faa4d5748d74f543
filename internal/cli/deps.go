package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/AbdelazizMoustafa10m/traject/internal/config"
	"github.com/AbdelazizMoustafa10m/traject/internal/logging"
	"github.com/AbdelazizMoustafa10m/traject/internal/store"
	"github.com/AbdelazizMoustafa10m/traject/internal/workflow"
)

// runtime bundles the wired dependencies a command operates on: the resolved
// config, the opened store, the callable registry, and the engine and
// installer built over them.
type runtime struct {
	cfg       *config.Config
	store     workflow.Store
	registry  *workflow.Registry
	engine    *workflow.Engine
	installer *workflow.Installer

	closeStore func() error
}

// close releases the runtime's resources.
func (r *runtime) close() {
	if r.closeStore != nil {
		if err := r.closeStore(); err != nil {
			logging.New("cli").Warn("closing store", "error", err)
		}
	}
}

// loadConfig loads traject.toml from --config or by walking up from the
// working directory, falling back to defaults when no file exists. Errors in
// the file are fatal; warnings are logged.
func loadConfig() (*config.Config, error) {
	logger := logging.New("config")

	path := flagConfig
	if path == "" {
		found, err := config.FindConfigFile(".")
		if err != nil {
			return nil, err
		}
		path = found
	}

	var (
		cfg  *config.Config
		meta *toml.MetaData
	)
	if path == "" {
		cfg = config.NewDefaults()
	} else {
		loaded, md, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg, meta = loaded, &md
		logger.Debug("config loaded", "path", path)
	}

	result := config.Validate(cfg, meta)
	for _, warning := range result.Warnings() {
		logger.Warn(warning.Message, "field", warning.Field)
	}
	if result.HasErrors() {
		var b strings.Builder
		fmt.Fprintf(&b, "invalid configuration")
		if path != "" {
			fmt.Fprintf(&b, " (%s)", path)
		}
		for _, issue := range result.Errors() {
			fmt.Fprintf(&b, "\n  %s: %s", issue.Field, issue.Message)
		}
		return nil, fmt.Errorf("%s", b.String())
	}
	return cfg, nil
}

// openRuntime wires a full runtime from the resolved configuration.
func openRuntime() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg}

	switch cfg.Store.Driver {
	case "memory":
		rt.store = store.NewMemory()
	default:
		path := cfg.Store.Path
		if path == "" {
			path = "traject.db"
		}
		db, err := store.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		rt.store = db
		rt.closeStore = db.Close
	}

	rt.registry = workflow.NewRegistry()
	for name, src := range cfg.Conditions {
		if err := rt.registry.RegisterExprCondition(name, src); err != nil {
			rt.close()
			return nil, fmt.Errorf("registering condition %q: %w", name, err)
		}
	}

	oracle := staticOracle(cfg.Permissions)
	resolver := newStaticResolver(cfg.Documents)

	rt.engine = workflow.NewEngine(rt.store, rt.registry, oracle, resolver,
		workflow.WithLogger(logging.New("engine")))
	rt.installer = workflow.NewInstaller(rt.store, rt.registry, logging.New("install"))
	return rt, nil
}

// actingUser resolves the --user flag, defaulting to $USER.
func actingUser() workflow.User {
	if flagUser != "" {
		return workflow.User(flagUser)
	}
	return workflow.User(os.Getenv("USER"))
}

// parseDocRef splits a "type/id" document reference.
func parseDocRef(ref string) (documentType, documentID string, err error) {
	documentType, documentID, ok := strings.Cut(ref, "/")
	if !ok || documentType == "" || documentID == "" {
		return "", "", fmt.Errorf("invalid document reference %q, want type/id", ref)
	}
	return documentType, documentID, nil
}

// ----------------------------------------------------------------------------
// Static config-backed implementations of the engine's dependency interfaces.
// A real deployment embeds the engine and implements these over its own
// records; the CLI works against what traject.toml declares.
// ----------------------------------------------------------------------------

// staticOracle answers permission checks from the [permissions] table
// (user -> held permissions). The document is ignored: the static table has
// no per-document granularity.
type staticOracle map[string][]string

func (o staticOracle) HasPermission(_ context.Context, user workflow.User, permission string, _ workflow.Document) (bool, error) {
	for _, held := range o[string(user)] {
		if held == permission {
			return true, nil
		}
	}
	return false, nil
}

// staticDocument is a document declared by a [[documents]] entry.
type staticDocument struct {
	documentType string
	documentID   string
	attributes   map[string]any
}

func (d *staticDocument) DocumentType() string       { return d.documentType }
func (d *staticDocument) DocumentID() string         { return d.documentID }
func (d *staticDocument) Attributes() map[string]any { return d.attributes }

// staticResolver resolves documents from the [[documents]] entries.
type staticResolver struct {
	docs map[string]*staticDocument
}

func newStaticResolver(entries []config.DocumentConfig) *staticResolver {
	r := &staticResolver{docs: make(map[string]*staticDocument, len(entries))}
	for _, entry := range entries {
		r.docs[entry.Type+"/"+entry.ID] = &staticDocument{
			documentType: entry.Type,
			documentID:   entry.ID,
			attributes:   entry.Attributes,
		}
	}
	return r
}

func (r *staticResolver) ResolveDocument(_ context.Context, documentType, documentID string) (workflow.Document, error) {
	doc, ok := r.docs[documentType+"/"+documentID]
	if !ok {
		return nil, fmt.Errorf("document %s/%s is not declared in traject.toml: %w",
			documentType, documentID, workflow.ErrNotFound)
	}
	return doc, nil
}
