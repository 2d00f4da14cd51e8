package scripting

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/tracelab/tracelab/internal/backend"
	"github.com/tracelab/tracelab/internal/config"
	"github.com/tracelab/tracelab/internal/domain"
)

// EntryPoint is the function every script must define:
//
//	func Run(api *tracelab.API) error
const EntryPoint = "main.Run"

// Symbols exports the TraceLab API to interpreted scripts under the
// "tracelab" import path.
var Symbols = map[string]map[string]reflect.Value{
	"tracelab/tracelab": {
		"API":              reflect.ValueOf((*API)(nil)),
		"Trace":            reflect.ValueOf((*domain.Trace)(nil)),
		"AnalysisModule":   reflect.ValueOf((*domain.AnalysisModule)(nil)),
		"ScriptedAnalysis": reflect.ValueOf((*domain.ScriptedAnalysis)(nil)),
		"TraceEvent":       reflect.ValueOf((*domain.TraceEvent)(nil)),
		"Segment":          reflect.ValueOf((*domain.Segment)(nil)),
		"Handle":           reflect.ValueOf((*backend.Handle)(nil)),
		"StateSystem":      reflect.ValueOf((*backend.StateSystem)(nil)),
		"SegmentStore":     reflect.ValueOf((*backend.SegmentStore)(nil)),
	},
}

// allowedImports is the stdlib allowlist for interpreted scripts.
// Filesystem, network, and process packages stay out unless file access
// is explicitly enabled in configuration.
var allowedImports = map[string]bool{
	"tracelab":       true,
	"fmt":            true,
	"strings":        true,
	"strconv":        true,
	"math":           true,
	"sort":           true,
	"regexp":         true,
	"time":           true,
	"bytes":          true,
	"errors":         true,
	"encoding/json":  true,
	"encoding/csv":   true,
	"path":           true,
	"unicode":        true,
	"unicode/utf8":   true,
	"container/heap": true,
}

var fileImports = map[string]bool{
	"os":            true,
	"io":            true,
	"bufio":         true,
	"path/filepath": true,
}

// Engine executes user scripts in an embedded Go interpreter. Each
// execution gets a fresh interpreter, so scripts cannot observe each
// other's state.
type Engine struct {
	cfg config.ScriptConfig
}

// NewEngine creates a script engine.
func NewEngine(cfg config.ScriptConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Execute runs a script's Run entry point against the given API. The
// context bounds execution time; a script overrunning its deadline
// reports the context error.
func (e *Engine) Execute(ctx context.Context, source string, api *API) error {
	if err := e.validateImports(source); err != nil {
		return fmt.Errorf("invalid imports: %w", err)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("failed to load stdlib: %w", err)
	}
	if err := i.Use(Symbols); err != nil {
		return fmt.Errorf("failed to load tracelab symbols: %w", err)
	}

	if _, err := i.Eval(wrapSource(source)); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}

	entry, err := i.Eval(EntryPoint)
	if err != nil {
		return fmt.Errorf("script has no Run function: %w", err)
	}
	run, ok := entry.Interface().(func(*API) error)
	if !ok {
		return fmt.Errorf("Run has wrong signature, want func(*tracelab.API) error")
	}

	done := make(chan error, 1)
	go func() {
		done <- run(api)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("script execution cancelled: %w", ctx.Err())
	}
}

// validateImports checks the script against the import allowlist.
func (e *Engine) validateImports(source string) error {
	for _, imp := range parseImports(source) {
		if allowedImports[imp] {
			continue
		}
		if e.cfg.AllowFileAccess && fileImports[imp] {
			continue
		}
		return fmt.Errorf("import %q is not allowed", imp)
	}
	return nil
}

// parseImports extracts import paths from single and block import forms.
func parseImports(source string) []string {
	var imports []string
	inBlock := false
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
		case inBlock:
			if path := unquoteImport(trimmed); path != "" {
				imports = append(imports, path)
			}
		case strings.HasPrefix(trimmed, "import "):
			if path := unquoteImport(strings.TrimPrefix(trimmed, "import ")); path != "" {
				imports = append(imports, path)
			}
		}
	}
	return imports
}

func unquoteImport(s string) string {
	s = strings.TrimSpace(s)
	// Strip an import alias if present.
	if i := strings.IndexByte(s, '"'); i > 0 {
		s = s[i:]
	}
	s = strings.Trim(s, `"`)
	if s == "" || strings.HasPrefix(s, "//") {
		return ""
	}
	return s
}

// wrapSource prefixes a package clause when the script omits one.
func wrapSource(source string) string {
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if strings.HasPrefix(trimmed, "package ") {
			return source
		}
		break
	}
	return "package main\n\n" + source
}
