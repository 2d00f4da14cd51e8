package scripting

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelab/tracelab/internal/config"
	"github.com/tracelab/tracelab/internal/domain"
)

// sliceEvents streams a fixed event slice.
type sliceEvents struct {
	events []domain.TraceEvent
}

func (s *sliceEvents) StreamEvents(ctx context.Context, filter *domain.EventFilter, fn func(domain.TraceEvent) error) error {
	for _, ev := range s.events {
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

func testScriptConfig() config.ScriptConfig {
	return config.ScriptConfig{
		TimeoutSeconds: 30,
		MaxSourceBytes: 1 << 20,
	}
}

func TestEngineExecute(t *testing.T) {
	trace := &domain.Trace{ID: uuid.New(), Name: "kernel", EndTime: 400}

	newAPI := func(module *Module, events EventSource) *API {
		return NewAPI(context.Background(), trace, module, events)
	}

	t.Run("runs a script that builds a state system", func(t *testing.T) {
		module, opener := newTestModule()
		events := &sliceEvents{events: []domain.TraceEvent{
			{Timestamp: 100, Name: "sched_switch", Fields: map[string]string{"next": "42"}},
			{Timestamp: 200, Name: "sched_switch", Fields: map[string]string{"next": "7"}},
		}}

		source := `
import "tracelab"

func Run(api *tracelab.API) error {
	sa, err := api.CreateScriptedAnalysis(api.ActiveTrace(), "sched")
	if err != nil {
		return err
	}
	handle, err := api.StateSystem(sa)
	if err != nil {
		return err
	}
	ss := handle.StateSystem
	quark := ss.Quark("CPUs", "0")
	err = api.Events(func(ev tracelab.TraceEvent) error {
		return ss.ModifyAttribute(ev.Timestamp, ev.Fields["next"], quark)
	})
	if err != nil {
		return err
	}
	if err := ss.CloseHistory(api.ActiveTrace().EndTime); err != nil {
		return err
	}
	return api.Save(handle)
}
`
		engine := NewEngine(testScriptConfig())
		require.NoError(t, engine.Execute(context.Background(), source, newAPI(module, events)))

		require.Len(t, opener.saved, 1)
		ss := opener.saved[0].StateSystem
		require.NotNil(t, ss)
		assert.True(t, ss.Closed())

		intervals := ss.QueryRange(0, 0, 400)
		require.Len(t, intervals, 2)
		assert.Equal(t, "42", intervals[0].Value)
		assert.Equal(t, "7", intervals[1].Value)
	})

	t.Run("script errors propagate", func(t *testing.T) {
		module, _ := newTestModule()
		source := `
import "errors"

import "tracelab"

func Run(api *tracelab.API) error {
	return errors.New("boom")
}
`
		engine := NewEngine(testScriptConfig())
		err := engine.Execute(context.Background(), source, newAPI(module, &sliceEvents{}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("rejects disallowed imports", func(t *testing.T) {
		module, _ := newTestModule()
		source := `
import "os/exec"

func Run(api *tracelab.API) error { return nil }
`
		engine := NewEngine(testScriptConfig())
		err := engine.Execute(context.Background(), source, newAPI(module, &sliceEvents{}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not allowed")
	})

	t.Run("allows file imports only when configured", func(t *testing.T) {
		cfg := testScriptConfig()
		cfg.AllowFileAccess = true
		engine := NewEngine(cfg)
		assert.NoError(t, engine.validateImports(`import "os"`))

		engine = NewEngine(testScriptConfig())
		assert.Error(t, engine.validateImports(`import "os"`))
	})

	t.Run("missing Run function is an error", func(t *testing.T) {
		module, _ := newTestModule()
		engine := NewEngine(testScriptConfig())
		err := engine.Execute(context.Background(), `func NotRun() {}`, newAPI(module, &sliceEvents{}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Run")
	})

	t.Run("cancelled context stops waiting on the script", func(t *testing.T) {
		module, _ := newTestModule()
		source := `
import "time"

import "tracelab"

func Run(api *tracelab.API) error {
	time.Sleep(10 * time.Second)
	return nil
}
`
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		engine := NewEngine(testScriptConfig())
		err := engine.Execute(ctx, source, newAPI(module, &sliceEvents{}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cancelled")
	})
}

func TestParseImports(t *testing.T) {
	t.Run("parses single and block imports", func(t *testing.T) {
		source := `
package main

import "fmt"

import (
	"strings"
	tl "tracelab"
)
`
		imports := parseImports(source)
		assert.Equal(t, []string{"fmt", "strings", "tracelab"}, imports)
	})
}

func TestWrapSource(t *testing.T) {
	t.Run("adds a package clause when missing", func(t *testing.T) {
		wrapped := wrapSource("func Run(api *tracelab.API) error { return nil }")
		assert.Contains(t, wrapped, "package main")
	})

	t.Run("keeps an existing package clause", func(t *testing.T) {
		source := "package main\n\nfunc Run() {}"
		assert.Equal(t, source, wrapSource(source))
	})
}
