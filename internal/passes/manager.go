// Package passes holds the shader-level transformations run between parsing
// and encoding, and the manager that sequences them.
package passes

import (
	"fmt"

	"nakgo/internal/ir"
)

// Pass is one step of the compilation pipeline.
type Pass interface {
	Name() string
	Run(shader *ir.Shader) error
}

// Manager runs passes in the order they were added.
type Manager struct {
	passes []Pass

	// AfterPass, when set, is called with the shader after every pass that
	// succeeded.
	AfterPass func(name string, shader *ir.Shader)
}

// NewManager returns an empty pipeline.
func NewManager() *Manager {
	return &Manager{}
}

// Add appends p to the pipeline.
func (m *Manager) Add(p Pass) {
	m.passes = append(m.passes, p)
}

// Names lists the passes in run order.
func (m *Manager) Names() []string {
	names := make([]string, len(m.passes))
	for i, p := range m.passes {
		names[i] = p.Name()
	}
	return names
}

// Run executes every pass, stopping at the first failure.
func (m *Manager) Run(shader *ir.Shader) error {
	if shader == nil {
		return fmt.Errorf("pass manager requires a non-nil shader")
	}
	for _, p := range m.passes {
		if err := p.Run(shader); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
		if m.AfterPass != nil {
			m.AfterPass(p.Name(), shader)
		}
	}
	return nil
}

// RunUntil executes passes up to and including the one named stop.
func (m *Manager) RunUntil(shader *ir.Shader, stop string) error {
	for i, p := range m.passes {
		if p.Name() != stop {
			continue
		}
		sub := &Manager{passes: m.passes[:i+1], AfterPass: m.AfterPass}
		return sub.Run(shader)
	}
	return fmt.Errorf("no pass named %q", stop)
}

// Func adapts a plain function into a Pass.
type Func struct {
	PassName string
	Fn       func(shader *ir.Shader) error
}

func (f Func) Name() string { return f.PassName }

func (f Func) Run(shader *ir.Shader) error { return f.Fn(shader) }
