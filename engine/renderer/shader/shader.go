// Package shader inspects WGSL modules: entry points, resource bindings and the vertex
// input locations a vertex stage consumes. Custom material shaders are checked with it
// before a pipeline is compiled for them.
package shader

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrNoEntryPoint    = errors.New("shader: entry point not found")
	ErrUnboundLocation = errors.New("shader: vertex input location has no buffer attribute")
	ErrUnboundResource = errors.New("shader: resource binding not in the pipeline layout")
)

// Stage selects a shader stage.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	if s == StageFragment {
		return "fragment"
	}
	return "vertex"
}

// Binding is one @group/@binding resource declaration.
type Binding struct {
	Group        uint32
	Binding      uint32
	Name         string
	AddressSpace string // "uniform", "storage, read" ... empty for handle types
	Type         string
}

// Module is what Inspect found in a WGSL source.
type Module struct {
	VertexEntry   string
	FragmentEntry string
	Bindings      []Binding

	// VertexInputs lists the @location indices of structs that are pure vertex inputs,
	// sorted and without duplicates.
	VertexInputs []uint32
}

// Inspect parses source. Comments are ignored.
//
// Parameters:
//   - source: the WGSL module source
//
// Returns:
//   - Module: the entry points, bindings and vertex inputs found
func Inspect(source string) Module {
	cleaned := stripComments(source)
	return Module{
		VertexEntry:   parseEntryPoint(cleaned, StageVertex),
		FragmentEntry: parseEntryPoint(cleaned, StageFragment),
		Bindings:      parseBindings(cleaned),
		VertexInputs:  parseVertexInputs(cleaned),
	}
}

// Entry returns the entry point of stage.
//
// Returns:
//   - string: the function name
//   - error: ErrNoEntryPoint if the module has no such stage
func (m Module) Entry(stage Stage) (string, error) {
	var name string
	switch stage {
	case StageVertex:
		name = m.VertexEntry
	case StageFragment:
		name = m.FragmentEntry
	}
	if name == "" {
		return "", fmt.Errorf("%s stage: %w", stage, ErrNoEntryPoint)
	}
	return name, nil
}

// CheckBindings reports the first resource the pipeline layout cannot back. The layout
// provides uniform buffers at bindings 0 to uniforms-1 of group and nothing else.
//
// Parameters:
//   - group: the bind group the layout provides
//   - uniforms: the number of uniform buffers in that group
//
// Returns:
//   - error: ErrUnboundResource naming the declaration, or nil
func (m Module) CheckBindings(group uint32, uniforms int) error {
	for _, b := range m.Bindings {
		if b.Group != group || b.AddressSpace != "uniform" || int(b.Binding) >= uniforms {
			return fmt.Errorf("@group(%d) @binding(%d) %s: %w", b.Group, b.Binding, b.Name, ErrUnboundResource)
		}
	}
	return nil
}

// CheckVertexInputs reports the first vertex input location not in provided.
//
// Parameters:
//   - provided: the shader locations the bound vertex buffers supply
//
// Returns:
//   - error: ErrUnboundLocation naming the location, or nil
func (m Module) CheckVertexInputs(provided []uint32) error {
	for _, loc := range m.VertexInputs {
		if !slices.Contains(provided, loc) {
			return fmt.Errorf("location %d: %w", loc, ErrUnboundLocation)
		}
	}
	return nil
}
