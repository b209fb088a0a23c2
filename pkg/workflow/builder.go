// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package workflow

import (
	"fmt"
)

// node is one position in a definition: either a step or a pure transform.
type node struct {
	step      Step
	transform TransformFunc
}

// Definition is an immutable, validated workflow: an ordered sequence of
// steps and transforms plus the hook each step completion emits. Build one
// with a Builder at process start and reuse it across invocations; all
// per-run state lives in the ExecutionContext.
type Definition struct {
	name  string
	nodes []node
	// hooks maps a step name to the hook topic emitted after that step,
	// carrying the step's output as payload.
	hooks map[string]string
}

// GetName returns the workflow name.
func (d *Definition) GetName() string { return d.name }

// StepNames returns the declared step names in execution order.
func (d *Definition) StepNames() []string {
	names := make([]string, 0, len(d.nodes))
	for _, n := range d.nodes {
		if n.step != nil {
			names = append(names, n.step.GetName())
		}
	}
	return names
}

// Builder assembles a Definition. Steps execute in the order they are added;
// a transform reshapes the data flowing from the preceding position to the
// next step without ever appearing on the completion stack.
type Builder struct {
	name  string
	nodes []node
	hooks map[string]string
	errs  []error
}

// NewBuilder starts a definition with the given workflow name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, hooks: make(map[string]string)}
}

// Step appends a step to the sequence.
func (b *Builder) Step(step Step) *Builder {
	if step == nil {
		b.errs = append(b.errs, fmt.Errorf("workflow %q: nil step", b.name))
		return b
	}
	b.nodes = append(b.nodes, node{step: step})
	return b
}

// StepFunc appends a step built from a forward/compensate pair. It is a
// convenience over NewStep(...).Build() for inline definitions.
func (b *Builder) StepFunc(name string, forward ForwardFunc, compensate CompensateFunc) *Builder {
	sb := NewStep(name, forward)
	if compensate != nil {
		sb.WithCompensation(compensate)
	} else {
		sb.WithoutCompensation()
	}
	step, err := sb.Build()
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	return b.Step(step)
}

// Transform appends a pure data reshape between the previous position and
// the next step. Transforms are never compensated and must be re-runnable.
func (b *Builder) Transform(fn TransformFunc) *Builder {
	if fn == nil {
		b.errs = append(b.errs, fmt.Errorf("workflow %q: nil transform", b.name))
		return b
	}
	b.nodes = append(b.nodes, node{transform: fn})
	return b
}

// EmitHook declares that completing the named step emits the given hook
// topic, with the step's output as payload. The hook fires only if the whole
// workflow commits.
func (b *Builder) EmitHook(stepName, hook string) *Builder {
	if hook == "" {
		b.errs = append(b.errs, fmt.Errorf("workflow %q: empty hook name for step %q", b.name, stepName))
		return b
	}
	if prev, exists := b.hooks[stepName]; exists {
		b.errs = append(b.errs, fmt.Errorf("workflow %q: step %q already emits hook %q", b.name, stepName, prev))
		return b
	}
	b.hooks[stepName] = hook
	return b
}

// Build validates and freezes the definition. Validation requires a
// non-empty name, at least one step, unique step names, and hook bindings
// that reference declared steps.
func (b *Builder) Build() (*Definition, error) {
	if len(b.errs) > 0 {
		return nil, NewError(ErrCodeDefinitionInvalid, b.errs[0].Error(), KindValidation)
	}
	if b.name == "" {
		return nil, NewError(ErrCodeDefinitionInvalid, "workflow name cannot be empty", KindValidation)
	}

	seen := make(map[string]bool)
	stepCount := 0
	for _, n := range b.nodes {
		if n.step == nil {
			continue
		}
		stepCount++
		name := n.step.GetName()
		if name == "" {
			return nil, NewError(ErrCodeDefinitionInvalid,
				fmt.Sprintf("workflow %q contains a step with an empty name", b.name), KindValidation)
		}
		if seen[name] {
			return nil, NewError(ErrCodeDefinitionInvalid,
				fmt.Sprintf("workflow %q declares step %q more than once", b.name, name), KindValidation)
		}
		seen[name] = true
	}
	if stepCount == 0 {
		return nil, NewError(ErrCodeDefinitionInvalid,
			fmt.Sprintf("workflow %q has no steps", b.name), KindValidation)
	}

	for stepName := range b.hooks {
		if !seen[stepName] {
			return nil, NewError(ErrCodeDefinitionInvalid,
				fmt.Sprintf("workflow %q binds a hook to unknown step %q", b.name, stepName), KindValidation)
		}
	}

	nodes := make([]node, len(b.nodes))
	copy(nodes, b.nodes)
	hooks := make(map[string]string, len(b.hooks))
	for k, v := range b.hooks {
		hooks[k] = v
	}
	return &Definition{name: b.name, nodes: nodes, hooks: hooks}, nil
}
