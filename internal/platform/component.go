// Package platform models the simulated system: a hierarchy of Groups with
// k-out-of-n failure semantics whose leaves are Units aging under workload
// traces.
package platform

import (
	"sort"
	"strings"

	"codeberg.org/mutker/wearsim/internal/reliability"
)

// Component is a node in the failure dependency tree: either a Group, whose
// failure state is a function of its children, or a Unit, whose failure
// state comes from reliability sampling.
type Component interface {
	Name() string
	Children() []Component
	Failed() bool
	// Lifetimes accumulates the component's observed times to failure
	// across Monte-Carlo trials.
	Lifetimes() *reliability.Samples
}

// component carries the identity and TTF samples shared by Units and Groups.
type component struct {
	name      string
	lifetimes reliability.Samples
}

func (c *component) Name() string {
	return c.name
}

func (c *component) Lifetimes() *reliability.Samples {
	return &c.lifetimes
}

// Walk visits root and every descendant in pre-order.
func Walk(root Component, visit func(Component)) {
	stack := []Component{root}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(c)
		stack = append(stack, c.Children()...)
	}
}

// ConditionalWalk visits root and every descendant in pre-order, descending
// into a component's children only when the visitor returns true for it.
func ConditionalWalk(root Component, visit func(Component) bool) {
	stack := []Component{root}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visit(c) {
			stack = append(stack, c.Children()...)
		}
	}
}

// Group is a composite component that tolerates a fixed number of child
// failures before it is itself considered failed.
type Group struct {
	component
	failures int
	children []Component
}

// NewGroup creates a group that fails when more than failures of its
// children have failed.
func NewGroup(name string, failures int, children ...Component) *Group {
	return &Group{
		component: component{name: name},
		failures:  failures,
		children:  children,
	}
}

func (g *Group) Children() []Component {
	return g.children
}

// FailureTolerance is the number of child failures the group survives.
func (g *Group) FailureTolerance() int {
	return g.failures
}

// Failed reports whether the number of failed children has passed the
// group's tolerance.
func (g *Group) Failed() bool {
	failed := 0
	for _, child := range g.children {
		if child.Failed() {
			failed++
			if failed > g.failures {
				return true
			}
		}
	}
	return false
}

// Config identifies the set of units currently marked failed, which selects
// the workload trace (and therefore the reliability distribution) that
// applies to a still-healthy unit. The canonical form is the sorted,
// comma-joined unit names, so it is usable as a map key.
type Config string

// Fresh is the all-healthy configuration. Every unit has a trace bound for
// it.
const Fresh Config = ""

// ConfigOf builds the canonical configuration for the given failed units.
func ConfigOf(names ...string) Config {
	if len(names) == 0 {
		return Fresh
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return Config(strings.Join(sorted, ","))
}

// Contains reports whether the named unit is failed in this configuration.
func (c Config) Contains(name string) bool {
	if c == Fresh {
		return false
	}
	for _, n := range strings.Split(string(c), ",") {
		if n == name {
			return true
		}
	}
	return false
}

// Names returns the failed unit names, sorted.
func (c Config) Names() []string {
	if c == Fresh {
		return nil
	}
	return strings.Split(string(c), ",")
}

func (c Config) String() string {
	return "[" + string(c) + "]"
}
