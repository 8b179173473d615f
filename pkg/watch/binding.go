package watch

import (
	"github.com/yaklabco/themepipe/pkg/globs"
	"github.com/yaklabco/themepipe/pkg/task"
)

// Binding pairs a set of glob patterns with the chain to run when a file
// matching any of them changes.
type Binding struct {
	Name     string
	Patterns []string
	Chain    task.Task
}

type compiled struct {
	Binding
	patterns []*globs.Pattern
}

func compile(b Binding) (*compiled, error) {
	c := &compiled{Binding: b}
	for _, p := range b.Patterns {
		g, err := globs.Compile(p)
		if err != nil {
			return nil, err
		}
		c.patterns = append(c.patterns, g)
	}
	return c, nil
}

func (c *compiled) match(path string) bool {
	for _, p := range c.patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}
