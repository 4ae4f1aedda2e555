// Package workload enumerates the benchmark trials: every problem size
// paired with every worker count, both taken from inclusive ranges.
package workload

import (
	"fmt"
)

// Range is an inclusive integer range.
type Range struct {
	Min int
	Max int
}

// Values returns Min..Max inclusive, ascending.
func (r Range) Values() []int {
	if r.Max < r.Min {
		return nil
	}

	vals := make([]int, 0, r.Max-r.Min+1)
	for v := r.Min; v <= r.Max; v++ {
		vals = append(vals, v)
	}

	return vals
}

func (r Range) String() string {
	return fmt.Sprintf("%d..%d", r.Min, r.Max)
}

// Default ranges of the pvc benchmark.
var (
	DefaultSizes   = Range{Min: 2, Max: 13}
	DefaultWorkers = Range{Min: 2, Max: 4}
)

// Config controls which trials are planned.
type Config struct {
	Sizes   Range
	Workers Range
}

// Validate reports whether the ranges describe a runnable plan. Sizes
// start at 1; the parallel solver needs at least two workers.
func (c Config) Validate() error {
	if c.Sizes.Min < 1 {
		return fmt.Errorf("size range %s: sizes must be positive", c.Sizes)
	}

	if c.Sizes.Max < c.Sizes.Min {
		return fmt.Errorf("size range %s: min exceeds max", c.Sizes)
	}

	if c.Workers.Min < 2 {
		return fmt.Errorf(
			"worker range %s: at least 2 workers required", c.Workers,
		)
	}

	if c.Workers.Max < c.Workers.Min {
		return fmt.Errorf("worker range %s: min exceeds max", c.Workers)
	}

	return nil
}

// Trial is one (problem size, worker count) combination.
type Trial struct {
	N int
	T int
}

// Group is every trial sharing one problem size. The sequential solver
// runs once per group.
type Group struct {
	N       int
	Workers []int
}

// Trials expands the group in worker order.
func (g Group) Trials() []Trial {
	trials := make([]Trial, 0, len(g.Workers))
	for _, t := range g.Workers {
		trials = append(trials, Trial{N: g.N, T: t})
	}

	return trials
}

// Plan is the ordered list of groups, sizes ascending.
type Plan []Group

// Summary contains statistics about a plan.
type Summary struct {
	Sizes  int
	Trials int
}

// NewPlan builds the plan for cfg.
func NewPlan(cfg Config) (Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	workers := cfg.Workers.Values()
	sizes := cfg.Sizes.Values()

	plan := make(Plan, 0, len(sizes))
	for _, n := range sizes {
		plan = append(plan, Group{
			N:       n,
			Workers: append([]int(nil), workers...),
		})
	}

	return plan, nil
}

// Trials flattens the plan in execution order.
func (p Plan) Trials() []Trial {
	var trials []Trial
	for _, g := range p {
		trials = append(trials, g.Trials()...)
	}

	return trials
}

// Summary counts sizes and trials.
func (p Plan) Summary() Summary {
	s := Summary{Sizes: len(p)}
	for _, g := range p {
		s.Trials += len(g.Workers)
	}

	return s
}
