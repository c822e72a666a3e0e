package pipeline

import (
	"fmt"
	"strings"
)

// ExecutionOrder returns a deterministic topological ordering of job names
// over the needs-edges. Jobs with equal depth keep their declaration order.
// An error is returned when the dependency graph contains a cycle, with one
// cycle path named in the message.
func (p *Pipeline) ExecutionOrder() ([]string, error) {
	index := make(map[string]int, len(p.Jobs))
	for i, job := range p.Jobs {
		index[job.Name] = i
	}

	indeg := make([]int, len(p.Jobs))
	outgoing := make([][]int, len(p.Jobs))
	for i, job := range p.Jobs {
		for _, need := range job.Needs {
			from, ok := index[need]
			if !ok {
				return nil, fmt.Errorf("job %q needs unknown job %q", job.Name, need)
			}
			outgoing[from] = append(outgoing[from], i)
			indeg[i]++
		}
	}

	// Kahn's algorithm; the ready list is scanned in declaration order so the
	// result is stable across runs
	pending := make([]int, len(indeg))
	copy(pending, indeg)

	order := make([]string, 0, len(p.Jobs))
	scheduled := make([]bool, len(p.Jobs))
	for len(order) < len(p.Jobs) {
		progressed := false
		for i := range p.Jobs {
			if scheduled[i] || pending[i] != 0 {
				continue
			}
			scheduled[i] = true
			order = append(order, p.Jobs[i].Name)
			for _, next := range outgoing[i] {
				pending[next]--
			}
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("dependency cycle: %s", strings.Join(p.findCycle(), " -> "))
		}
	}

	return order, nil
}

// Dependents returns the names of jobs that directly need the given job
func (p *Pipeline) Dependents(name string) []string {
	var out []string
	for _, job := range p.Jobs {
		for _, need := range job.Needs {
			if need == name {
				out = append(out, job.Name)
				break
			}
		}
	}
	return out
}

// findCycle extracts one cycle path for error reporting. The DFS walks jobs
// in declaration order so the witness is stable.
func (p *Pipeline) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	index := make(map[string]int, len(p.Jobs))
	for i, job := range p.Jobs {
		index[job.Name] = i
	}

	color := make([]int, len(p.Jobs))
	stack := make([]int, 0, len(p.Jobs))

	var cycle []string
	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = gray
		stack = append(stack, i)

		for _, need := range p.Jobs[i].Needs {
			j := index[need]
			switch color[j] {
			case gray:
				// Found a back edge, cut the cycle out of the stack
				for k, s := range stack {
					if s == j {
						for _, n := range stack[k:] {
							cycle = append(cycle, p.Jobs[n].Name)
						}
						cycle = append(cycle, p.Jobs[j].Name)
						return true
					}
				}
			case white:
				if visit(j) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[i] = black
		return false
	}

	for i := range p.Jobs {
		if color[i] == white && visit(i) {
			break
		}
	}

	return cycle
}
