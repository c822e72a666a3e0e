package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rawPipeline keeps jobs as a yaml.Node so the declaration order of the
// mapping is preserved. A plain map would lose it.
type rawPipeline struct {
	Name    string    `yaml:"name"`
	Trigger Trigger   `yaml:"on"`
	Jobs    yaml.Node `yaml:"jobs"`
}

// Load reads and parses a pipeline definition file
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline file %s: %w", path, err)
	}
	return p, nil
}

// Parse parses a pipeline definition from YAML
func Parse(data []byte) (*Pipeline, error) {
	var raw rawPipeline
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	p := &Pipeline{
		Name:    raw.Name,
		Trigger: raw.Trigger,
	}

	if raw.Jobs.Kind == 0 {
		return nil, fmt.Errorf("pipeline has no jobs")
	}
	if raw.Jobs.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("jobs must be a mapping of job name to job")
	}

	// Mapping node content alternates key, value
	for i := 0; i+1 < len(raw.Jobs.Content); i += 2 {
		keyNode := raw.Jobs.Content[i]
		valNode := raw.Jobs.Content[i+1]

		var job Job
		if err := valNode.Decode(&job); err != nil {
			return nil, fmt.Errorf("invalid job %q: %w", keyNode.Value, err)
		}
		job.Name = keyNode.Value
		p.Jobs = append(p.Jobs, &job)
	}

	if len(p.Jobs) == 0 {
		return nil, fmt.Errorf("pipeline has no jobs")
	}

	return p, nil
}

// Validate performs static checks on the pipeline definition. When actions is
// non-nil every `uses` step must name one of the given built-in actions.
func (p *Pipeline) Validate(actions []string) error {
	if p.Name == "" {
		return fmt.Errorf("pipeline name is required")
	}

	known := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		known[a] = struct{}{}
	}

	seen := make(map[string]struct{}, len(p.Jobs))
	for _, job := range p.Jobs {
		if job.Name == "" {
			return fmt.Errorf("job name is required")
		}
		if _, exists := seen[job.Name]; exists {
			return fmt.Errorf("duplicate job name: %q", job.Name)
		}
		seen[job.Name] = struct{}{}

		if len(job.Steps) == 0 {
			return fmt.Errorf("job %q has no steps", job.Name)
		}

		for i, step := range job.Steps {
			switch {
			case step.Uses == "" && step.Run == "":
				return fmt.Errorf("job %q step %d: one of uses or run is required", job.Name, i+1)
			case step.Uses != "" && step.Run != "":
				return fmt.Errorf("job %q step %d: uses and run are mutually exclusive", job.Name, i+1)
			}
			if step.Uses != "" && actions != nil {
				if _, ok := known[step.Uses]; !ok {
					return fmt.Errorf("job %q step %d: unknown action %q", job.Name, i+1, step.Uses)
				}
			}
		}
	}

	for _, job := range p.Jobs {
		needsSeen := make(map[string]struct{}, len(job.Needs))
		for _, need := range job.Needs {
			if need == job.Name {
				return fmt.Errorf("job %q depends on itself", job.Name)
			}
			if p.Job(need) == nil {
				return fmt.Errorf("job %q needs unknown job %q", job.Name, need)
			}
			if _, exists := needsSeen[need]; exists {
				return fmt.Errorf("job %q has duplicate dependency %q", job.Name, need)
			}
			needsSeen[need] = struct{}{}
		}
	}

	// Cycle check
	if _, err := p.ExecutionOrder(); err != nil {
		return err
	}

	return nil
}
