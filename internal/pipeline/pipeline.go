package pipeline

// Pipeline is a parsed pipeline definition.
//
// A pipeline fires when a pushed ref is a tag matching one of the trigger
// patterns. Jobs run in dependency order, steps inside a job run strictly
// in sequence.
type Pipeline struct {
	Name    string  `yaml:"name"`
	Trigger Trigger `yaml:"on"`
	Jobs    []*Job  `yaml:"-"`
}

// Trigger describes what fires the pipeline
type Trigger struct {
	Tags []string `yaml:"tags"`
}

// Job is an isolated execution unit within a pipeline
type Job struct {
	Name   string   `yaml:"-"`
	Needs  []string `yaml:"needs"`
	Matrix *Matrix  `yaml:"matrix"`
	Steps  []Step   `yaml:"steps"`
}

// Matrix describes the platform/arch combinations a job runs for
type Matrix struct {
	Platform []string       `yaml:"platform"`
	Arch     []string       `yaml:"arch"`
	Exclude  []MatrixSelect `yaml:"exclude"`
}

// MatrixSelect selects one platform/arch combination, used for excludes
type MatrixSelect struct {
	Platform string `yaml:"platform"`
	Arch     string `yaml:"arch"`
}

// Step is a single action inside a job. Exactly one of Uses or Run must be
// set: Uses names a built-in action, Run is a shell command.
type Step struct {
	Name string            `yaml:"name"`
	Uses string            `yaml:"uses"`
	Run  string            `yaml:"run"`
	With map[string]string `yaml:"with"`
	Env  map[string]string `yaml:"env"`
	Dir  string            `yaml:"working-directory"`
}

// Label returns a human readable identifier for the step
func (s Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Uses != "" {
		return s.Uses
	}
	return "run"
}

// Job returns the job with the given name, or nil
func (p *Pipeline) Job(name string) *Job {
	for _, j := range p.Jobs {
		if j.Name == name {
			return j
		}
	}
	return nil
}
