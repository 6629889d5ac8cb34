package exec

import (
	"fmt"

	"github.com/viant/taskvault/model/task"
)

// Host identifies where commands run. URL uses ssh://user@host:port form for
// remote execution; anything resolving to localhost runs locally.
type Host struct {
	URL         string `json:"url,omitempty"`
	Credentials string `json:"credentials,omitempty"` // scy secret resource name
}

// Input is the payload shape this integration executes: a command batch with
// optional host, environment and working directory.
type Input struct {
	Host         *Host             `json:"host,omitempty"`
	Directory    string            `json:"directory,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
	Commands     []string          `json:"commands,omitempty"`
	TimeoutMs    int               `json:"timeoutMs,omitempty"`
	AbortOnError *bool             `json:"abortOnError,omitempty"`
}

// Init applies defaults; an absent host means local execution.
func (i *Input) Init() {
	if i.Host == nil {
		i.Host = &Host{}
	}
	if i.Host.URL == "" {
		i.Host.URL = "ssh://localhost/"
	}
}

// Validate checks the input is executable.
func (i *Input) Validate() error {
	if len(i.Commands) == 0 {
		return fmt.Errorf("payload has no commands")
	}
	return nil
}

// inputFromTask decodes a task payload into an Input via its JSON shape.
func inputFromTask(t *task.Task) (*Input, error) {
	input := &Input{}
	if err := decodePayload(t.Payload, input); err != nil {
		return nil, fmt.Errorf("task %s has an invalid command payload: %w", t.ID, err)
	}
	input.Init()
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, err)
	}
	return input, nil
}

// Command is the outcome of one executed command.
type Command struct {
	Input  string `json:"input,omitempty"`
	Output string `json:"output,omitempty"`
	Stderr string `json:"stderr,omitempty"`
	Status int    `json:"status,omitempty"`
}
