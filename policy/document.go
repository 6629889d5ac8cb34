package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/taskvault/policy/rule"
	"gopkg.in/yaml.v3"
)

// Config is the serialisable subset of a Policy read from the vault's policy
// document. The document schema is owned by the policy-authoring workflow;
// the core only consumes the named values below.
type Config struct {
	Mode            string             `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList       []string           `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList       []string           `json:"block,omitempty" yaml:"block,omitempty"`
	Thresholds      map[string]float64 `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	RequireApproval []string           `json:"requireApproval,omitempty" yaml:"requireApproval,omitempty"`
}

// Load reads and parses the policy document at URL.
func Load(ctx context.Context, fs afs.Service, URL string) (*Policy, error) {
	if fs == nil {
		fs = afs.New()
	}
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy document %s: %w", URL, err)
	}
	config := &Config{}
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse policy document %s: %w", URL, err)
	}
	return config.Policy()
}

// Policy converts the stored config into a runtime Policy, parsing every
// requireApproval expression. A string literal naming a configured threshold
// is resolved to its numeric value, so documents can write
// `amount > thresholds.amount`.
func (c *Config) Policy() (*Policy, error) {
	if c == nil {
		return nil, nil
	}
	ret := &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
	for _, expression := range c.RequireApproval {
		parsed, err := rule.Parse([]byte(expression))
		if err != nil {
			return nil, fmt.Errorf("invalid approval rule %q: %w", expression, err)
		}
		if name, ok := parsed.Value.(string); ok {
			if value, ok := c.threshold(name); ok {
				parsed.Value = value
			}
		}
		ret.Rules = append(ret.Rules, parsed)
	}
	return ret, nil
}

func (c *Config) threshold(name string) (float64, bool) {
	name = strings.TrimPrefix(name, "thresholds.")
	value, ok := c.Thresholds[name]
	return value, ok
}
