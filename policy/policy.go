package policy

import (
	"strings"

	"github.com/viant/taskvault/model/task"
	"github.com/viant/taskvault/policy/rule"
)

// Classification outcomes produced by the policy.
type Outcome string

const (
	// AutoApprove lets the task proceed straight to the approved state.
	AutoApprove Outcome = "autoApprove"

	// RequireApproval parks the task until a human decides.
	RequireApproval Outcome = "requireApproval"

	// Deny rejects the task outright without asking anyone.
	Deny Outcome = "deny"
)

// Modes recognised by the engine.
const (
	ModeAuto = "auto" // classify by rules (default)
	ModeAsk  = "ask"  // require approval for every action
	ModeDeny = "deny" // block everything not allow-listed
)

// Policy decides whether a proposed task needs human sign-off. This is the
// one true decision point; all downstream code trusts its output.
//
//   - Mode controls the high-level behaviour (auto / ask / deny).
//   - AllowList, BlockList filter by action name regardless of Mode.
//   - Rules park matching payloads for approval when Mode==auto.
//
// A nil *Policy means "auto-approve everything" and is therefore the
// zero-cost default.
type Policy struct {
	Mode      string
	AllowList []string
	BlockList []string
	Rules     []*rule.Rule
}

// Classify returns the outcome for a task according to mode, lists and rules.
func (p *Policy) Classify(t *task.Task) Outcome {
	if p == nil || t == nil {
		return AutoApprove
	}

	action := actionName(t)
	if p.blocked(action) {
		return Deny
	}
	allowed := p.allowListed(action)

	switch strings.ToLower(p.Mode) {
	case ModeDeny:
		if allowed {
			return AutoApprove
		}
		return Deny
	case ModeAsk:
		if allowed {
			return AutoApprove
		}
		return RequireApproval
	}

	if allowed {
		return AutoApprove
	}
	for _, r := range p.Rules {
		if r.Matches(t.Payload) {
			return RequireApproval
		}
	}
	return AutoApprove
}

// blocked evaluates the BlockList; it has priority over everything else.
func (p *Policy) blocked(action string) bool {
	for _, entry := range p.BlockList {
		if strings.EqualFold(entry, action) {
			return true
		}
	}
	return false
}

// allowListed matches by exact, case-insensitive action name. An empty list
// allow-lists nothing: the mode and rules decide.
func (p *Policy) allowListed(action string) bool {
	for _, entry := range p.AllowList {
		if strings.EqualFold(entry, action) {
			return true
		}
	}
	return false
}

// actionName derives the name lists match against: the payload's action
// field when present, the integration tag otherwise.
func actionName(t *task.Task) string {
	if value, ok := t.Payload["action"]; ok {
		if text, ok := value.(string); ok && text != "" {
			return text
		}
	}
	return t.Integration
}
