// Package policy decides whether a proposed task may execute automatically,
// needs human approval, or is blocked outright. The rule set is declarative
// and read from the vault's policy document so that operators can tune
// thresholds without touching code.
package policy
