// Package vault owns the folder tree layout backing the task lifecycle. Its
// validator is the single fail-fast gate run before any watcher or engine
// activity begins.
package vault

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/taskvault/model/task"
)

// PolicyDocument is the name of the approval-policy document expected at the
// vault root. Its schema is owned by the policy-authoring workflow; the core
// only reads named threshold values from it.
const PolicyDocument = "Policy.yaml"

// collaboratorFolders are required by external collaborators rather than the
// core itself.
var collaboratorFolders = []string{"Logs", "Plans", "Queues"}

// Validator checks the vault layout.
type Validator struct {
	baseURL string
	fs      afs.Service
}

// New creates a validator rooted at baseURL.
func New(baseURL string, fs afs.Service) *Validator {
	if fs == nil {
		fs = afs.New()
	}
	return &Validator{baseURL: baseURL, fs: fs}
}

// RequiredFolders returns every folder the layout must contain.
func RequiredFolders() []string {
	folders := make([]string, 0, len(task.States())+len(collaboratorFolders))
	for _, state := range task.States() {
		folders = append(folders, state.Folder())
	}
	return append(folders, collaboratorFolders...)
}

// Validate checks that the vault root, every required folder and the policy
// document exist. It returns false with one problem string per missing
// element, each naming what is absent.
func (v *Validator) Validate(ctx context.Context) (bool, []string) {
	var problems []string

	exists, err := v.fs.Exists(ctx, v.baseURL)
	if err != nil {
		return false, []string{fmt.Sprintf("failed to access vault root %s: %v", v.baseURL, err)}
	}
	if !exists {
		return false, []string{fmt.Sprintf("vault root %s does not exist", v.baseURL)}
	}

	for _, folder := range RequiredFolders() {
		folderURL := path.Join(v.baseURL, folder)
		if exists, _ := v.fs.Exists(ctx, folderURL); !exists {
			problems = append(problems, fmt.Sprintf("required folder %s is missing", folder))
		}
	}
	documentURL := path.Join(v.baseURL, PolicyDocument)
	if exists, _ := v.fs.Exists(ctx, documentURL); !exists {
		problems = append(problems, fmt.Sprintf("policy document %s is missing", PolicyDocument))
	}
	return len(problems) == 0, problems
}

// ValidateOrExit logs every problem and terminates the process when the
// layout is invalid. Intentionally fatal: no transition may be attempted
// against a broken vault.
func (v *Validator) ValidateOrExit(ctx context.Context) {
	ok, problems := v.Validate(ctx)
	if ok {
		return
	}
	for _, problem := range problems {
		log.Printf("vault: %s", problem)
	}
	osExit(1)
}

// osExit is stubbed in tests.
var osExit = os.Exit

// Scaffold creates the full vault layout plus a default policy document when
// one is not already present.
func (v *Validator) Scaffold(ctx context.Context) error {
	for _, folder := range RequiredFolders() {
		folderURL := path.Join(v.baseURL, folder)
		if exists, _ := v.fs.Exists(ctx, folderURL); exists {
			continue
		}
		if err := v.fs.Create(ctx, folderURL, file.DefaultDirOsMode, true); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", folderURL, err)
		}
	}
	documentURL := path.Join(v.baseURL, PolicyDocument)
	if exists, _ := v.fs.Exists(ctx, documentURL); exists {
		return nil
	}
	if err := v.fs.Upload(ctx, documentURL, file.DefaultFileOsMode, bytes.NewReader([]byte(defaultPolicyDocument))); err != nil {
		return fmt.Errorf("failed to create policy document %s: %w", documentURL, err)
	}
	return nil
}

const defaultPolicyDocument = `# Approval policy. Tasks matching a requireApproval rule park in
# Pending_Approval until a human decides; everything else auto-approves.
mode: auto
thresholds:
  amount: 100
requireApproval:
  - amount > 100
`
