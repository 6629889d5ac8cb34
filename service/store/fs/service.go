package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/taskvault/internal/idgen"
	"github.com/viant/taskvault/model/task"
	"github.com/viant/taskvault/service/store"
)

// stagePrefix marks in-flight move copies. Staged files are invisible to
// List/Read and are resolved by Recover after a crash.
const stagePrefix = ".stage-"

// Service stores each task as <vault>/<state folder>/<id>.json.
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

var _ store.Service = (*Service)(nil)

// New creates a folder-tree task store rooted at baseURL. The state folders
// themselves are owned by the vault validator; the store never creates them.
func New(baseURL string, fs afs.Service) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	return &Service{baseURL: baseURL, fs: fs}, nil
}

// Create persists a new task into the given state folder.
func (s *Service) Create(ctx context.Context, t *task.Task, state task.State) (string, error) {
	if t == nil {
		return "", fmt.Errorf("cannot create nil task")
	}
	if t.ID == "" {
		t.ID = idgen.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t.State = state
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task %s: %w", t.ID, err)
	}
	if err = s.upload(ctx, s.taskURL(state, t.ID), data); err != nil {
		return "", fmt.Errorf("failed to create task %s in %s: %w", t.ID, state, err)
	}
	return t.ID, nil
}

// Move relocates a task file between state folders. The annotated copy is
// first staged in the destination folder, the source is removed, and the
// staged copy is renamed into place. A crash at any point leaves at most a
// staged copy to resolve, never a task visible in two folders.
func (s *Service) Move(ctx context.Context, id string, from, to task.State, annotate store.Annotator) (*task.Task, error) {
	if id == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sourceURL := s.taskURL(from, id)
	exists, err := s.fs.Exists(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check task %s in %s: %w", id, from, err)
	}
	if !exists {
		return nil, fmt.Errorf("task %s is not in %s: %w", id, from, store.ErrStateConflict)
	}

	t, err := s.readURL(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	t.State = to
	if annotate != nil {
		annotate(t)
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task %s: %w", id, err)
	}

	stageURL := s.stageURL(to, id)
	if err = s.upload(ctx, stageURL, data); err != nil {
		return nil, fmt.Errorf("failed to stage task %s in %s: %w", id, to, err)
	}
	if err = s.fs.Delete(ctx, sourceURL); err != nil {
		return nil, fmt.Errorf("failed to remove task %s from %s: %w", id, from, err)
	}
	if err = s.fs.Move(ctx, stageURL, s.taskURL(to, id)); err != nil {
		return nil, fmt.Errorf("failed to commit task %s to %s: %w", id, to, err)
	}
	return t, nil
}

// List returns every task in the given state folder.
func (s *Service) List(ctx context.Context, state task.State) ([]*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folderURL := s.folderURL(state)
	exists, err := s.fs.Exists(ctx, folderURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check folder %s: %w", folderURL, err)
	}
	if !exists {
		return nil, fmt.Errorf("folder %s does not exist: %w", state.Folder(), store.ErrInvalidState)
	}

	objects, err := s.fs.List(ctx, folderURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folderURL, err)
	}
	var tasks []*task.Task
	for _, object := range objects {
		if object.IsDir() || !isTaskFile(object.Name()) {
			continue
		}
		t, err := s.readURL(ctx, object.URL())
		if err != nil {
			return nil, err
		}
		t.State = state
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Read locates a task by id across all state folders.
func (s *Service) Read(ctx context.Context, id string) (*task.Task, error) {
	if id == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locate(ctx, id)
}

// Recover resolves staged move copies left behind by a crash. A staged copy
// whose task is still visible in some folder belongs to a move that never
// committed and is dropped; an orphaned staged copy belongs to a move whose
// source was already removed and is promoted into place.
func (s *Service) Recover(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, state := range task.States() {
		folderURL := s.folderURL(state)
		if exists, _ := s.fs.Exists(ctx, folderURL); !exists {
			continue
		}
		objects, err := s.fs.List(ctx, folderURL)
		if err != nil {
			return fmt.Errorf("failed to list folder %s: %w", folderURL, err)
		}
		for _, object := range objects {
			if object.IsDir() || !strings.HasPrefix(object.Name(), stagePrefix) {
				continue
			}
			id := strings.TrimSuffix(strings.TrimPrefix(object.Name(), stagePrefix), ".json")
			visible, _ := s.locate(ctx, id)
			if visible != nil {
				if err := s.fs.Delete(ctx, object.URL()); err != nil {
					return fmt.Errorf("failed to drop stale stage %s: %w", object.URL(), err)
				}
				continue
			}
			if err := s.fs.Move(ctx, object.URL(), s.taskURL(state, id)); err != nil {
				return fmt.Errorf("failed to promote stage %s: %w", object.URL(), err)
			}
		}
	}
	return nil
}

func (s *Service) locate(ctx context.Context, id string) (*task.Task, error) {
	for _, state := range task.States() {
		taskURL := s.taskURL(state, id)
		exists, err := s.fs.Exists(ctx, taskURL)
		if err != nil {
			return nil, fmt.Errorf("failed to check task %s: %w", id, err)
		}
		if !exists {
			continue
		}
		t, err := s.readURL(ctx, taskURL)
		if err != nil {
			return nil, err
		}
		t.State = state
		return t, nil
	}
	return nil, fmt.Errorf("task %s: %w", id, store.ErrNotFound)
}

func (s *Service) readURL(ctx context.Context, URL string) (*task.Task, error) {
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file %s: %w", URL, err)
	}
	var t task.Task
	if err = json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task file %s: %w", URL, err)
	}
	return &t, nil
}

func (s *Service) upload(ctx context.Context, URL string, data []byte) error {
	return s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data))
}

func (s *Service) folderURL(state task.State) string {
	return path.Join(s.baseURL, state.Folder())
}

func (s *Service) taskURL(state task.State, id string) string {
	return path.Join(s.baseURL, state.Folder(), id+".json")
}

func (s *Service) stageURL(state task.State, id string) string {
	return path.Join(s.baseURL, state.Folder(), stagePrefix+id+".json")
}

func isTaskFile(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}
