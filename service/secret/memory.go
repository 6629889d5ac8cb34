package secret

import (
	"context"
	"fmt"
	"sync"
)

// MemoryProvider is a map-backed provider for tests and embedded hosts.
type MemoryProvider struct {
	values map[string]string
	mu     sync.RWMutex
}

var _ Provider = (*MemoryProvider)(nil)

// NewMemoryProvider creates an empty in-memory credential provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{values: make(map[string]string)}
}

func (p *MemoryProvider) Store(ctx context.Context, service, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[memoryKey(service, key)] = value
	return nil
}

func (p *MemoryProvider) Retrieve(ctx context.Context, service, key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	value, ok := p.values[memoryKey(service, key)]
	return value, ok
}

func (p *MemoryProvider) Delete(ctx context.Context, service, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := memoryKey(service, key)
	if _, ok := p.values[name]; !ok {
		return fmt.Errorf("credential %s not found", name)
	}
	delete(p.values, name)
	return nil
}

func memoryKey(service, key string) string {
	if service == "" {
		return key
	}
	return service + "/" + key
}
