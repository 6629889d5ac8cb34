package fs

import (
	"log"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/taskvault/service/queue"
)

// Provider hands out one file-backed queue per integration, all rooted in
// the vault's Queues folder.
type Provider struct {
	baseURL string
	fs      afs.Service
	queues  map[string]*Queue
	mu      sync.Mutex
}

// NewProvider creates a queue provider rooted at baseURL.
func NewProvider(baseURL string, fs afs.Service) *Provider {
	if fs == nil {
		fs = afs.New()
	}
	return &Provider{
		baseURL: baseURL,
		fs:      fs,
		queues:  make(map[string]*Queue),
	}
}

// Queue returns the queue scoped to the given integration, creating it on
// first use. Returns nil when the queue cannot be created; the condition is
// logged, consistent with queue error degradation.
func (p *Provider) Queue(integration string) queue.Service {
	p.mu.Lock()
	defer p.mu.Unlock()

	if q, ok := p.queues[integration]; ok {
		return q
	}
	q, err := New(p.baseURL, integration, p.fs)
	if err != nil {
		log.Printf("queue provider: failed to create queue %s: %v", integration, err)
		return nil
	}
	p.queues[integration] = q
	return q
}
