package secret

import (
	"context"
	"fmt"
	"path"

	"github.com/viant/scy"
)

// ScyProvider resolves credentials from encrypted scy resources laid out as
// <baseURL>/<service>/<key>.scy. An empty service maps to <baseURL>/<key>.scy
// so the bare-key fallback keeps working.
type ScyProvider struct {
	baseURL string
	key     string // encryption key, e.g. "blowfish://default"
	service *scy.Service
}

var _ Provider = (*ScyProvider)(nil)

// NewScyProvider creates a scy-backed credential provider.
func NewScyProvider(baseURL, encryptionKey string) *ScyProvider {
	return &ScyProvider{
		baseURL: baseURL,
		key:     encryptionKey,
		service: scy.New(),
	}
}

func (p *ScyProvider) Store(ctx context.Context, service, key, value string) error {
	resource := scy.NewResource(nil, p.resourceURL(service, key), p.key)
	return p.service.Store(ctx, scy.NewSecret(value, resource))
}

func (p *ScyProvider) Retrieve(ctx context.Context, service, key string) (string, bool) {
	resource := scy.NewResource(nil, p.resourceURL(service, key), p.key)
	secret, err := p.service.Load(ctx, resource)
	if err != nil {
		return "", false
	}
	return secret.String(), true
}

func (p *ScyProvider) Delete(ctx context.Context, service, key string) error {
	return fmt.Errorf("scy provider does not support delete; remove %s manually", p.resourceURL(service, key))
}

func (p *ScyProvider) resourceURL(service, key string) string {
	if service == "" {
		return path.Join(p.baseURL, key+".scy")
	}
	return path.Join(p.baseURL, service, key+".scy")
}
