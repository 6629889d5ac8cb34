package secret

import (
	"context"
	"os"
	"strings"
)

// EnvProvider resolves credentials from the process environment using
// SERVICE_KEY style variable names.
type EnvProvider struct{}

var _ Provider = (*EnvProvider)(nil)

// NewEnvProvider creates an environment-backed credential provider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

func (p *EnvProvider) Store(ctx context.Context, service, key, value string) error {
	return os.Setenv(envName(service, key), value)
}

func (p *EnvProvider) Retrieve(ctx context.Context, service, key string) (string, bool) {
	return os.LookupEnv(envName(service, key))
}

func (p *EnvProvider) Delete(ctx context.Context, service, key string) error {
	return os.Unsetenv(envName(service, key))
}

// envName normalizes (service, key) into an environment variable name:
// upper-cased, non-alphanumeric runes folded to underscores, service prefix
// omitted for bare-key fallback lookups.
func envName(service, key string) string {
	name := key
	if service != "" {
		name = service + "_" + key
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}
