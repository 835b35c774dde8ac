package schedule

import "context"

type Provider interface {
	Settings(ctx context.Context, businessID string) (Settings, error)
}

type staticProvider struct {
	settings Settings
}

// NewStaticProvider serves the same settings to every tenant.
func NewStaticProvider(settings Settings) Provider {
	return &staticProvider{settings: settings}
}

func (p *staticProvider) Settings(_ context.Context, _ string) (Settings, error) {
	return p.settings, nil
}
