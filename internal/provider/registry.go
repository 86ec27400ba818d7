package provider

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/evanofslack/dnsctl/internal/metrics"
)

// Doer sends HTTP requests. *http.Client and the cassette recorder satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Deps are the collaborators injected into every provider.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	HTTP    Doer
}

func (d Deps) WithDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.HTTP == nil {
		d.HTTP = http.DefaultClient
	}
	return d
}

type Factory func(opts Options, deps Deps) (Provider, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("dns provider %q is already registered", name)
	}
	r.factories[name] = f
	return nil
}

// New builds the named provider. Shared options are validated before the
// factory runs.
func (r *Registry) New(name string, opts Options, deps Deps) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unsupported dns provider %q (registered: %v)", ErrConfiguration, name, r.Names())
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if deps.HTTP == nil && opts.Timeout > 0 {
		deps.HTTP = &http.Client{Timeout: opts.Timeout}
	}
	return f(opts, deps.WithDefaults())
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
