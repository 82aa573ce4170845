package gateway

import (
	"errors"
	"sort"
	"sync"
)

var ErrGatewayNotFound = errors.New("payment gateway not found")

// Registry maps gateway identifiers to implementations. Selection is by
// explicit lookup, never by runtime attribute probing.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

func (r *Registry) Register(name string, gw Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[name] = gw
}

func (r *Registry) Get(name string) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.gateways[name]
	if !ok {
		return nil, ErrGatewayNotFound
	}
	return gw, nil
}

// List returns registered gateway names, minus any excluded ones. The
// storefront uses it to offer payment options without listing the wallet
// itself as a way to fund the wallet.
func (r *Registry) List(exclude ...string) []string {
	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		if !excluded[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
