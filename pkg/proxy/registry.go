package proxy

import (
	"sync"

	"github.com/blacktop/dexsig/pkg/dex"
)

// Registry hands out one ClassProxy per class type. The zero value is an
// empty registry. It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	proxies map[string]*ClassProxy
	order   []*ClassProxy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		proxies: make(map[string]*ClassProxy),
	}
}

// Proxy returns the proxy for class, creating it if this is the first
// request for the class type. Repeated calls return the same *ClassProxy.
func (r *Registry) Proxy(class dex.ClassDef) *ClassProxy {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.proxies[class.Type()]; ok {
		return p
	}
	if r.proxies == nil {
		r.proxies = make(map[string]*ClassProxy)
	}
	p := New(class)
	r.proxies[class.Type()] = p
	r.order = append(r.order, p)
	return p
}

// Proxies returns the proxies in creation order.
func (r *Registry) Proxies() []*ClassProxy {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ClassProxy, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of proxies.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
