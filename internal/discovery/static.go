package discovery

import (
	"context"
	"slices"
	"sync"
)

// StaticRegistry is an in-process registry, filled from configuration.
type StaticRegistry struct {
	mu        sync.RWMutex
	instances map[string][]string
}

func NewStaticRegistry(initial map[string][]string) *StaticRegistry {
	instances := make(map[string][]string, len(initial))
	for name, addrs := range initial {
		instances[name] = slices.Clone(addrs)
	}
	return &StaticRegistry{instances: instances}
}

func (r *StaticRegistry) Instances(ctx context.Context, service string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.instances[service]), nil
}

func (r *StaticRegistry) Register(ctx context.Context, service, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.instances[service], addr) {
		r.instances[service] = append(r.instances[service], addr)
	}
	return nil
}

func (r *StaticRegistry) Deregister(ctx context.Context, service, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[service] = slices.DeleteFunc(r.instances[service], func(a string) bool { return a == addr })
	return nil
}
