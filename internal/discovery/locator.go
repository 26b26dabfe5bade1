// Package discovery maps logical service names to reachable addresses.
package discovery

import (
	"context"
	"fmt"

	"microshop/internal/domain"
)

// Registry lists the live instances of a service, in registry order. An
// empty result is not an error.
type Registry interface {
	Instances(ctx context.Context, service string) ([]string, error)
}

// Registrar is implemented by registries an instance can announce itself to.
type Registrar interface {
	Register(ctx context.Context, service, addr string) error
	Deregister(ctx context.Context, service, addr string) error
}

// Backend is a registry that supports both lookup and registration.
type Backend interface {
	Registry
	Registrar
}

type Locator struct {
	registry Registry
}

func NewLocator(registry Registry) *Locator {
	return &Locator{registry: registry}
}

// Resolve returns the first available instance of service.
func (l *Locator) Resolve(ctx context.Context, service string) (string, error) {
	instances, err := l.registry.Instances(ctx, service)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrServiceUnavailable, service, err)
	}
	if len(instances) == 0 {
		return "", fmt.Errorf("%w: no instance of %s registered", domain.ErrServiceUnavailable, service)
	}
	return instances[0], nil
}
