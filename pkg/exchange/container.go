package exchange

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Container is a thread-safe registry for managing multiple exchange instances.
// It provides dependency injection capabilities for exchange clients.
type Container struct {
	mu        sync.RWMutex
	exchanges map[string]Exchange
}

// NewContainer creates and returns a new empty exchange container.
func NewContainer() *Container {
	return &Container{
		exchanges: make(map[string]Exchange),
	}
}

// Register adds an exchange instance to the container with the given name.
// If an exchange with the same name exists, it will be overwritten.
func (c *Container) Register(name string, ex Exchange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges[name] = ex
}

// Get retrieves an exchange instance by name.
// Returns an error if no exchange is registered with the given name.
func (c *Container) Get(name string) (Exchange, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ex, exists := c.exchanges[name]
	if !exists {
		return nil, fmt.Errorf("exchange %q not found", name)
	}
	return ex, nil
}

// Names returns the registered exchange names in sorted order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.exchanges))
	for name := range c.exchanges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BalanceSource retrieves an exchange by name and checks that it reports
// reference balances.
func (c *Container) BalanceSource(name string) (BalanceSource, error) {
	ex, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	src, ok := ex.(BalanceSource)
	if !ok {
		return nil, fmt.Errorf("exchange %q does not report balances", name)
	}
	return src, nil
}

// BalanceSources returns every registered exchange that reports reference
// balances, keyed by name.
func (c *Container) BalanceSources() map[string]BalanceSource {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sources := make(map[string]BalanceSource, len(c.exchanges))
	for name, ex := range c.exchanges {
		if src, ok := ex.(BalanceSource); ok {
			sources[name] = src
		}
	}
	return sources
}

// Unregister removes an exchange from the container by name.
func (c *Container) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.exchanges, name)
}

// Close closes every registered exchange and empties the container.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, ex := range c.exchanges {
		if err := ex.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	c.exchanges = make(map[string]Exchange)
	return errors.Join(errs...)
}

// Clear removes all exchanges from the container.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges = make(map[string]Exchange)
}

// Exists checks whether an exchange with the given name is registered.
func (c *Container) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.exchanges[name]
	return exists
}
