package exchange

import (
	"fmt"
	"sync"
)

// Container is a thread-safe registry of exchange instances, useful for
// applications routing orders across several venues.
type Container struct {
	mu        sync.RWMutex
	exchanges map[string]Exchange
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{exchanges: make(map[string]Exchange)}
}

// Register adds an exchange under a name, replacing any previous holder.
func (c *Container) Register(name string, ex Exchange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges[name] = ex
}

// Get retrieves an exchange by name.
func (c *Container) Get(name string) (Exchange, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ex, ok := c.exchanges[name]
	if !ok {
		return nil, fmt.Errorf("exchange %q not registered", name)
	}
	return ex, nil
}

// Names lists the registered exchange names.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.exchanges))
	for name := range c.exchanges {
		names = append(names, name)
	}
	return names
}

// Unregister removes an exchange by name.
func (c *Container) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.exchanges, name)
}

// CloseAll closes every registered exchange and empties the container.
// The first close error is returned; remaining exchanges still close.
func (c *Container) CloseAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for name, ex := range c.exchanges {
		if err := ex.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", name, err)
		}
	}
	c.exchanges = make(map[string]Exchange)
	return firstErr
}
