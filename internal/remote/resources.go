package remote

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type resource struct {
	name  string
	close func() error
}

// resourceGroup releases everything pushed onto it in reverse order, once.
type resourceGroup struct {
	items    []resource
	released bool
}

func (g *resourceGroup) push(name string, closeFn func() error) {
	g.items = append(g.items, resource{name: name, close: closeFn})
}

func (g *resourceGroup) len() int {
	return len(g.items)
}

// release closes every resource, newest first, and returns the combined
// failures. Later calls return nil without touching anything.
func (g *resourceGroup) release(log *zap.Logger) error {
	if g.released {
		return nil
	}
	g.released = true

	var err error
	for i := len(g.items) - 1; i >= 0; i-- {
		item := g.items[i]
		if closeErr := item.close(); closeErr != nil {
			if log != nil {
				log.Warn("release remote resource", zap.String("resource", item.name), zap.Error(closeErr))
			}
			err = multierr.Append(err, fmt.Errorf("close %s: %w", item.name, closeErr))
		}
	}
	g.items = nil
	return err
}
