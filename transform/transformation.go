package transform

import (
	"context"
	"fmt"

	"github.com/jonwraymond/thumbnails/repository"
)

// ResourceType marks transformation definition nodes.
const ResourceType = "sling/thumbnails/transformation"

// Property names on transformation and handler nodes.
const (
	PropertyName        = "name"
	PropertyHandlerType = "handlerType"
)

// DefaultSearchRoots returns the configuration roots searched for
// transformations, highest precedence first.
func DefaultSearchRoots() []string {
	return []string{"/conf", "/libs/conf", "/apps/conf"}
}

// HandlerConfig is one step of a transformation.
type HandlerConfig struct {
	Type       string         `json:"type"`
	Path       string         `json:"path"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Transformation is a named, ordered list of handlers.
type Transformation struct {
	Name     string          `json:"name"`
	Path     string          `json:"path"`
	Handlers []HandlerConfig `json:"handlers"`
}

// Adapt reads the transformation at path through reader. Handlers are the
// children carrying a handlerType property, in path order.
//
// Errors from reader are returned unchanged, so callers can test for
// repository.ErrNotFound and repository.ErrAccessDenied.
func Adapt(ctx context.Context, reader repository.ResourceReader, path string) (*Transformation, error) {
	n, err := reader.Node(ctx, path)
	if err != nil {
		return nil, err
	}
	if n.ResourceType != ResourceType {
		return nil, fmt.Errorf("%w: %s has type %q", ErrNotTransformation, n.Path, n.ResourceType)
	}

	children, err := reader.Children(ctx, n.Path)
	if err != nil {
		return nil, err
	}

	t := &Transformation{
		Name:     n.StringProperty(PropertyName),
		Path:     n.Path,
		Handlers: make([]HandlerConfig, 0, len(children)),
	}
	for _, c := range children {
		typ := c.StringProperty(PropertyHandlerType)
		if typ == "" {
			continue
		}
		props := c.Clone().Properties
		delete(props, PropertyHandlerType)
		t.Handlers = append(t.Handlers, HandlerConfig{Type: typ, Path: c.Path, Properties: props})
	}
	return t, nil
}
