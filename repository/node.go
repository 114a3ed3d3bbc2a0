package repository

import (
	"fmt"
	"maps"
	"path"
	"strings"
)

// Well-known property names.
const (
	PropertyPrimaryType  = "jcr:primaryType"
	PropertyResourceType = "sling:resourceType"
)

// DefaultPrimaryType is assigned to nodes stored without a primary type.
const DefaultPrimaryType = "nt:unstructured"

// Node is a repository node: a path, its types and a flat property map.
type Node struct {
	Path         string         `yaml:"path" json:"path"`
	PrimaryType  string         `yaml:"primaryType,omitempty" json:"primaryType,omitempty"`
	ResourceType string         `yaml:"resourceType,omitempty" json:"resourceType,omitempty"`
	Properties   map[string]any `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// Name returns the last path segment.
func (n *Node) Name() string {
	return path.Base(n.Path)
}

// Parent returns the parent path, or "" for the root.
func (n *Node) Parent() string {
	if n.Path == "/" {
		return ""
	}
	return path.Dir(n.Path)
}

// Property returns a property value. The type properties are addressable by
// their repository names.
func (n *Node) Property(name string) (any, bool) {
	switch name {
	case PropertyPrimaryType:
		return n.PrimaryType, n.PrimaryType != ""
	case PropertyResourceType:
		return n.ResourceType, n.ResourceType != ""
	}
	v, ok := n.Properties[name]
	return v, ok
}

// StringProperty returns a property formatted as a string, or "".
func (n *Node) StringProperty(name string) string {
	v, ok := n.Property(name)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Clone returns a deep enough copy that callers may mutate the property map.
func (n *Node) Clone() *Node {
	c := *n
	c.Properties = maps.Clone(n.Properties)
	return &c
}

// CleanPath validates and normalizes an absolute path.
func CleanPath(p string) (string, error) {
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return path.Clean(p), nil
}

// IsDescendant reports whether p lies strictly below root.
func IsDescendant(root, p string) bool {
	if root == "/" {
		return p != "/" && strings.HasPrefix(p, "/")
	}
	root = strings.TrimSuffix(root, "/")
	return strings.HasPrefix(p, root+"/")
}
