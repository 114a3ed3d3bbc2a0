package repository

import (
	"errors"
	"testing"
)

func TestNode_Accessors(t *testing.T) {
	n := &Node{
		Path:         "/conf/global/thumbnails/small",
		PrimaryType:  "nt:unstructured",
		ResourceType: "sling/thumbnails/transformation",
		Properties:   map[string]any{"name": "small", "width": 200},
	}

	if n.Name() != "small" {
		t.Errorf("Name = %q", n.Name())
	}
	if n.Parent() != "/conf/global/thumbnails" {
		t.Errorf("Parent = %q", n.Parent())
	}
	if n.StringProperty(PropertyResourceType) != "sling/thumbnails/transformation" {
		t.Errorf("resource type property = %q", n.StringProperty(PropertyResourceType))
	}
	if n.StringProperty("width") != "200" {
		t.Errorf("width = %q", n.StringProperty("width"))
	}
	if _, ok := n.Property("missing"); ok {
		t.Error("missing property reported present")
	}
	if (&Node{Path: "/"}).Parent() != "" {
		t.Error("root should have no parent")
	}
}

func TestNode_Clone(t *testing.T) {
	n := &Node{Path: "/a", Properties: map[string]any{"k": "v"}}
	c := n.Clone()
	c.Properties["k"] = "changed"
	if n.Properties["k"] != "v" {
		t.Error("Clone shares the property map")
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"/conf", "/conf", false},
		{"/conf/", "/conf", false},
		{"/conf//global/../global", "/conf/global", false},
		{"/", "/", false},
		{"conf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := CleanPath(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPath) {
				t.Errorf("CleanPath(%q) err = %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("CleanPath(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestIsDescendant(t *testing.T) {
	tests := []struct {
		root, path string
		want       bool
	}{
		{"/conf", "/conf/a", true},
		{"/conf", "/conf/a/b", true},
		{"/conf", "/conf", false},
		{"/conf", "/confx/a", false},
		{"/conf/", "/conf/a", true},
		{"/", "/a", true},
		{"/", "/", false},
	}
	for _, tt := range tests {
		if got := IsDescendant(tt.root, tt.path); got != tt.want {
			t.Errorf("IsDescendant(%q, %q) = %v, want %v", tt.root, tt.path, got, tt.want)
		}
	}
}
