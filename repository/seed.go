package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout accepted by LoadSeed.
//
//	nodes:
//	  - path: /conf/global/thumbnails/small
//	    resourceType: sling/thumbnails/transformation
//	    properties:
//	      name: small
type SeedFile struct {
	Nodes []*Node `yaml:"nodes"`
}

// Writer is the write side of a Store.
type Writer interface {
	Put(ctx context.Context, n *Node) error
}

// DecodeSeed parses seed YAML. Unknown keys are rejected.
func DecodeSeed(r io.Reader) ([]*Node, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file SeedFile
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("repository: parse seed: %w", err)
	}
	for i, n := range file.Nodes {
		if n == nil {
			return nil, fmt.Errorf("repository: seed node %d is empty", i)
		}
		if _, err := CleanPath(n.Path); err != nil {
			return nil, fmt.Errorf("repository: seed node %d: %w", i, err)
		}
	}
	return file.Nodes, nil
}

// LoadSeed reads a seed file from disk.
func LoadSeed(path string) ([]*Node, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("repository: read seed: %w", err)
	}
	return DecodeSeed(bytes.NewReader(data))
}

// Seed writes nodes in order.
func Seed(ctx context.Context, w Writer, nodes []*Node) error {
	for _, n := range nodes {
		if err := w.Put(ctx, n); err != nil {
			return err
		}
	}
	return nil
}
