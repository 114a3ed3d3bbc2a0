// Package clover stores repository nodes in an embedded clover document
// database. Queries are narrowed inside clover by primary type and search root
// and then matched exactly against the parsed statement.
package clover

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	clv "github.com/ostafen/clover"

	"github.com/jonwraymond/thumbnails/repository"
)

// Collection holds one document per node.
const Collection = "nodes"

const (
	fieldPath         = "path"
	fieldParent       = "parent"
	fieldPrimaryType  = "primaryType"
	fieldResourceType = "resourceType"
	fieldProperties   = "properties"
)

// Config configures a Backend.
type Config struct {
	// Dir is the database directory. Empty keeps everything in memory.
	Dir string `yaml:"dir"`
}

// Backend implements repository.Backend on clover.
type Backend struct {
	// writes serializes the delete-then-insert upsert in Put.
	writes sync.Mutex
	db     *clv.DB
}

// Open opens or creates the database and its node collection.
func Open(config Config) (*Backend, error) {
	var (
		db  *clv.DB
		err error
	)
	if config.Dir == "" {
		db, err = clv.Open("", clv.InMemoryMode(true))
	} else {
		db, err = clv.Open(config.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("clover: open: %w", err)
	}

	exists, err := db.HasCollection(Collection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clover: check collection: %w", err)
	}
	if !exists {
		if err := db.CreateCollection(Collection); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("clover: create collection: %w", err)
		}
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(ctx context.Context, path string) (*repository.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := b.db.Query(Collection).Where(clv.Field(fieldPath).Eq(path)).FindFirst()
	if err != nil {
		return nil, fmt.Errorf("clover: get %s: %w", path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, path)
	}
	return toNode(doc), nil
}

func (b *Backend) Put(ctx context.Context, n *repository.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.writes.Lock()
	defer b.writes.Unlock()

	if err := b.db.Query(Collection).Where(clv.Field(fieldPath).Eq(n.Path)).Delete(); err != nil {
		return fmt.Errorf("clover: replace %s: %w", n.Path, err)
	}
	if err := b.db.Insert(Collection, toDocument(n)); err != nil {
		return fmt.Errorf("clover: insert %s: %w", n.Path, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, path string) ([]*repository.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.writes.Lock()
	defer b.writes.Unlock()

	q := b.db.Query(Collection).
		Where(clv.Field(fieldPath).Eq(path).Or(below(path))).
		Sort(clv.SortOption{Field: fieldPath, Direction: 1})
	docs, err := q.FindAll()
	if err != nil {
		return nil, fmt.Errorf("clover: delete %s: %w", path, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, path)
	}
	if err := q.Delete(); err != nil {
		return nil, fmt.Errorf("clover: delete %s: %w", path, err)
	}
	return toNodes(docs), nil
}

func (b *Backend) Children(ctx context.Context, path string) ([]*repository.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := b.db.Query(Collection).
		Where(clv.Field(fieldParent).Eq(path)).
		Sort(clv.SortOption{Field: fieldPath, Direction: 1}).
		FindAll()
	if err != nil {
		return nil, fmt.Errorf("clover: children %s: %w", path, err)
	}
	return toNodes(docs), nil
}

func (b *Backend) Select(ctx context.Context, stmt *repository.Statement) ([]*repository.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := b.db.Query(Collection)
	if c := narrow(stmt); c != nil {
		q = q.Where(c)
	}
	docs, err := q.Sort(clv.SortOption{Field: fieldPath, Direction: 1}).FindAll()
	if err != nil {
		return nil, fmt.Errorf("clover: select: %w", err)
	}

	var matches []*repository.Node
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if n := toNode(doc); stmt.Match(n) {
			matches = append(matches, n)
		}
	}
	return matches, nil
}

// Count returns the number of stored nodes.
func (b *Backend) Count() (int, error) {
	return b.db.Query(Collection).Count()
}

func (b *Backend) Close() error {
	return b.db.Close()
}

// narrow builds a pre-filter that never excludes a node the statement matches.
func narrow(stmt *repository.Statement) *clv.Criteria {
	var c *clv.Criteria
	if stmt.NodeType != repository.NodeTypeBase {
		c = clv.Field(fieldPrimaryType).Eq(stmt.NodeType)
	}

	var under *clv.Criteria
	for _, root := range stmt.DescendantRoots() {
		if under == nil {
			under = below(root)
		} else {
			under = under.Or(below(root))
		}
	}

	switch {
	case c == nil:
		return under
	case under == nil:
		return c
	default:
		return c.And(under)
	}
}

func below(root string) *clv.Criteria {
	prefix := strings.TrimSuffix(root, "/") + "/"
	return clv.Field(fieldPath).Like("^" + regexp.QuoteMeta(prefix))
}

func toDocument(n *repository.Node) *clv.Document {
	doc := clv.NewDocument()
	doc.Set(fieldPath, n.Path)
	parent := n.Parent()
	doc.Set(fieldParent, parent)
	doc.Set(fieldPrimaryType, n.PrimaryType)
	doc.Set(fieldResourceType, n.ResourceType)
	props := make(map[string]interface{}, len(n.Properties))
	for k, v := range n.Properties {
		props[k] = v
	}
	doc.Set(fieldProperties, props)
	return doc
}

func toNode(doc *clv.Document) *repository.Node {
	n := &repository.Node{
		Path:         stringField(doc, fieldPath),
		PrimaryType:  stringField(doc, fieldPrimaryType),
		ResourceType: stringField(doc, fieldResourceType),
	}
	if props, ok := doc.Get(fieldProperties).(map[string]interface{}); ok && len(props) > 0 {
		n.Properties = make(map[string]any, len(props))
		for k, v := range props {
			n.Properties[k] = v
		}
	}
	return n
}

func toNodes(docs []*clv.Document) []*repository.Node {
	nodes := make([]*repository.Node, 0, len(docs))
	for _, doc := range docs {
		nodes = append(nodes, toNode(doc))
	}
	return nodes
}

func stringField(doc *clv.Document, name string) string {
	s, _ := doc.Get(name).(string)
	return s
}

var _ repository.Backend = (*Backend)(nil)
