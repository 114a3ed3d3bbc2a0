package transform

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jonwraymond/thumbnails/cache"
	"github.com/jonwraymond/thumbnails/observe"
	"github.com/jonwraymond/thumbnails/repository"
)

// StripSentinel removes the leading marker rune of a transformation name.
func StripSentinel(name string) string {
	_, size := utf8.DecodeRuneInString(name)
	return name[size:]
}

// EscapeName returns the query literal body for name: the sentinel stripped
// and every single quote doubled. "#O'Brien" becomes "O''Brien".
func EscapeName(name string) string {
	return repository.EscapeLiteral(StripSentinel(name))
}

// ResolverConfig configures a QueryResolver.
type ResolverConfig struct {
	Opener SessionOpener

	// SearchRoots in precedence order. Default: DefaultSearchRoots()
	SearchRoots []string

	// ResourceType of definition nodes. Default: ResourceType
	ResourceType string

	// NodeType queried. Default: repository.DefaultPrimaryType
	NodeType string

	Logger observe.Logger
}

// QueryResolver implements cache.Resolver with a repository query.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Sessions: every Resolve opens one service session and closes it before
//     returning, on every path.
//   - Errors: open failures wrap ErrAccessFailure; query and iteration errors
//     are returned. A query with no rows is cache.Absent, not an error.
//   - Ranking: among matches the one under the earliest search root wins;
//     backend order breaks ties within a root.
type QueryResolver struct {
	opener       SessionOpener
	roots        []string
	resourceType string
	nodeType     string
	logger       observe.Logger
}

// NewQueryResolver creates a resolver.
func NewQueryResolver(config ResolverConfig) (*QueryResolver, error) {
	if config.Opener == nil {
		return nil, ErrNilOpener
	}
	if config.SearchRoots == nil {
		config.SearchRoots = DefaultSearchRoots()
	}
	roots := make([]string, 0, len(config.SearchRoots))
	for _, r := range config.SearchRoots {
		if r == "" {
			continue
		}
		clean, err := repository.CleanPath(r)
		if err != nil {
			return nil, err
		}
		roots = append(roots, clean)
	}
	if len(roots) == 0 {
		return nil, ErrNoSearchRoots
	}
	if config.ResourceType == "" {
		config.ResourceType = ResourceType
	}
	if config.NodeType == "" {
		config.NodeType = repository.DefaultPrimaryType
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	return &QueryResolver{
		opener:       config.Opener,
		roots:        roots,
		resourceType: config.ResourceType,
		nodeType:     config.NodeType,
		logger:       config.Logger.With(observe.F("component", "resolver")),
	}, nil
}

// SearchRoots returns the roots in precedence order.
func (r *QueryResolver) SearchRoots() []string {
	return append([]string(nil), r.roots...)
}

// ResourceType returns the resource type the resolver matches.
func (r *QueryResolver) ResourceType() string {
	return r.resourceType
}

// Statement returns the JCR-SQL2 query Resolve runs for name.
func (r *QueryResolver) Statement(name string) string {
	under := make(repository.Or, len(r.roots))
	for i, root := range r.roots {
		under[i] = repository.Descendant{Root: root}
	}
	stmt := repository.Statement{
		NodeType: r.nodeType,
		Where: repository.And{
			under,
			repository.PropertyEquals{Name: repository.PropertyResourceType, Value: r.resourceType},
			repository.PropertyEquals{Name: PropertyName, Value: StripSentinel(name)},
		},
	}
	return stmt.String()
}

// Resolve queries the repository for name.
func (r *QueryResolver) Resolve(ctx context.Context, name string) (cache.Location, error) {
	r.logger.Debug(ctx, "resolving transformation", observe.F("name", EscapeName(name)))

	session, err := r.opener.OpenServiceSession(ctx)
	if err != nil {
		return cache.Location{}, fmt.Errorf("%w: %w", ErrAccessFailure, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.logger.Warn(ctx, "service session close failed", observe.F("error", err.Error()))
		}
	}()

	it, err := session.Find(ctx, r.Statement(name), repository.LanguageSQL2)
	if err != nil {
		return cache.Location{}, fmt.Errorf("transform: query %q: %w", name, err)
	}

	best, bestRank := "", 0
	for it.Next() {
		n := it.Node()
		rank := r.rank(n.Path)
		if best == "" || rank < bestRank {
			best, bestRank = n.Path, rank
		}
	}
	if err := it.Err(); err != nil {
		return cache.Location{}, fmt.Errorf("transform: query %q: %w", name, err)
	}

	if best == "" {
		r.logger.Debug(ctx, "transformation not found", observe.F("name", EscapeName(name)))
		return cache.Absent(), nil
	}
	r.logger.Debug(ctx, "found transformation", observe.F("name", EscapeName(name)), observe.F("path", best))
	return cache.Present(best), nil
}

// rank returns the index of the first root containing path, or len(roots).
func (r *QueryResolver) rank(path string) int {
	for i, root := range r.roots {
		if repository.IsDescendant(root, path) {
			return i
		}
	}
	return len(r.roots)
}

var _ cache.Resolver = (*QueryResolver)(nil)
