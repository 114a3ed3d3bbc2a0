// Package cache memoizes transformation name resolution.
//
// A NameCache maps a caller-supplied name to a Location: either the repository
// path the name resolved to, or a confirmed absence. Misses are resolved lazily
// through a Resolver; the whole map is discarded by InvalidateAll when content
// changes or a periodic tick fires.
//
// Reads of cached names never wait on a resolution in progress. A resolution
// that overlaps an invalidation hands its result to the caller but does not
// publish it into the cleared map.
package cache
