// Package repository defines the hierarchical content repository used to store
// transformation definitions.
//
// A Repository hands out Sessions bound to an authenticated identity. Sessions
// read nodes and run JCR-SQL2 queries whose results arrive through a lazy,
// single-pass NodeIterator. Store implements Repository over a pluggable
// Backend and publishes a change event for every write.
package repository
