// Package connectors provides the corpus sources the indexer reads from.
// Each source lives in its own subpackage (filesystem, github) and applies
// the shared ignore rules defined here.
package connectors
