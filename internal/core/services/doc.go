// Package services holds the core of the assistant: the corpus indexer,
// the retrieval-backed query and generation orchestrators, the document
// service behind uploads and the settings service. Each implements a
// driving port and talks to storage, models and indexes only through
// driven ports.
package services
