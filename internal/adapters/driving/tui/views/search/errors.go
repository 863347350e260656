package search

import "errors"

// ErrNoCorpusService is reported when a search runs without a corpus.
var ErrNoCorpusService = errors.New("corpus service is required")
