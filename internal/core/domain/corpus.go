package domain

// SourceFile is a single text file yielded by a corpus source.
type SourceFile struct {
	// RelPath is the slash-separated path relative to the corpus root.
	RelPath string

	// Content is the decoded text with invalid UTF-8 removed.
	Content string
}

// FileHeader returns the one-line header prepended to file content before
// chunking so that retrieved fragments name their file.
func FileHeader(relPath string) string {
	return "File: " + relPath + "\n\n"
}
