// Package file keeps configuration and prompt templates as plain files in
// the data directory (~/.codeassist by default).
//
// ConfigStore reads config.toml, or config.yaml when that file exists, and
// exposes it as flat dot-notation keys. PromptStore serves prompts/*.txt and
// writes the built-in templates there on first use so they can be edited.
package file
