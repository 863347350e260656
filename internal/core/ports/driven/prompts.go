package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations return the built-in default
	// or an error when no default exists.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptCodeGen asks for a JSON code generation result.
	// The template expects %s placeholders for the context and the instruction.
	PromptCodeGen = "codegen"

	// PromptAnswer asks for an answer grounded in the supplied context.
	// The template expects %s placeholders for the context, the question and
	// the not-in-context sentence.
	PromptAnswer = "answer"
)
