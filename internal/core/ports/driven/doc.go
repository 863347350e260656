// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - VectorIndex: Vector storage and top-K search (memory, SQLite, pgvector, Milvus)
//   - EmbeddingService: Text to vector (Ollama, OpenAI)
//   - LLMService: Prompt to text (Ollama, TGI, OpenAI, Anthropic)
//   - CorpusSource: Files to index (filesystem, GitHub)
//   - DocumentStore: Uploaded document registry
//   - ConfigStore: Application configuration
//   - PromptStore: Customisable prompt templates
//
// The LLM is optional: indexing and search work without it.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or postprocessor package
package driven
