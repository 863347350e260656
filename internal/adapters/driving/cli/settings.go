package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, the vector backend and other options.

Settings are stored in config.toml inside the config directory. Environment
variables such as OLLAMA_URL or VECTOR_BACKEND override stored values.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting using its dot-notation key, for example:

  codeassist settings set llm.model llama3
  codeassist settings set chunking.max_chars 1500
  codeassist settings set vector_index.backend pgvector

Run 'codeassist settings keys' for every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure providers and the vector backend step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used for indexing and retrieval.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used for answers and code generation.`,
	RunE:  runSettingsLLM,
}

var settingsBackendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Select the vector backend",
	RunE:  runSettingsBackend,
}

// stdin is the reader used by interactive prompts.
var stdin io.Reader = os.Stdin

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsBackendCmd)
	rootCmd.AddCommand(settingsCmd)
}

func requireSettings() error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	p := newPrinter(cmd)
	cmd.Println(p.Title("Current Settings"))
	cmd.Println()

	// Embedding settings
	cmd.Println(p.Label("[Embedding]"))
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	printAPIKey(cmd, settings.Embedding.Provider, settings.Embedding.APIKey)
	printStatus(cmd, p, settings.Embedding.IsConfigured())
	cmd.Println()

	// LLM settings
	cmd.Println(p.Label("[LLM]"))
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	printAPIKey(cmd, settings.LLM.Provider, settings.LLM.APIKey)
	cmd.Printf("  Timeout: %s\n", settings.LLM.Timeout)
	if settings.LLM.FallbackURL != "" {
		cmd.Printf("  Fallback (TGI): %s\n", settings.LLM.FallbackURL)
	}
	printStatus(cmd, p, settings.LLM.IsConfigured())
	cmd.Println()

	// Vector index settings
	cmd.Println(p.Label("[Vector Index]"))
	cmd.Printf("  Backend: %s\n", settings.VectorIndex.Backend.Description())
	switch settings.VectorIndex.Backend {
	case domain.VectorBackendPgvector:
		cmd.Printf("  DSN: %s\n", orNotSet(settings.VectorIndex.DSN))
	case domain.VectorBackendMilvus:
		cmd.Printf("  Address: %s\n", orNotSet(settings.VectorIndex.MilvusAddress))
	case domain.VectorBackendSQLite, domain.VectorBackendMemory:
	}
	if settings.VectorIndex.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", settings.VectorIndex.Dimensions)
	}
	cmd.Println()

	cmd.Println(p.Label("[Corpus]"))
	cmd.Printf("  Root: %s\n", settings.Corpus.Root)
	cmd.Printf("  Schema dir: %s\n", orNotSet(settings.Corpus.SchemaDir))
	cmd.Printf("  Chunking: %d chars, %d overlap\n", settings.Chunking.MaxChars, settings.Chunking.OverlapChars)
	cmd.Printf("  Watch: %t\n", settings.Corpus.Watch)
	cmd.Println()

	cmd.Println(p.Label("[Retrieval]"))
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Max tokens: %d\n", settings.Retrieval.MaxTokens)
	cmd.Printf("  Max attempts: %d\n", settings.Retrieval.MaxAttempts)

	return nil
}

func printAPIKey(cmd *cobra.Command, provider domain.AIProvider, key string) {
	if !provider.RequiresAPIKey() {
		return
	}
	if key != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(key))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
}

func printStatus(cmd *cobra.Command, p *printer, configured bool) {
	if configured {
		cmd.Printf("  Status: %s\n", p.OK("configured"))
		return
	}
	cmd.Printf("  Status: %s\n", p.Warn("not configured"))
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	key := strings.ToLower(args[0])
	if err := settingsService.Set(key, args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	value := args[1]
	if strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "token") || strings.HasSuffix(key, "dsn") {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	p := newPrinter(cmd)
	cmd.Println(p.Title("codeassist Settings Wizard"))
	cmd.Println()

	reader := bufio.NewReader(stdin)

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 2: LLM Provider")
	cmd.Println("--------------------")
	if err := configureLLMProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 3: Vector Backend")
	cmd.Println("----------------------")
	if err := configureBackend(cmd, reader); err != nil {
		return err
	}

	cmd.Println(p.OK("Configuration complete."))
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(stdin))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	return configureLLMProvider(cmd, bufio.NewReader(stdin))
}

func runSettingsBackend(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	return configureBackend(cmd, bufio.NewReader(stdin))
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	provider, model, apiKey, err := pickProvider(cmd, reader,
		domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels())
	if err != nil {
		return err
	}

	if err := setAll(
		"embedding.provider", provider.String(),
		"embedding.model", model,
		"embedding.api_key", apiKey,
	); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.PingEmbedding(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	provider, model, apiKey, err := pickProvider(cmd, reader,
		domain.AllLLMProviders(), domain.DefaultLLMModels())
	if err != nil {
		return err
	}

	if err := setAll(
		"llm.provider", provider.String(),
		"llm.model", model,
		"llm.api_key", apiKey,
	); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.PingLLM(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

func configureBackend(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Vector Backend")
	backends := domain.AllVectorBackends()
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	backend := backends[parseChoice(readLine(reader), len(backends), 1)-1]

	pairs := []string{"vector_index.backend", backend.String()}
	switch backend {
	case domain.VectorBackendPgvector:
		cmd.Print("Enter PostgreSQL URL: ")
		pairs = append(pairs, "vector_index.dsn", readLine(reader))
	case domain.VectorBackendMilvus:
		cmd.Print("Enter Milvus address [localhost:19530]: ")
		addr := readLine(reader)
		if addr == "" {
			addr = "localhost:19530"
		}
		pairs = append(pairs, "vector_index.milvus_address", addr)
	case domain.VectorBackendSQLite, domain.VectorBackendMemory:
	}

	if err := setAll(pairs...); err != nil {
		return fmt.Errorf("failed to set vector backend: %w", err)
	}
	cmd.Printf("Vector backend set to: %s\n\n", backend.Description())
	return nil
}

// pickProvider prompts for a provider, a model and, when needed, an API key.
func pickProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) (domain.AIProvider, string, string, error) {
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	defaultModel := defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return "", "", "", errors.New("API key is required for this provider")
		}
	}
	return provider, model, apiKey, nil
}

// setAll stores key/value pairs in order, skipping empty values.
func setAll(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		if err := settingsService.Set(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func readPassword(reader *bufio.Reader) string {
	// Try to read password without echo
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
