package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir           = "data_dir"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedRPS          = "embedding.requests_per_second"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMTimeout        = "llm.timeout"
	keyLLMFallbackURL    = "llm.fallback_url"
	keyChunkMaxChars     = "chunking.max_chars"
	keyChunkOverlap      = "chunking.overlap_chars"
	keyCorpusRoot        = "corpus.root"
	keyCorpusSchemaDir   = "corpus.schema_dir"
	keyCorpusGitHubToken = "corpus.github_token"
	keyCorpusWatch       = "corpus.watch"
	keyVectorBackend     = "vector_index.backend"
	keyVectorDims        = "vector_index.dimensions"
	keyVectorDSN         = "vector_index.dsn"
	keyVectorMilvus      = "vector_index.milvus_address"
	keyVectorCollection  = "vector_index.collection"
	keyRetrievalTopK     = "retrieval.top_k"
	keyRetrievalTokens   = "retrieval.max_tokens"
	keyRetrievalAttempts = "retrieval.max_attempts"
	keyUploadMaxBytes    = "upload.max_file_bytes"
	keyUploadMaxChunks   = "upload.max_chunks"
	keyServerAddr        = "server.addr"
)

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindBool
	kindFloat
	kindDuration
)

// settingSpec describes how a key is parsed and validated by Set.
type settingSpec struct {
	kind  settingKind
	check func(v any) error
}

var settingSpecs = map[string]settingSpec{
	keyDataDir:           {kind: kindString},
	keyEmbedProvider:     {kind: kindString, check: checkEmbeddingProvider},
	keyEmbedModel:        {kind: kindString, check: nonEmpty},
	keyEmbedBaseURL:      {kind: kindString},
	keyEmbedAPIKey:       {kind: kindString},
	keyEmbedRPS:          {kind: kindFloat, check: nonNegativeFloat},
	keyLLMProvider:       {kind: kindString, check: checkLLMProvider},
	keyLLMModel:          {kind: kindString, check: nonEmpty},
	keyLLMBaseURL:        {kind: kindString},
	keyLLMAPIKey:         {kind: kindString},
	keyLLMTimeout:        {kind: kindDuration},
	keyLLMFallbackURL:    {kind: kindString},
	keyChunkMaxChars:     {kind: kindInt, check: positive},
	keyChunkOverlap:      {kind: kindInt, check: nonNegative},
	keyCorpusRoot:        {kind: kindString, check: nonEmpty},
	keyCorpusSchemaDir:   {kind: kindString},
	keyCorpusGitHubToken: {kind: kindString},
	keyCorpusWatch:       {kind: kindBool},
	keyVectorBackend:     {kind: kindString, check: checkVectorBackend},
	keyVectorDims:        {kind: kindInt, check: nonNegative},
	keyVectorDSN:         {kind: kindString},
	keyVectorMilvus:      {kind: kindString},
	keyVectorCollection:  {kind: kindString, check: nonEmpty},
	keyRetrievalTopK:     {kind: kindInt, check: positive},
	keyRetrievalTokens:   {kind: kindInt, check: positive},
	keyRetrievalAttempts: {kind: kindInt, check: positive},
	keyUploadMaxBytes:    {kind: kindInt, check: positive},
	keyUploadMaxChunks:   {kind: kindInt, check: positive},
	keyServerAddr:        {kind: kindString, check: nonEmpty},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current application settings, with environment overrides applied.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := s.stored()
	if err := s.applyEnv(settings); err != nil {
		return nil, err
	}
	if settings.Chunking.OverlapChars >= settings.Chunking.MaxChars {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidInput, settings.Chunking.OverlapChars, settings.Chunking.MaxChars)
	}
	return settings, nil
}

// stored reads the config file values over the defaults.
func (s *SettingsService) stored() *domain.AppSettings {
	defaults := domain.DefaultAppSettings()

	return &domain.AppSettings{
		DataDir: s.configStore.GetString(keyDataDir),
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.getString(keyEmbedBaseURL, defaults.Embedding.BaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:       s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:     s.getString(keyLLMBaseURL, defaults.LLM.BaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Timeout:     s.getDuration(keyLLMTimeout, defaults.LLM.Timeout),
			FallbackURL: s.getString(keyLLMFallbackURL, defaults.LLM.FallbackURL),
		},
		Chunking: domain.ChunkSettings{
			MaxChars:     s.getInt(keyChunkMaxChars, defaults.Chunking.MaxChars),
			OverlapChars: s.getIntAllowZero(keyChunkOverlap, defaults.Chunking.OverlapChars),
		},
		Corpus: domain.CorpusSettings{
			Root:        s.getString(keyCorpusRoot, defaults.Corpus.Root),
			SchemaDir:   s.getString(keyCorpusSchemaDir, defaults.Corpus.SchemaDir),
			GitHubToken: s.configStore.GetString(keyCorpusGitHubToken),
			Watch:       s.getBool(keyCorpusWatch, defaults.Corpus.Watch),
		},
		VectorIndex: domain.VectorIndexSettings{
			Backend:       s.getBackend(defaults.VectorIndex.Backend),
			Dimensions:    s.getInt(keyVectorDims, defaults.VectorIndex.Dimensions),
			DSN:           s.configStore.GetString(keyVectorDSN),
			MilvusAddress: s.configStore.GetString(keyVectorMilvus),
			Collection:    s.getString(keyVectorCollection, defaults.VectorIndex.Collection),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:        s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			MaxTokens:   s.getInt(keyRetrievalTokens, defaults.Retrieval.MaxTokens),
			MaxAttempts: s.getInt(keyRetrievalAttempts, defaults.Retrieval.MaxAttempts),
		},
		Upload: domain.UploadSettings{
			MaxFileBytes: int64(s.getInt(keyUploadMaxBytes, int(defaults.Upload.MaxFileBytes))),
			MaxChunks:    s.getInt(keyUploadMaxChunks, defaults.Upload.MaxChunks),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
	}
}

// applyEnv overlays environment variables on settings.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) error {
	env := func(name string) (string, bool) {
		v, ok := s.lookupEnv(name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	envInt := func(name string, dst *int) error {
		v, ok := env(name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidInput, name, v)
		}
		*dst = n
		return nil
	}

	if v, ok := env("OLLAMA_URL"); ok {
		if settings.LLM.Provider == domain.AIProviderOllama {
			settings.LLM.BaseURL = v
		}
		if settings.Embedding.Provider == domain.AIProviderOllama {
			settings.Embedding.BaseURL = v
		}
	}
	if v, ok := env("OLLAMA_MODEL"); ok && settings.LLM.Provider == domain.AIProviderOllama {
		settings.LLM.Model = v
	}
	if v, ok := env("LLM_TIMEOUT"); ok {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: LLM_TIMEOUT=%q: %v", domain.ErrInvalidInput, v, err)
		}
		settings.LLM.Timeout = d
	}
	if v, ok := env("TGI_URL"); ok {
		if settings.LLM.Provider == domain.AIProviderTGI {
			settings.LLM.BaseURL = v
		} else {
			settings.LLM.FallbackURL = v
		}
	}
	if err := envInt("CHUNK_MAX_CHARS", &settings.Chunking.MaxChars); err != nil {
		return err
	}
	if err := envInt("CHUNK_OVERLAP_CHARS", &settings.Chunking.OverlapChars); err != nil {
		return err
	}
	if v, ok := env("EMBEDDING_MODEL"); ok {
		settings.Embedding.Model = v
	}
	if v, ok := env("VECTOR_BACKEND"); ok {
		b := domain.VectorBackend(strings.ToLower(v))
		if !b.IsValid() {
			return fmt.Errorf("%w: VECTOR_BACKEND=%q", domain.ErrInvalidInput, v)
		}
		settings.VectorIndex.Backend = b
	}
	if v, ok := env("DATABASE_URL"); ok {
		settings.VectorIndex.DSN = v
	}
	if v, ok := env("MILVUS_ADDRESS"); ok {
		settings.VectorIndex.MilvusAddress = v
	}
	if v, ok := env("CODEBASE_ROOT"); ok {
		settings.Corpus.Root = v
	}
	if v, ok := env("SCHEMA_DIR"); ok {
		settings.Corpus.SchemaDir = v
	}
	if v, ok := env("DATA_DIR"); ok {
		settings.DataDir = v
	}
	if v, ok := env("GITHUB_TOKEN"); ok && settings.Corpus.GitHubToken == "" {
		settings.Corpus.GitHubToken = v
	}
	if v, ok := env("OPENAI_API_KEY"); ok {
		if settings.LLM.Provider == domain.AIProviderOpenAI && settings.LLM.APIKey == "" {
			settings.LLM.APIKey = v
		}
		if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
			settings.Embedding.APIKey = v
		}
	}
	if v, ok := env("ANTHROPIC_API_KEY"); ok &&
		settings.LLM.Provider == domain.AIProviderAnthropic && settings.LLM.APIKey == "" {
		settings.LLM.APIKey = v
	}
	return nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings.Chunking.OverlapChars >= settings.Chunking.MaxChars {
		return fmt.Errorf("%w: chunk overlap must be smaller than chunk size", domain.ErrInvalidInput)
	}

	values := []struct {
		key   string
		value any
	}{
		{keyDataDir, settings.DataDir},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTimeout, settings.LLM.Timeout.String()},
		{keyLLMFallbackURL, settings.LLM.FallbackURL},
		{keyChunkMaxChars, settings.Chunking.MaxChars},
		{keyChunkOverlap, settings.Chunking.OverlapChars},
		{keyCorpusRoot, settings.Corpus.Root},
		{keyCorpusSchemaDir, settings.Corpus.SchemaDir},
		{keyCorpusWatch, settings.Corpus.Watch},
		{keyVectorBackend, settings.VectorIndex.Backend.String()},
		{keyVectorDims, settings.VectorIndex.Dimensions},
		{keyVectorDSN, settings.VectorIndex.DSN},
		{keyVectorMilvus, settings.VectorIndex.MilvusAddress},
		{keyVectorCollection, settings.VectorIndex.Collection},
		{keyRetrievalTopK, settings.Retrieval.TopK},
		{keyRetrievalTokens, settings.Retrieval.MaxTokens},
		{keyRetrievalAttempts, settings.Retrieval.MaxAttempts},
		{keyUploadMaxBytes, int(settings.Upload.MaxFileBytes)},
		{keyUploadMaxChunks, settings.Upload.MaxChunks},
		{keyServerAddr, settings.Server.Addr},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Secrets are only written when set.
	secrets := map[string]string{
		keyEmbedAPIKey:       settings.Embedding.APIKey,
		keyLLMAPIKey:         settings.LLM.APIKey,
		keyCorpusGitHubToken: settings.Corpus.GitHubToken,
	}
	for key, value := range secrets {
		if value == "" {
			continue
		}
		if err := s.configStore.Set(key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// Set validates and stores a single dot-notation key.
func (s *SettingsService) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	spec, ok := settingSpecs[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := spec.parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	if spec.check != nil {
		if err := spec.check(parsed); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
		}
	}

	if key == keyChunkMaxChars || key == keyChunkOverlap {
		current := s.stored().Chunking
		if key == keyChunkMaxChars {
			current.MaxChars = parsed.(int)
		} else {
			current.OverlapChars = parsed.(int)
		}
		if current.OverlapChars >= current.MaxChars {
			return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
				domain.ErrInvalidInput, current.OverlapChars, current.MaxChars)
		}
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every settable key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingSpecs))
	for k := range settingSpecs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Defaults returns the built-in settings, without file or environment values.
func (s *SettingsService) Defaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// PingEmbedding builds the configured embedding backend and checks it answers.
func (s *SettingsService) PingEmbedding() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// PingLLM builds the configured LLM backend and checks it answers.
func (s *SettingsService) PingLLM() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func (spec settingSpec) parse(value string) (any, error) {
	switch spec.kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindBool:
		return strconv.ParseBool(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindDuration:
		d, err := parseDuration(value)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, fmt.Errorf("duration must be positive")
		}
		return d.String(), nil
	default:
		return value, nil
	}
}

// parseDuration accepts Go durations ("10m") or a plain number of seconds.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

func checkEmbeddingProvider(v any) error {
	p := domain.AIProvider(v.(string))
	if !slices.Contains(domain.AllEmbeddingProviders(), p) {
		return fmt.Errorf("provider %q does not support embeddings", p)
	}
	return nil
}

func checkLLMProvider(v any) error {
	p := domain.AIProvider(v.(string))
	if !slices.Contains(domain.AllLLMProviders(), p) {
		return fmt.Errorf("invalid LLM provider %q", p)
	}
	return nil
}

func checkVectorBackend(v any) error {
	if !domain.VectorBackend(v.(string)).IsValid() {
		return fmt.Errorf("invalid vector backend %q", v)
	}
	return nil
}

func nonEmpty(v any) error {
	if v.(string) == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

func positive(v any) error {
	if v.(int) <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func nonNegative(v any) error {
	if v.(int) < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func nonNegativeFloat(v any) error {
	if v.(float64) < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero treats an explicit 0 as a value rather than as unset.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		if secs := s.configStore.GetInt(key); secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return defaultVal
	}
	d, err := parseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
