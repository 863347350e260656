// Package cli is the cobra command tree of the codeassist binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Services holds the driving ports the commands call.
// Everything but Corpus is optional; commands report when theirs is missing.
type Services struct {
	Corpus     driving.CorpusService
	Document   driving.DocumentService
	Query      driving.QueryService
	Generation driving.GenerationService
	Settings   driving.SettingsService

	// Watch follows corpus changes until ctx ends. Nil when the source cannot be watched.
	Watch func(ctx context.Context) error

	// Close releases the resources behind the services.
	Close func()
}

// BootstrapFunc builds the services for a config directory. An empty
// configDir means the default.
type BootstrapFunc func(ctx context.Context, configDir string) (*Services, error)

var (
	corpusService     driving.CorpusService
	documentService   driving.DocumentService
	queryService      driving.QueryService
	generationService driving.GenerationService
	settingsService   driving.SettingsService
	watchCorpus       func(ctx context.Context) error
	closeServices     func()

	bootstrap BootstrapFunc
)

var (
	verbose   bool
	configDir string
)

// skipBootstrap marks commands that never touch a service.
const skipBootstrap = "codeassist/skip-bootstrap"

var rootCmd = &cobra.Command{
	Use:   "codeassist",
	Short: "Retrieval-augmented assistant for your codebase",
	Long: `codeassist indexes a codebase and uploaded text documents into a vector
index and uses them to answer questions and generate code with an LLM.

Run 'codeassist settings show' to check which providers are configured.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
	PersistentPostRun: func(_ *cobra.Command, _ []string) { Shutdown() },
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.codeassist)")
}

func persistentPreRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[skipBootstrap] == "true" || bootstrap == nil || corpusService != nil {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := bootstrap(ctx, configDir)
	if err != nil {
		return fmt.Errorf("starting codeassist: %w", err)
	}
	SetServices(svc)
	return nil
}

// SetServices installs the services used by every command.
func SetServices(svc *Services) {
	if svc == nil {
		svc = &Services{}
	}
	corpusService = svc.Corpus
	documentService = svc.Document
	queryService = svc.Query
	generationService = svc.Generation
	settingsService = svc.Settings
	watchCorpus = svc.Watch
	closeServices = svc.Close
}

// SetBootstrap registers the function that builds services on first use.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Shutdown releases the services installed by the bootstrap. It is safe to
// call more than once.
func Shutdown() {
	if closeServices != nil {
		closeServices()
		closeServices = nil
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func requireCorpus() error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}
	return nil
}
