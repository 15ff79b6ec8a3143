// recall is a memory-augmented chat CLI for a locally running model server.
//
// Run without arguments it checks prerequisites, builds a small sample
// memory store, demonstrates a search, and offers an interactive chat
// session in which answers are grounded in retrieved memory fragments.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/becomeliminal/recall-go/config"
	"github.com/becomeliminal/recall-go/llm"
	"github.com/becomeliminal/recall-go/llm/anthropic"
	"github.com/becomeliminal/recall-go/llm/ollama"
	"github.com/becomeliminal/recall-go/logger"
)

var (
	flagConfig     string
	flagEndpoint   string
	flagModel      string
	flagEmbedModel string
	flagDataDir    string
	flagProvider   string
	flagDebug      bool

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Chat with a local model grounded in your own memory store",
	Long: `recall stores text as a searchable memory (an opaque archive plus a
JSON index) and answers questions by retrieving relevant fragments and
streaming a local model's response.

Without a subcommand it runs the full demonstration: prerequisite check,
sample memory build, a search, and an interactive chat session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}

		// Flags override the config file.
		if flagEndpoint != "" {
			cfg.Endpoint = flagEndpoint
		}
		if flagModel != "" {
			cfg.Model = flagModel
		}
		if flagEmbedModel != "" {
			cfg.EmbedModel = flagEmbedModel
		}
		if flagDataDir != "" {
			cfg.DataDir = flagDataDir
		}

		log = logger.New(flagDebug)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
	RunE: runDemo,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "model server base URL (default http://localhost:11434)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "generation model (default llama2)")
	rootCmd.PersistentFlags().StringVar(&flagEmbedModel, "embed-model", "", "embedding model (default nomic-embed-text)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory for memory store artifacts (default ~/.recall)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "ollama", "generation backend: ollama or anthropic")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
}

// newGenerator returns the generation backend selected by --provider.
// Embeddings and discovery always go through the Ollama client; only the
// generation side is swappable.
func newGenerator(client *ollama.Client) (llm.Generator, error) {
	switch flagProvider {
	case "", "ollama":
		return client, nil
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("provider anthropic requires ANTHROPIC_API_KEY to be set")
		}
		return anthropic.New(apiKey), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want ollama or anthropic)", flagProvider)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
