package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/recall-go/llm/ollama"
	"github.com/becomeliminal/recall-go/memory"
	ollamaembed "github.com/becomeliminal/recall-go/memory/embedder/ollama"
)

var (
	flagBuildInput string
	flagBuildName  string
	flagChunkSize  int
	flagOverlap    int
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Encode a text file into a named memory store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(flagBuildInput)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return fmt.Errorf("input file %s is empty", flagBuildInput)
		}

		name := flagBuildName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(flagBuildInput), filepath.Ext(flagBuildInput))
		}

		client := ollama.New(cfg.Endpoint, ollama.WithLogger(log))
		embedder, err := ollamaembed.New(client, cfg.EmbedModel, ollamaembed.WithLogger(log))
		if err != nil {
			return err
		}
		defer embedder.Close()

		encoder := memory.NewEncoder(embedder, &memory.EncoderConfig{
			ChunkSize:  flagChunkSize,
			Overlap:    flagOverlap,
			EmbedModel: cfg.EmbedModel,
		}, memory.WithEncoderLogger(log))
		encoder.AddText(string(data))

		archivePath := cfg.ArchivePath(name)
		indexPath := cfg.IndexPath(name)
		if err := encoder.Build(ctx, archivePath, indexPath); err != nil {
			return err
		}

		fmt.Printf("Memory store %q built (%d chunks):\n  archive: %s\n  index:   %s\n",
			name, encoder.ChunkCount(), archivePath, indexPath)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&flagBuildInput, "input", "i", "", "text file to encode (required)")
	buildCmd.Flags().StringVarP(&flagBuildName, "name", "n", "", "store name (default: input file basename)")
	buildCmd.Flags().IntVar(&flagChunkSize, "chunk-size", 200, "target chunk size in characters")
	buildCmd.Flags().IntVar(&flagOverlap, "overlap", 30, "characters carried between chunks")
	buildCmd.MarkFlagRequired("input")
}
