package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/becomeliminal/recall-go/llm/ollama"
	"github.com/becomeliminal/recall-go/memory"
	ollamaembed "github.com/becomeliminal/recall-go/memory/embedder/ollama"
	"github.com/becomeliminal/recall-go/memory/store/chromem"
	"github.com/becomeliminal/recall-go/session"
)

// sampleStoreName is the store the demonstration builds and searches.
const sampleStoreName = "sample_memory"

// sampleContent seeds the demonstration memory store.
const sampleContent = `
Artificial intelligence is changing how people interact with technology.
Machine learning algorithms process large amounts of data to find patterns
and make predictions. Large language models can understand and generate
human-like text.

Ollama is a tool for running large language models locally on your own
machine. It supports models such as Llama 2, Code Llama, and Mistral. Local
inference enables privacy-focused applications that work without internet
connectivity.

Vector databases and semantic search let systems retrieve relevant
information from large text collections quickly. Retrieval augmented
generation builds on this: answers are grounded in fragments fetched from a
memory store rather than the model's weights alone.

recall persists a memory store as two artifacts, a compact binary archive
of text chunks and a JSON index with their embeddings, so a store can be
rebuilt, shared, and reopened cheaply.
`

const demoQuery = "Ollama and language models"

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fmt.Println("recall — memory-augmented local chat")
	fmt.Println(strings.Repeat("=", 40))

	client := ollama.New(cfg.Endpoint, ollama.WithLogger(log))

	// Prerequisite check: the server must be up and have at least one model.
	fmt.Println("Checking prerequisites...")
	models, err := client.Tags(ctx)
	if err != nil {
		fmt.Println("Cannot connect to the model server. Is it running? (ollama serve)")
		return err
	}
	if len(models) == 0 {
		fmt.Println("No models installed. Install one with: ollama pull llama2")
		return fmt.Errorf("model server has no models")
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	fmt.Printf("Model server is up. Available models: %s\n", strings.Join(names, ", "))

	// Build the sample store.
	fmt.Println("\nBuilding sample memory...")
	embedder, err := ollamaembed.New(client, cfg.EmbedModel, ollamaembed.WithLogger(log))
	if err != nil {
		return err
	}
	defer embedder.Close()

	archivePath := cfg.ArchivePath(sampleStoreName)
	indexPath := cfg.IndexPath(sampleStoreName)

	encoder := memory.NewEncoder(embedder, &memory.EncoderConfig{
		ChunkSize:  200,
		Overlap:    30,
		EmbedModel: cfg.EmbedModel,
	}, memory.WithEncoderLogger(log))
	encoder.AddText(sampleContent)
	if err := encoder.Build(ctx, archivePath, indexPath); err != nil {
		return fmt.Errorf("build sample memory: %w", err)
	}
	fmt.Printf("Sample memory created:\n  archive: %s\n  index:   %s\n", archivePath, indexPath)

	// Open it and demonstrate a search.
	index, err := chromem.New()
	if err != nil {
		return err
	}
	retriever, err := memory.Open(ctx, archivePath, indexPath, embedder, index, memory.WithRetrieverLogger(log))
	if err != nil {
		return err
	}
	defer retriever.Close()

	fmt.Printf("\nSearching for: %q\n", demoQuery)
	results, err := retriever.Search(ctx, demoQuery, cfg.SearchTopK)
	if err != nil {
		log.Warn("demo search failed", zap.Error(err))
	}
	printResults(results)

	if len(results) == 0 {
		fmt.Println("\nNo relevant fragments found; skipping chat.")
		return nil
	}
	fmt.Printf("\nFound %d relevant fragments.\n", len(results))

	if !confirm("Start a chat session? (y/n): ") {
		fmt.Println("\nDone. Your sample memory is saved under " + cfg.DataDir)
		return nil
	}

	fmt.Printf("\nChat session with %s\n", cfg.Model)
	fmt.Println("Commands: 'quit' to exit, 'search <query>' to search memory")
	fmt.Println(strings.Repeat("=", 50))

	gen, err := newGenerator(client)
	if err != nil {
		return err
	}
	chat := session.New(retriever, gen, &session.Config{
		Model:      cfg.Model,
		SearchTopK: cfg.SearchTopK,
		AskTopK:    cfg.AskTopK,
	}, session.WithLogger(log))
	if err := chat.Run(ctx); err != nil {
		return err
	}

	fmt.Println("\nDone. Your sample memory is saved under " + cfg.DataDir)
	return nil
}

// printResults writes numbered, bounded previews of search results.
func printResults(results []memory.Fragment) {
	for i, frag := range results {
		fmt.Printf("  %d. %s\n", i+1, session.Preview(frag.Text, 150))
	}
}

// confirm asks a yes/no question on stdin.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

// openStore opens a named store with a fresh index, shared by the search and
// serve commands.
func openStore(ctx context.Context, name string) (*memory.Retriever, *ollama.Client, error) {
	client := ollama.New(cfg.Endpoint, ollama.WithLogger(log))

	embedder, err := ollamaembed.New(client, cfg.EmbedModel, ollamaembed.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}

	index, err := chromem.New()
	if err != nil {
		return nil, nil, err
	}

	archivePath := cfg.ArchivePath(name)
	if _, err := os.Stat(archivePath); err != nil {
		return nil, nil, fmt.Errorf("no memory store named %q under %s (run 'recall build' or the root demo first)", name, cfg.DataDir)
	}

	retriever, err := memory.Open(ctx, archivePath, cfg.IndexPath(name), embedder, index, memory.WithRetrieverLogger(log))
	if err != nil {
		return nil, nil, err
	}
	return retriever, client, nil
}
