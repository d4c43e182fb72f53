package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	cfgPkg "github.com/xhad/tome/pkg/config"
	"github.com/xhad/tome/pkg/chunker"
	"github.com/xhad/tome/pkg/extract"
	"github.com/xhad/tome/pkg/llm"
	"github.com/xhad/tome/pkg/rag"
	"github.com/xhad/tome/pkg/store"
	"github.com/xhad/tome/server"
)

type cliOptions struct {
	configPath   string
	serve        bool
	tenantID     string
	createTenant string
	k            int
}

func main() {
	// Local development convenience; missing .env is fine
	_ = godotenv.Load()

	opts := parseFlags()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() cliOptions {
	var opts cliOptions

	flag.StringVar(&opts.configPath, "config", "", "Path to config file")
	flag.BoolVar(&opts.serve, "serve", false, "Run the HTTP API server")
	flag.StringVar(&opts.tenantID, "tenant", "", "Tenant ID for ingest and chat")
	flag.StringVar(&opts.createTenant, "create-tenant", "", "Create a tenant with the given name and exit")
	flag.IntVar(&opts.k, "k", 5, "Number of chunks to retrieve per question")
	flag.Parse()

	return opts
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(opts cliOptions) error {
	cfg, err := cfgPkg.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:     cfg.LLM.EmbedModel,
		BaseURL:   cfg.LLM.BaseURL,
		VectorDim: cfg.Database.VectorDim,
		BatchSize: cfg.Database.EmbedBatchSize,
		RateLimit: cfg.Database.EmbedRateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.ChatModel,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		BaseURL:     cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString:    cfg.Database.URL,
		VectorDim:     cfg.Database.VectorDim,
		SearchLimit:   cfg.Database.SearchLimit,
		MinSimilarity: cfg.Database.MinSimilarity,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	pipeline := rag.NewPipeline(
		rag.PipelineConfig{SearchLimit: cfg.Database.SearchLimit},
		extract.New(),
		chunker.NewWithConfig(chunker.ChunkerConfig{
			ChunkSize:    cfg.Chunker.ChunkSize,
			ChunkOverlap: cfg.Chunker.ChunkOverlap,
		}),
		embedder,
		chatEngine,
		vectorStore,
	)

	if opts.serve {
		return server.New(pipeline, chatEngine).ListenAndServe(cfg.Server.Port)
	}

	ctx := context.Background()

	if opts.createTenant != "" {
		tenant, err := pipeline.CreateTenant(ctx, opts.createTenant)
		if err != nil {
			return err
		}
		color.Green("✓ Created tenant %q with ID %s\n", tenant.Name, tenant.ID)
		return nil
	}

	if opts.tenantID == "" {
		return fmt.Errorf("a tenant is required: pass -tenant, or -create-tenant to make one")
	}

	// Remaining arguments are PDF files to ingest
	if files := flag.Args(); len(files) > 0 {
		bar := getProgressBar(len(files), "📄 Ingesting documents...")

		for _, path := range files {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %v", path, err)
			}

			result, err := pipeline.Ingest(ctx, opts.tenantID, path, content)
			if err != nil {
				color.Red("\n✗ %s: 0 chunks stored, reason: %v\n", path, err)
				bar.Add(1)
				continue
			}

			bar.Add(1)
			if result.ChunkCount == 0 {
				color.Yellow("\n! %s contained no extractable text, skipped\n", path)
			} else {
				color.Green("\n✓ %s stored as %d chunks\n", path, result.ChunkCount)
			}
		}
		bar.Finish()
	}

	// Interactive chat loop
	color.Cyan("\nChat with your knowledge base (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.ToLower(question) == "exit" {
			break
		}

		spinner := getSpinner("🔍 Searching the knowledge base...")
		result, err := pipeline.AnswerQuery(ctx, opts.tenantID, question, opts.k)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		assistantPrompt("Assistant: %s\n", result.Answer)
		if len(result.Sources) > 0 {
			color.Blue("Sources: %s\n", strings.Join(result.Sources, ", "))
		}
	}

	return nil
}
