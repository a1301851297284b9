package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ebook-rag/internal/app"
	"ebook-rag/internal/config"
	"ebook-rag/internal/helper"
	"ebook-rag/internal/parser"
	"ebook-rag/internal/rag"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	filePath := flag.String("file", "data/Ebook-Agentic-AI.pdf", "Path to the PDF to index")
	indexName := flag.String("index", "rag-pdf", "Name of the vector index")
	dryRun := flag.Bool("dry-run", false, "Chunk and print the result without embedding or storing")
	reset := flag.Bool("reset", false, "Drop existing records before indexing")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	closer, err := helper.SetupLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Error setting up logger")
	}
	defer closer.Close()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "index" {
			cfg.VectorDB.IndexName = *indexName
		}
	})
	log.Debug().Interface("rag", cfg.RAG).Str("vector_db", cfg.VectorDB.Type).Str("index", cfg.VectorDB.IndexName).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	load := func(path string) (string, error) { return parser.LoadPDF(path, cfg.RAG.MinPageChars) }
	chunker := parser.NewChunker(&cfg.RAG)

	if *dryRun {
		chunks, err := rag.NewIndexer(load, chunker, nil, nil, true).IndexPDF(ctx, *filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error chunking document")
		}
		helper.PrettyPrint(chunks)
		return
	}

	store, err := app.OpenIndex(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector index")
	}
	defer store.Close()

	if *reset {
		if err := store.Reset(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error clearing index")
		}
	}

	embedder, err := app.NewEmbedder(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	chunks, err := rag.NewIndexer(load, chunker, embedder, store, false).IndexPDF(ctx, *filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error indexing document")
	}
	if err := store.Persist(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error exporting index")
	}

	log.Info().Str("file", *filePath).Str("index", cfg.VectorDB.IndexName).Int("chunks", len(chunks)).Msg("Indexed document")
}
