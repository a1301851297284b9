package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ebook-rag/internal/config"
	"ebook-rag/internal/helper"
	"ebook-rag/internal/llmservice"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
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

	if cfg.ChatLLM.Key == "" {
		log.Fatal().Str("env", cfg.ChatLLM.KeyEnv).Msg("Chat model key is missing")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ids, err := llmservice.ListModels(ctx, &cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing models")
	}
	for _, id := range ids {
		fmt.Printf("- %s\n", id)
	}
}
