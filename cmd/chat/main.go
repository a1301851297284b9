package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ebook-rag/internal/app"
	"ebook-rag/internal/chat"
	"ebook-rag/internal/config"
	"ebook-rag/internal/helper"
	"ebook-rag/internal/rag"
	"ebook-rag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	query := flag.String("query", "", "Answer one question and exit")
	transcript := flag.String("transcript", "", "Write an HTML transcript of the session to this file on exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	logFile := cfg.LogFile
	if *query == "" && logFile == "" {
		logFile = "logs/chat.log"
	}
	closer, err := helper.SetupLogger(cfg.LogLevel, logFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Error setting up logger")
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := app.OpenIndex(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector index")
	}
	defer store.Close()

	pipeline, err := app.NewPipeline(cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building pipeline")
	}
	graph, err := rag.NewPipelineGraph(pipeline)
	if err != nil {
		log.Fatal().Err(err).Msg("Error compiling pipeline graph")
	}
	session, err := chat.NewSession(graph)
	if err != nil {
		log.Fatal().Err(err).Msg("Error starting chat session")
	}

	if *query != "" {
		resp, err := session.Ask(ctx, *query)
		if err != nil {
			log.Fatal().Err(err).Msg("Error answering query")
		}
		fmt.Printf("%s\n\nConfidence: %.2f\n", resp.Answer, resp.Confidence)
		for i, c := range resp.Contexts {
			fmt.Printf("\n[%d] %s\n", i+1, c)
		}
	} else {
		title := fmt.Sprintf("Ebook QA  index=%s  model=%s", cfg.VectorDB.IndexName, cfg.ChatLLM.Model)
		if _, err := tea.NewProgram(tui.New(ctx, session, title), tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			log.Error().Err(err).Msg("Chat UI stopped")
		}
	}

	// Cancel a query still in flight after the UI quits before reading the history.
	stop()
	if *transcript != "" {
		writeTranscript(session, *transcript)
	}
}

func writeTranscript(session *chat.Session, path string) {
	f, err := os.Create(path)
	if err != nil {
		log.Error().Err(err).Msg("Error creating transcript")
		return
	}
	defer f.Close()
	if err := session.ExportHTML(f); err != nil {
		log.Error().Err(err).Msg("Error writing transcript")
		return
	}
	log.Info().Str("file", path).Int("messages", len(session.Messages())).Msg("Wrote transcript")
}
