package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"simsearch/internal/config"
	"simsearch/internal/domain"
	"simsearch/internal/embedding"
	"simsearch/internal/service"
	"simsearch/internal/splitter"
	"simsearch/internal/tui"
)

const previewRunes = 200

func main() {
	_ = godotenv.Load()

	var cfgPath, indexPath string
	var minScore float64
	var maxResults int
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/simsearch/config.yaml if not provided)")
	flag.StringVar(&indexPath, "index", "", "Index artifact path (overrides config)")
	flag.Float64Var(&minScore, "min-score", -1, "Minimum similarity score in [0, 1] (default from config)")
	flag.IntVar(&maxResults, "max-results", 0, "Maximum number of results to consider (default from config)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if indexPath == "" {
		indexPath = cfg.Index.Path
	}
	if minScore < 0 {
		minScore = cfg.Query.MinScore
	}
	if maxResults <= 0 {
		maxResults = cfg.Query.MaxResults
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}
	sp, err := splitter.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		log.Fatalf("invalid chunking config: %v", err)
	}

	eng := service.New(sp, emb, service.Options{
		BatchSize: cfg.Embedder.BatchSize,
		Workers:   cfg.Embedder.Workers,
	})
	if err := eng.LoadIndex(indexPath); err != nil {
		log.Fatalf("failed to load index from %s: %v", indexPath, err)
	}

	if args := flag.Args(); len(args) > 0 {
		runQuery(eng, strings.Join(args, " "), minScore, maxResults)
		return
	}

	m := tui.New(eng, minScore, maxResults)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

func runQuery(eng *service.Engine, query string, minScore float64, maxResults int) {
	results, err := eng.Query(context.Background(), query, minScore, maxResults)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}
	fmt.Printf("Found %d results with score >= %.2f for %q\n", len(results), minScore, query)
	for i, r := range results {
		fmt.Printf("\n--- Result %d (Score: %.2f) ---\n", i+1, r.Score)
		fmt.Printf("Source: %s, Page: %d\n", r.Source, r.Page)
		fmt.Printf("Text: %s\n", preview(r.Text))
	}
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes]) + "..."
}

func newEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hash", "":
		dim := 0
		if cfg.Embedder.Hash != nil {
			dim = cfg.Embedder.Hash.Dimension
		}
		return embedding.NewHashEmbedder(dim), nil
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			oc = &config.OpenAIEmbedderConfig{}
		}
		return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}
