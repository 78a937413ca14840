package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"simsearch/internal/config"
	"simsearch/internal/domain"
	"simsearch/internal/embedding"
	"simsearch/internal/loader"
	"simsearch/internal/service"
	"simsearch/internal/splitter"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, outPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/simsearch/config.yaml if not provided)")
	flag.StringVar(&outPath, "out", "", "Index artifact path (overrides config)")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: simsearch-build [--config=config.yaml] [--out=index.bin] file1.txt [file2.txt ...]")
		os.Exit(1)
	}

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

	emb, err := newEmbedder(cfg)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}
	sp, err := splitter.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		log.Fatalf("invalid chunking config: %v", err)
	}

	docs, err := loader.LoadPaths(inputs)
	if err != nil {
		log.Fatalf("load failed: %v", err)
	}

	var bar *progressbar.ProgressBar
	eng := service.New(sp, emb, service.Options{
		BatchSize: cfg.Embedder.BatchSize,
		Workers:   cfg.Embedder.Workers,
		Progress: func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription("embedding"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(done)
		},
	})

	if err := eng.BuildIndex(context.Background(), docs); err != nil {
		log.Fatalf("build failed: %v", err)
	}
	path := outPath
	if path == "" {
		path = cfg.Index.Path
	}
	if err := eng.SaveIndex(path); err != nil {
		log.Fatalf("save failed: %v", err)
	}
	fmt.Printf("Indexed %d chunks from %d documents into %s\n", eng.Size(), len(docs), path)
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
