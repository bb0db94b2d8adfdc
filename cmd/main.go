package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"document-chat/internal/chromemdb"
	"document-chat/internal/config"
	"document-chat/internal/embedding"
	"document-chat/internal/extractor"
	"document-chat/internal/helper"
	"document-chat/internal/llmservice"
	"document-chat/internal/rag"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	ingest := flag.Bool("ingest", false, "Ingest the PDF file(s) given as arguments")
	query := flag.String("query", "", "Question to answer from the indexed documents")
	topK := flag.Int("top-k", 0, "Number of context chunks to retrieve (0 = config default)")
	showContext := flag.Bool("show-context", false, "Print the retrieved context along with the answer")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	if *ingest {
		if flag.NArg() == 0 {
			log.Fatal().Msg("Please provide at least one PDF file to ingest")
		}
		ingestDocuments(context.Background(), cfg, flag.Args())
		return
	}

	if *query != "" {
		answerQuery(context.Background(), cfg, *query, *topK, *showContext)
		return
	}

	log.Fatal().Msg("Please provide -ingest with PDF file(s) or a question using the -query flag")
}

// buildRAG wires the pipeline once per invocation: store, embedder, extractor
// and completion client are constructed here and injected, never ambient.
func buildRAG(cfg *config.Config, topK int) (*rag.RAG, func(), error) {
	store, err := chromemdb.NewStore(cfg.Store.Path, cfg.Store.Collection, cfg.Store.InMemory, cfg.EmbedLLM.Model)
	if err != nil {
		return nil, nil, err
	}

	embedder, err := embedding.NewOllamaEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, nil, err
	}

	var ocrEngine extractor.OCR
	cleanup := func() {}
	if ocr, err := extractor.NewTesseractOCR(cfg.Extract.OCRLanguage); err != nil {
		log.Warn().Err(err).Msg("OCR unavailable, scanned pages will be skipped")
	} else {
		ocrEngine = ocr
		cleanup = func() { ocr.Close() }
	}

	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}
	r := rag.NewRAG(
		store,
		extractor.New(ocrEngine, cfg.Extract.OCRDPI),
		embedder,
		llmservice.NewClient(&cfg.Completion),
		topK,
	)
	return r, cleanup, nil
}

func ingestDocuments(ctx context.Context, cfg *config.Config, filePaths []string) {
	r, cleanup, err := buildRAG(cfg, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing pipeline")
	}
	defer cleanup()

	// Stage each document in the temp dir before extraction, the way an
	// upload surface would, and drop the copies when done.
	var staged []string
	defer func() {
		for _, path := range staged {
			os.Remove(path)
		}
	}()

	bar := progressbar.Default(int64(len(filePaths)), "Ingesting documents")
	indexed := 0
	failed := 0
	for _, filePath := range filePaths {
		data, err := os.ReadFile(filePath)
		if err != nil {
			log.Error().Err(err).Str("document", filePath).Msg("Error reading document")
			failed++
			bar.Add(1)
			continue
		}
		stagedPath, err := helper.SaveUpload(cfg.UI.TempDir, filePath, data)
		if err != nil {
			log.Error().Err(err).Str("document", filePath).Msg("Error staging document")
			failed++
			bar.Add(1)
			continue
		}
		staged = append(staged, stagedPath)

		reports := r.IngestAll(ctx, []string{stagedPath})
		for _, report := range reports {
			if report.Err != nil {
				failed++
				continue
			}
			indexed++
			log.Info().Str("document", report.Source).Int("chunks", report.Chunks).Msg("Indexed document")
			if len(report.SkippedPages) > 0 {
				log.Warn().
					Str("document", report.Source).
					Ints("pages", report.SkippedPages).
					Msg("Pages yielded no text and were skipped")
			}
		}
		bar.Add(1)
	}

	fmt.Printf("\nIndexed %d document(s) into the database", indexed)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()
}

func answerQuery(ctx context.Context, cfg *config.Config, query string, topK int, showContext bool) {
	r, cleanup, err := buildRAG(cfg, topK)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing pipeline")
	}
	defer cleanup()

	response, err := r.Answer(ctx, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering query")
	}

	log.Info().Msg("Question: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Query)

	log.Info().Msg("Answer: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Content)

	if showContext {
		log.Info().Msg("Context: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		for _, chunk := range response.Context {
			fmt.Printf("- [%s page %d] %s\n", chunk.Source, chunk.Page,
				helper.TruncatePreview(chunk.Text, cfg.UI.PreviewChars))
		}
	}
}
