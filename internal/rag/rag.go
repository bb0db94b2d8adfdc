package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"document-chat/internal/llmservice"
	"document-chat/internal/models"
)

// Embedder maps text to a fixed-length vector. The same embedder must be used
// for ingestion and querying.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the persistent chunk index: upsert by id, k-NN query by embedding.
type Store interface {
	Upsert(ctx context.Context, docs []chromem.Document) error
	Query(ctx context.Context, embedding []float32, k int) ([]chromem.Result, error)
	Count() int
}

// Extractor turns a PDF file into per-page text, reporting skipped pages.
type Extractor interface {
	Extract(filePath string) ([]models.PageText, []int, error)
}

// Completer generates an answer for a fully composed prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RAG wires Extractor, Embedder, Store and Completer into the ingestion and
// question-answering pipeline. All dependencies are injected; there is no
// ambient state.
type RAG struct {
	store     Store
	extractor Extractor
	embedder  Embedder
	completer Completer
	topK      int
}

func NewRAG(store Store, extractor Extractor, embedder Embedder, completer Completer, topK int) *RAG {
	if topK <= 0 {
		topK = models.DefaultTopK
	}
	return &RAG{
		store:     store,
		extractor: extractor,
		embedder:  embedder,
		completer: completer,
		topK:      topK,
	}
}

// Ingest extracts, embeds and upserts one document. Chunk ids derive from the
// document name and the original page number, so re-ingesting an unchanged
// document overwrites its entries instead of duplicating them. Returns the
// number of chunks indexed and the pages that yielded no text.
func (r *RAG) Ingest(ctx context.Context, name, filePath string) (int, []int, error) {
	pages, skippedPages, err := r.extractor.Extract(filePath)
	if err != nil {
		return 0, nil, err
	}

	docs := make([]chromem.Document, 0, len(pages))
	for _, page := range pages {
		chunk := models.Chunk{
			ID:     models.ChunkID(name, page.Page),
			Text:   page.Text,
			Source: name,
			Page:   page.Page,
		}
		vector, err := r.embedder.EmbedQuery(ctx, chunk.Text)
		if err != nil {
			return 0, nil, fmt.Errorf("error embedding %s: %w", chunk.ID, err)
		}
		docs = append(docs, chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Text,
			Metadata:  chunk.Metadata(),
			Embedding: vector,
		})
	}

	if err := r.store.Upsert(ctx, docs); err != nil {
		return 0, nil, err
	}
	return len(docs), skippedPages, nil
}

// IngestAll indexes a batch of files independently: one corrupt document is
// reported and the rest still get indexed. The report carries per-document
// chunk counts, skipped pages and errors.
func (r *RAG) IngestAll(ctx context.Context, filePaths []string) []models.IngestReport {
	reports := make([]models.IngestReport, 0, len(filePaths))
	for _, filePath := range filePaths {
		name := filepath.Base(filePath)
		count, skippedPages, err := r.Ingest(ctx, name, filePath)
		if err != nil {
			log.Error().Err(err).Str("document", name).Msg("Error ingesting document")
		}
		reports = append(reports, models.IngestReport{
			Source:       name,
			Chunks:       count,
			SkippedPages: skippedPages,
			Err:          err,
		})
	}
	return reports
}

// Retrieve embeds the query and returns up to k stored chunks nearest to it.
// An empty store is a valid state and yields an empty context.
func (r *RAG) Retrieve(ctx context.Context, query string, k int) ([]models.Chunk, error) {
	if k <= 0 {
		k = r.topK
	}
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error embedding query: %w", err)
	}

	results, err := r.store.Query(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, models.ChunkFromResult(result.ID, result.Content, result.Metadata))
	}
	return chunks, nil
}

// ComposePrompt merges the retrieved chunks and the question into the
// completion prompt. Pure; an empty context block is valid.
func ComposePrompt(chunks []models.Chunk, question string) string {
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}
	return fmt.Sprintf(models.AnswerPromptTemplate, strings.Join(texts, "\n"), question)
}

// Answer runs retrieval, prompt composition and completion for one question.
// A completion-service failure is the user-visible terminal stage, so it is
// folded into the answer text instead of propagating; every other error
// propagates.
func (r *RAG) Answer(ctx context.Context, query string) (*models.PromptResponse, error) {
	chunks, err := r.Retrieve(ctx, query, r.topK)
	if err != nil {
		return nil, err
	}

	content, err := r.completer.Complete(ctx, ComposePrompt(chunks, query))
	if err != nil {
		var svcErr *llmservice.ServiceError
		if !errors.As(err, &svcErr) {
			return nil, err
		}
		content = fmt.Sprintf("Error communicating with completion service: %v", svcErr)
	}

	return &models.PromptResponse{
		Query:   query,
		Context: chunks,
		Content: content,
	}, nil
}
