package models

import (
	"fmt"
	"strconv"
)

// PageText is the text extracted from one PDF page, carrying the original
// 1-based page number. Blank pages are skipped during extraction, so page
// numbers may have gaps.
type PageText struct {
	Page int
	Text string
}

// Chunk is the unit of retrieval: one page's text plus its metadata.
type Chunk struct {
	ID     string
	Text   string
	Source string
	Page   int
}

// ChunkID derives the stable store identifier for a document page.
// Re-ingesting the same document overwrites these ids instead of duplicating.
func ChunkID(source string, page int) string {
	return fmt.Sprintf("%s_page%d", source, page)
}

// Metadata returns the chunk attributes in the form the vector store keeps.
func (c Chunk) Metadata() map[string]string {
	return map[string]string{
		"source": c.Source,
		"page":   strconv.Itoa(c.Page),
	}
}

// ChunkFromResult rebuilds a Chunk from a store result's content and metadata.
func ChunkFromResult(id, content string, metadata map[string]string) Chunk {
	page, _ := strconv.Atoi(metadata["page"])
	return Chunk{
		ID:     id,
		Text:   content,
		Source: metadata["source"],
		Page:   page,
	}
}

// IngestReport is the per-document outcome of a batch ingestion run.
type IngestReport struct {
	Source       string
	Chunks       int
	SkippedPages []int
	Err          error
}

// PromptResponse carries the answer together with the context that produced it.
type PromptResponse struct {
	Query   string
	Context []Chunk
	Content string
}
