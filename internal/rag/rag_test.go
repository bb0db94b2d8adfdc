package rag_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chat/internal/chromemdb"
	"document-chat/internal/llmservice"
	"document-chat/internal/models"
	"document-chat/internal/rag"
)

// fakeEmbedder returns canned vectors per input; unknown inputs are an error,
// mirroring a malformed-input embedding failure.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	vector, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no embedding for %q", text)
	}
	return vector, nil
}

type fakeDocument struct {
	pages   []models.PageText
	skipped []int
	err     error
}

type fakeExtractor struct {
	docs map[string]fakeDocument
}

func (f *fakeExtractor) Extract(filePath string) ([]models.PageText, []int, error) {
	doc, ok := f.docs[filePath]
	if !ok {
		return nil, nil, fmt.Errorf("unexpected file %q", filePath)
	}
	return doc.pages, doc.skipped, doc.err
}

type fakeCompleter struct {
	response string
	err      error
	prompt   string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestStore(t *testing.T) *chromemdb.Store {
	t.Helper()
	store, err := chromemdb.NewStore("", "test_docs", true, "")
	require.NoError(t, err)
	return store
}

func TestIngestChunkIds(t *testing.T) {
	store := newTestStore(t)
	extractor := &fakeExtractor{docs: map[string]fakeDocument{
		"/tmp/statement.pdf": {pages: []models.PageText{
			{Page: 1, Text: "opening balance"},
			{Page: 2, Text: "closing balance"},
		}},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"opening balance": {1, 0, 0},
		"closing balance": {0, 1, 0},
	}}
	r := rag.NewRAG(store, extractor, embedder, &fakeCompleter{}, 3)

	count, skipped, err := r.Ingest(context.Background(), "statement.pdf", "/tmp/statement.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Empty(t, skipped)

	results, err := store.Query(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	ids := []string{results[0].ID, results[1].ID}
	assert.Contains(t, ids, "statement.pdf_page1")
	assert.Contains(t, ids, "statement.pdf_page2")
}

func TestIngestIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	extractor := &fakeExtractor{docs: map[string]fakeDocument{
		"/tmp/statement.pdf": {pages: []models.PageText{{Page: 1, Text: "balance"}}},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{"balance": {1, 0, 0}}}
	r := rag.NewRAG(store, extractor, embedder, &fakeCompleter{}, 3)

	_, _, err := r.Ingest(context.Background(), "statement.pdf", "/tmp/statement.pdf")
	require.NoError(t, err)
	_, _, err = r.Ingest(context.Background(), "statement.pdf", "/tmp/statement.pdf")
	require.NoError(t, err)

	assert.Equal(t, 1, store.Count())
}

func TestIngestPreservesOriginalPageNumbers(t *testing.T) {
	store := newTestStore(t)
	// Page 2 was blank and skipped; page 3 keeps its number.
	extractor := &fakeExtractor{docs: map[string]fakeDocument{
		"/tmp/scan.pdf": {
			pages:   []models.PageText{{Page: 1, Text: "first"}, {Page: 3, Text: "third"}},
			skipped: []int{2},
		},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"first": {1, 0, 0},
		"third": {0, 1, 0},
	}}
	r := rag.NewRAG(store, extractor, embedder, &fakeCompleter{}, 3)

	count, skipped, err := r.Ingest(context.Background(), "scan.pdf", "/tmp/scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []int{2}, skipped)

	chunks, err := r.Retrieve(context.Background(), "third", 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "scan.pdf_page3", chunks[0].ID)
	assert.Equal(t, 3, chunks[0].Page)
	assert.Equal(t, "scan.pdf", chunks[0].Source)
}

func TestIngestAllIsolatesFailures(t *testing.T) {
	store := newTestStore(t)
	extractor := &fakeExtractor{docs: map[string]fakeDocument{
		"/tmp/corrupt.pdf": {err: fmt.Errorf("cannot read document /tmp/corrupt.pdf: bad xref")},
		"/tmp/valid.pdf":   {pages: []models.PageText{{Page: 1, Text: "valid content"}}},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{"valid content": {1, 0, 0}}}
	r := rag.NewRAG(store, extractor, embedder, &fakeCompleter{}, 3)

	reports := r.IngestAll(context.Background(), []string{"/tmp/corrupt.pdf", "/tmp/valid.pdf"})

	require.Len(t, reports, 2)
	assert.Equal(t, "corrupt.pdf", reports[0].Source)
	assert.Error(t, reports[0].Err)
	assert.Equal(t, "valid.pdf", reports[1].Source)
	assert.NoError(t, reports[1].Err)
	assert.Equal(t, 1, reports[1].Chunks)
	assert.Equal(t, 1, store.Count())
}

func TestRetrieveRelevance(t *testing.T) {
	store := newTestStore(t)
	extractor := &fakeExtractor{docs: map[string]fakeDocument{
		"/tmp/statement.pdf": {pages: []models.PageText{
			{Page: 1, Text: "The account balance is $4,200"},
			{Page: 2, Text: "Branch opening hours are 9 to 5"},
			{Page: 3, Text: "Contact us at the number below"},
		}},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"The account balance is $4,200":   {1, 0, 0},
		"Branch opening hours are 9 to 5": {0, 1, 0},
		"Contact us at the number below":  {0, 0, 1},
		"What is the account balance?":    {0.9, 0.1, 0},
	}}
	r := rag.NewRAG(store, extractor, embedder, &fakeCompleter{}, 3)

	_, _, err := r.Ingest(context.Background(), "statement.pdf", "/tmp/statement.pdf")
	require.NoError(t, err)

	chunks, err := r.Retrieve(context.Background(), "What is the account balance?", 3)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "The account balance is $4,200", chunks[0].Text)
}

func TestRetrieveEmptyStore(t *testing.T) {
	store := newTestStore(t)
	embedder := &fakeEmbedder{vectors: map[string][]float32{"anything?": {1, 0, 0}}}
	r := rag.NewRAG(store, &fakeExtractor{}, embedder, &fakeCompleter{}, 3)

	chunks, err := r.Retrieve(context.Background(), "anything?", 3)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestComposePrompt(t *testing.T) {
	chunks := []models.Chunk{
		{Text: "The account balance is $4,200"},
		{Text: "Branch opening hours are 9 to 5"},
	}
	prompt := rag.ComposePrompt(chunks, "What is the account balance?")

	assert.Contains(t, prompt, "Use the following document excerpts")
	assert.Contains(t, prompt, "Context:\nThe account balance is $4,200\nBranch opening hours are 9 to 5")
	assert.Contains(t, prompt, "Question: What is the account balance?")
	assert.Contains(t, prompt, "Answer:")
}

func TestComposePromptEmptyContext(t *testing.T) {
	prompt := rag.ComposePrompt(nil, "What is the account balance?")

	assert.Contains(t, prompt, "Context:\n\n")
	assert.Contains(t, prompt, "Question: What is the account balance?")
}

func TestAnswerFoldsCompletionFailure(t *testing.T) {
	store := newTestStore(t)
	embedder := &fakeEmbedder{vectors: map[string][]float32{"question?": {1, 0, 0}}}
	completer := &fakeCompleter{err: &llmservice.ServiceError{StatusCode: 500}}
	r := rag.NewRAG(store, &fakeExtractor{}, embedder, completer, 3)

	response, err := r.Answer(context.Background(), "question?")
	require.NoError(t, err)
	assert.Contains(t, response.Content, "Error communicating with completion service")
	assert.Contains(t, response.Content, "500")
}

func TestAnswerReturnsContext(t *testing.T) {
	store := newTestStore(t)
	extractor := &fakeExtractor{docs: map[string]fakeDocument{
		"/tmp/statement.pdf": {pages: []models.PageText{{Page: 1, Text: "The account balance is $4,200"}}},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"The account balance is $4,200": {1, 0, 0},
		"What is the account balance?":  {0.9, 0.1, 0},
	}}
	completer := &fakeCompleter{response: "$4,200"}
	r := rag.NewRAG(store, extractor, embedder, completer, 3)

	_, _, err := r.Ingest(context.Background(), "statement.pdf", "/tmp/statement.pdf")
	require.NoError(t, err)

	response, err := r.Answer(context.Background(), "What is the account balance?")
	require.NoError(t, err)
	assert.Equal(t, "$4,200", response.Content)
	require.Len(t, response.Context, 1)
	assert.Equal(t, "statement.pdf_page1", response.Context[0].ID)
	assert.Contains(t, completer.prompt, "The account balance is $4,200")
}
