package models

const (
	DefaultOllamaURL       = "http://localhost:11434"
	DefaultEmbeddingModel  = "nomic-embed-text"
	DefaultCompletionModel = "llama2:7b"
	DefaultTopK            = 3
	DefaultOCRDPI          = 250
	DefaultPreviewChars    = 1000
)

var (
	AnswerPromptTemplate = `Use the following document excerpts to answer the question.

Context:
%s

Question: %s
Answer:`
)
