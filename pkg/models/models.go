package models

import "time"

// Chunk is one ordered segment of extracted document text.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Texts returns the chunk texts in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// FromTexts wraps plain strings as chunks, preserving their order.
func FromTexts(texts []string) []Chunk {
	out := make([]Chunk, len(texts))
	for i, t := range texts {
		out[i] = Chunk{Index: i, Text: t}
	}
	return out
}

// Operation is one of the generation operations offered to the user.
type Operation string

const (
	OpChat              Operation = "chat"
	OpSummarize         Operation = "summarize"
	OpTranslate         Operation = "translate"
	OpGenerateQuestions Operation = "generate-questions"
)

type GenerationRequest struct {
	Operation      Operation
	Model          string
	APIKey         string
	Query          string
	Context        string
	Content        string
	TargetLanguage string
	QuestionCount  int
}

type Questions struct {
	Questions      []string `json:"questions"`
	TotalGenerated int      `json:"totalGenerated"`
	Requested      int      `json:"requested"`
}

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Manifest is the batch extraction record of one PDF.
type Manifest struct {
	DocumentID  string            `json:"documentId"`
	Source      string            `json:"source"`
	ContentHash string            `json:"contentHash"`
	Pages       int               `json:"pages"`
	Info        map[string]string `json:"info,omitempty"`
	Characters  int               `json:"characters"`
	Summary     string            `json:"summary,omitempty"`
	Chunks      []Chunk           `json:"chunks"`
	IndexedAt   time.Time         `json:"indexedAt"`
}
