package search

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/seanblong/pdfchat/pkg/models"
)

const DefaultTopK = 5

// ContextSeparator joins ranked chunks into the context handed to the model.
const ContextSeparator = "\n\n"

type Service struct {
	TopK   int
	Logger zerolog.Logger
}

// NewService creates a ranking service that returns at most topK chunks per query
func NewService(topK int, logger zerolog.Logger) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{
		TopK:   topK,
		Logger: logger,
	}
}

// Query ranks chunks against q and returns the selected chunks together with
// the context string built from them.
func (s *Service) Query(q string, chunks []models.Chunk) ([]models.Chunk, string) {
	q = strings.TrimSpace(q)
	res := Rank(q, chunks, s.TopK)
	s.Logger.Debug().Str("q", q).Int("chunks", len(chunks)).Int("selected", len(res)).Msg("ranked chunks")
	return res, Context(res)
}

type scored struct {
	chunk models.Chunk
	score int
}

// Rank scores every chunk by how often the query terms occur in it and returns
// the topK highest scoring chunks. Ties keep their original order and chunks
// scoring zero are still returned when slots remain.
func Rank(query string, chunks []models.Chunk, topK int) []models.Chunk {
	if topK <= 0 {
		topK = DefaultTopK
	}
	terms := Terms(query)

	all := make([]scored, len(chunks))
	for i, c := range chunks {
		all[i] = scored{chunk: c, score: Score(terms, c.Text)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	n := min(topK, len(all))
	out := make([]models.Chunk, 0, n)
	for _, s := range all[:n] {
		out = append(out, s.chunk)
	}
	return out
}

// Terms lowercases q and splits it on whitespace.
func Terms(q string) []string {
	return strings.Fields(strings.ToLower(q))
}

// Score sums the occurrences of each term in the lowercased text. Occurrences
// may overlap, so "aa" occurs twice in "aaa".
func Score(terms []string, text string) int {
	lower := strings.ToLower(text)
	total := 0
	for _, t := range terms {
		total += countOverlapping(lower, t)
	}
	return total
}

func countOverlapping(s, sub string) int {
	if sub == "" {
		return 0
	}
	n := 0
	for {
		i := strings.Index(s, sub)
		if i < 0 {
			return n
		}
		n++
		// step past the first byte of the match only
		s = s[i+1:]
	}
}

// Context joins chunk texts in the given order.
func Context(chunks []models.Chunk) string {
	return strings.Join(models.Texts(chunks), ContextSeparator)
}
