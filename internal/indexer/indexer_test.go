package indexer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog"
	"github.com/seanblong/pdfchat/internal/chunker"
	"github.com/seanblong/pdfchat/internal/pdf"
	"github.com/seanblong/pdfchat/internal/store"
	"github.com/seanblong/pdfchat/pkg/models"
)

func init() {
	// Suppress logs during testing
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

// MockManifestStore implements store.ManifestStore for testing
type MockManifestStore struct {
	GetManifestFunc func(ctx context.Context, id string) (models.Manifest, bool, error)
	PutManifestFunc func(ctx context.Context, m models.Manifest) error

	mu  sync.Mutex
	Put []models.Manifest
}

func (m *MockManifestStore) GetManifest(ctx context.Context, id string) (models.Manifest, bool, error) {
	if m.GetManifestFunc != nil {
		return m.GetManifestFunc(ctx, id)
	}
	return models.Manifest{}, false, nil
}

func (m *MockManifestStore) PutManifest(ctx context.Context, man models.Manifest) error {
	m.mu.Lock()
	m.Put = append(m.Put, man)
	m.mu.Unlock()
	if m.PutManifestFunc != nil {
		return m.PutManifestFunc(ctx, man)
	}
	return nil
}

func (m *MockManifestStore) bySource() map[string]models.Manifest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.Manifest, len(m.Put))
	for _, man := range m.Put {
		out[man.Source] = man
	}
	return out
}

// MockSummarizer implements Summarizer for testing
type MockSummarizer struct {
	SummarizeFunc func(ctx context.Context, req models.GenerationRequest) (string, error)
}

func (m *MockSummarizer) Summarize(ctx context.Context, req models.GenerationRequest) (string, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, req)
	}
	return "mock summary", nil
}

// MockFileSystemWalker implements FileSystemWalker for testing
type MockFileSystemWalker struct {
	FilesToProcess []string // List of file paths to process
	WalkError      error    // Error to return from Walk
}

func (m *MockFileSystemWalker) Walk(root string, options *godirwalk.Options) error {
	if m.WalkError != nil {
		return m.WalkError
	}
	// A nil Dirent stands in for a regular file.
	for _, filePath := range m.FilesToProcess {
		if err := options.Callback(filePath, nil); err != nil {
			return err
		}
	}
	return nil
}

// MockFileReader implements FileReader for testing
type MockFileReader struct {
	ReadFileFunc func(filename string) ([]byte, error)
	Files        map[string]string // path -> content
}

func (m *MockFileReader) ReadFile(filename string) ([]byte, error) {
	if m.ReadFileFunc != nil {
		return m.ReadFileFunc(filename)
	}
	if content, exists := m.Files[filename]; exists {
		return []byte(content), nil
	}
	return nil, errors.New("file not found")
}

// fakeExtract treats file content as the extracted text, failing on "corrupt".
func fakeExtract(b []byte) (pdf.Document, error) {
	s := string(b)
	if s == "corrupt" {
		return pdf.Document{}, errors.New("invalid file format")
	}
	return pdf.Document{Text: s, PageCount: 1, Metadata: map[string]string{"Title": "T"}}, nil
}

func newTestChunker(t *testing.T) *chunker.Chunker {
	t.Helper()
	ch, err := chunker.New(chunker.Config{MaxChunkSize: 20, Overlap: 5})
	if err != nil {
		t.Fatalf("chunker.New failed: %v", err)
	}
	return ch
}

func newTestIndexer(t *testing.T, st store.ManifestStore, files map[string]string) *Indexer {
	t.Helper()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	ix := NewWithDependencies(st, "/docs", newTestChunker(t),
		&MockFileSystemWalker{FilesToProcess: paths},
		&MockFileReader{Files: files},
		fakeExtract)
	ix.Workers = 2
	ix.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return ix
}

func TestIndexer_Run(t *testing.T) {
	tests := []struct {
		name            string
		files           map[string]string
		store           *MockManifestStore
		summarizer      *MockSummarizer
		expectedStats   Stats
		expectError     bool
		validateResults func(t *testing.T, st *MockManifestStore)
	}{
		{
			name:          "indexes a single document",
			files:         map[string]string{"/docs/paper.pdf": "Neural networks learn."},
			store:         &MockManifestStore{},
			summarizer:    &MockSummarizer{},
			expectedStats: Stats{Indexed: 1},
			validateResults: func(t *testing.T, st *MockManifestStore) {
				m, ok := st.bySource()["paper.pdf"]
				if !ok {
					t.Fatal("Expected manifest for paper.pdf")
				}
				if m.DocumentID != DocumentID("paper.pdf") {
					t.Errorf("Expected stable document id, got %q", m.DocumentID)
				}
				if m.ContentHash != hashContent([]byte("Neural networks learn.")) {
					t.Errorf("Unexpected content hash %q", m.ContentHash)
				}
				if m.Summary != "mock summary" {
					t.Errorf("Expected model summary, got %q", m.Summary)
				}
				if m.Pages != 1 || m.Info["Title"] != "T" {
					t.Errorf("Expected extracted metadata, got pages=%d info=%v", m.Pages, m.Info)
				}
				if m.Characters != len("Neural networks learn.") {
					t.Errorf("Expected character count, got %d", m.Characters)
				}
				if len(m.Chunks) < 2 {
					t.Errorf("Expected text to be chunked, got %d chunks", len(m.Chunks))
				}
				if !m.IndexedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
					t.Errorf("Unexpected IndexedAt %v", m.IndexedAt)
				}
			},
		},
		{
			name:  "unchanged document is skipped",
			files: map[string]string{"/docs/same.pdf": "unchanged text"},
			store: &MockManifestStore{
				GetManifestFunc: func(ctx context.Context, id string) (models.Manifest, bool, error) {
					return models.Manifest{ContentHash: hashContent([]byte("unchanged text"))}, true, nil
				},
			},
			summarizer: &MockSummarizer{
				SummarizeFunc: func(ctx context.Context, req models.GenerationRequest) (string, error) {
					t.Error("Summarize should not be called for an unchanged document")
					return "", nil
				},
			},
			expectedStats: Stats{Skipped: 1},
			validateResults: func(t *testing.T, st *MockManifestStore) {
				if len(st.Put) != 0 {
					t.Errorf("Expected no writes, got %d", len(st.Put))
				}
			},
		},
		{
			name:  "changed document is re-indexed",
			files: map[string]string{"/docs/changed.pdf": "new text"},
			store: &MockManifestStore{
				GetManifestFunc: func(ctx context.Context, id string) (models.Manifest, bool, error) {
					return models.Manifest{ContentHash: "stale"}, true, nil
				},
			},
			expectedStats: Stats{Indexed: 1},
		},
		{
			name:  "summarization failure falls back to heuristic",
			files: map[string]string{"/docs/a.pdf": "Some   spaced\n text"},
			store: &MockManifestStore{},
			summarizer: &MockSummarizer{
				SummarizeFunc: func(ctx context.Context, req models.GenerationRequest) (string, error) {
					return "", errors.New("service unavailable")
				},
			},
			expectedStats: Stats{Indexed: 1},
			validateResults: func(t *testing.T, st *MockManifestStore) {
				if got := st.bySource()["a.pdf"].Summary; got != "Some spaced text" {
					t.Errorf("Expected heuristic summary, got %q", got)
				}
			},
		},
		{
			name:          "no summarizer uses heuristic",
			files:         map[string]string{"/docs/b.pdf": "plain"},
			store:         &MockManifestStore{},
			expectedStats: Stats{Indexed: 1},
			validateResults: func(t *testing.T, st *MockManifestStore) {
				if got := st.bySource()["b.pdf"].Summary; got != "plain" {
					t.Errorf("Expected heuristic summary, got %q", got)
				}
			},
		},
		{
			name: "extraction failures and empty text are counted",
			files: map[string]string{
				"/docs/bad.pdf":   "corrupt",
				"/docs/empty.pdf": "   ",
				"/docs/good.pdf":  "good",
			},
			store:         &MockManifestStore{},
			expectedStats: Stats{Indexed: 1, Failed: 2},
		},
		{
			name: "non-pdf and hidden files are ignored",
			files: map[string]string{
				"/docs/notes.txt":         "text",
				"/docs/.hidden.pdf":       "hidden",
				"/docs/.git/objects.pdf":  "git",
				"/docs/sub/Report.PDF":    "report",
				"/docs/vendor/manual.pdf": "vendored",
			},
			store:         &MockManifestStore{},
			expectedStats: Stats{Indexed: 1},
			validateResults: func(t *testing.T, st *MockManifestStore) {
				if _, ok := st.bySource()["sub/Report.PDF"]; !ok {
					t.Errorf("Expected sub/Report.PDF to be indexed, got %v", st.bySource())
				}
			},
		},
		{
			name:  "store failure is returned",
			files: map[string]string{"/docs/x.pdf": "x"},
			store: &MockManifestStore{
				PutManifestFunc: func(ctx context.Context, m models.Manifest) error {
					return errors.New("disk full")
				},
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := newTestIndexer(t, tt.store, tt.files)
			if tt.summarizer != nil {
				ix.Summarizer = tt.summarizer
				ix.SummaryRequest = models.GenerationRequest{APIKey: "key", Model: "gemini-1.5-flash"}
			}

			stats, err := ix.Run(context.Background())
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if stats != tt.expectedStats {
				t.Errorf("Expected stats %+v, got %+v", tt.expectedStats, stats)
			}
			if tt.validateResults != nil {
				tt.validateResults(t, tt.store)
			}
		})
	}
}

func TestIndexer_SummaryRequest(t *testing.T) {
	var got models.GenerationRequest
	st := &MockManifestStore{}
	ix := newTestIndexer(t, st, map[string]string{"/docs/a.pdf": "body text"})
	ix.Workers = 1
	ix.Summarizer = &MockSummarizer{
		SummarizeFunc: func(ctx context.Context, req models.GenerationRequest) (string, error) {
			got = req
			return "ok", nil
		},
	}
	ix.SummaryRequest = models.GenerationRequest{APIKey: "key", Model: "gemini-1.5-pro"}

	if _, err := ix.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got.APIKey != "key" || got.Model != "gemini-1.5-pro" {
		t.Errorf("Expected credential and model to be forwarded, got %+v", got)
	}
	if got.Operation != models.OpSummarize || got.Content != "body text" {
		t.Errorf("Expected summarize request with document text, got %+v", got)
	}
}

func TestIndexer_ReadFailureCounted(t *testing.T) {
	st := &MockManifestStore{}
	ix := NewWithDependencies(st, "/docs", newTestChunker(t),
		&MockFileSystemWalker{FilesToProcess: []string{"/docs/a.pdf"}},
		&MockFileReader{ReadFileFunc: func(string) ([]byte, error) { return nil, errors.New("permission denied") }},
		fakeExtract)

	stats, err := ix.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Failed != 1 || stats.Indexed != 0 {
		t.Errorf("Expected one failure, got %+v", stats)
	}
}

func TestIndexer_WalkError(t *testing.T) {
	ix := NewWithDependencies(&MockManifestStore{}, "/docs", newTestChunker(t),
		&MockFileSystemWalker{WalkError: errors.New("walk failed")},
		&MockFileReader{},
		fakeExtract)

	if _, err := ix.Run(context.Background()); err == nil || err.Error() != "walk failed" {
		t.Errorf("Expected walk error, got %v", err)
	}
}

func TestIndexer_MissingDependencies(t *testing.T) {
	ix := &Indexer{Root: "/docs"}
	if _, err := ix.Run(context.Background()); err == nil {
		t.Error("Expected error for indexer without dependencies")
	}
}

func TestIndexer_UtilityFunctions(t *testing.T) {
	t.Run("hashContent", func(t *testing.T) {
		h1 := hashContent([]byte("a"))
		h2 := hashContent([]byte("a"))
		h3 := hashContent([]byte("b"))
		if h1 != h2 {
			t.Error("Expected identical content to hash identically")
		}
		if h1 == h3 {
			t.Error("Expected different content to hash differently")
		}
		if len(h1) != 40 {
			t.Errorf("Expected 40 hex characters, got %d", len(h1))
		}
	})

	t.Run("summarizeHeuristic", func(t *testing.T) {
		if got := summarizeHeuristic("  a \n\n b\tc "); got != "a b c" {
			t.Errorf("Expected collapsed whitespace, got %q", got)
		}
		long := strings.Repeat("é", 300)
		if got := []rune(summarizeHeuristic(long)); len(got) != 240 {
			t.Errorf("Expected 240 runes, got %d", len(got))
		}
	})

	t.Run("shouldSkip", func(t *testing.T) {
		tests := []struct {
			path string
			skip bool
		}{
			{"/docs/a.pdf", false},
			{"/docs/A.PDF", false},
			{"/docs/a.txt", true},
			{"/docs/.a.pdf", true},
			{"/docs/node_modules/a.pdf", true},
			{"/docs/.git/a.pdf", true},
			{"/docs/pdf", true},
		}
		for _, tt := range tests {
			if got := shouldSkip(tt.path); got != tt.skip {
				t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, got, tt.skip)
			}
		}
	})

	t.Run("skipDir", func(t *testing.T) {
		if !skipDir("/docs/.git") || !skipDir("/docs/Vendor") {
			t.Error("Expected .git and vendor directories to be skipped")
		}
		if skipDir("/docs/papers") {
			t.Error("Expected ordinary directory to be walked")
		}
	})

	t.Run("DocumentID", func(t *testing.T) {
		if DocumentID("a/b.pdf") != DocumentID("a/b.pdf") {
			t.Error("Expected stable document IDs")
		}
		if DocumentID("a/b.pdf") == DocumentID("a/c.pdf") {
			t.Error("Expected distinct IDs for distinct paths")
		}
	})

	t.Run("rel", func(t *testing.T) {
		if got := rel("/docs", "/docs/sub/a.pdf"); got != "sub/a.pdf" {
			t.Errorf("Expected sub/a.pdf, got %q", got)
		}
	})
}

func TestNew(t *testing.T) {
	ix := New(&MockManifestStore{}, "/docs", newTestChunker(t))
	if ix.Root != "/docs" {
		t.Errorf("Expected root /docs, got %q", ix.Root)
	}
	if _, ok := ix.Walker.(*DefaultFileSystemWalker); !ok {
		t.Error("Expected default walker")
	}
	if _, ok := ix.FileReader.(*DefaultFileReader); !ok {
		t.Error("Expected default file reader")
	}
	if ix.Extract == nil {
		t.Error("Expected extractor to be set")
	}
	if ix.workers() < 1 || ix.workers() > 8 {
		t.Errorf("Expected 1-8 workers, got %d", ix.workers())
	}
	ix.Workers = 3
	if ix.workers() != 3 {
		t.Errorf("Expected explicit worker count, got %d", ix.workers())
	}
}

func TestRun_WithDirectoryStore(t *testing.T) {
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	files := map[string]string{"/docs/a.pdf": "stored text"}

	stats, err := newTestIndexer(t, st, files).Run(context.Background())
	if err != nil || stats.Indexed != 1 {
		t.Fatalf("Expected first run to index, got %+v err %v", stats, err)
	}
	stats, err = newTestIndexer(t, st, files).Run(context.Background())
	if err != nil || stats.Skipped != 1 {
		t.Fatalf("Expected second run to skip, got %+v err %v", stats, err)
	}

	m, found, err := st.GetManifest(context.Background(), DocumentID("a.pdf"))
	if err != nil || !found {
		t.Fatalf("Expected stored manifest, got found=%v err=%v", found, err)
	}
	if models.Texts(m.Chunks)[0] != "stored text" {
		t.Errorf("Unexpected chunks %v", m.Chunks)
	}
}

func BenchmarkIndexer_HashContent(b *testing.B) {
	content := []byte(strings.Repeat("x", 10000))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hashContent(content)
	}
}

func BenchmarkIndexer_ShouldSkip(b *testing.B) {
	for i := 0; i < b.N; i++ {
		shouldSkip("/docs/papers/deep/learning.pdf")
	}
}

// Test interface compliance
func TestInterfaceCompliance(t *testing.T) {
	var _ FileSystemWalker = (*DefaultFileSystemWalker)(nil)
	var _ FileReader = (*DefaultFileReader)(nil)
	var _ store.ManifestStore = (*MockManifestStore)(nil)
	var _ Summarizer = (*MockSummarizer)(nil)
}
