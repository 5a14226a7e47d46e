package indexer

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/pdfchat/internal/chunker"
	"github.com/seanblong/pdfchat/internal/pdf"
	"github.com/seanblong/pdfchat/internal/store"
	"github.com/seanblong/pdfchat/pkg/models"
)

// FileSystemWalker defines the interface for walking directories
type FileSystemWalker interface {
	Walk(root string, options *godirwalk.Options) error
}

// FileReader defines the interface for reading files
type FileReader interface {
	ReadFile(filename string) ([]byte, error)
}

// Summarizer produces a summary of a document's text. The generation gateway
// satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, req models.GenerationRequest) (string, error)
}

// DefaultFileSystemWalker implements FileSystemWalker using godirwalk
type DefaultFileSystemWalker struct{}

func (d *DefaultFileSystemWalker) Walk(root string, options *godirwalk.Options) error {
	return godirwalk.Walk(root, options)
}

// DefaultFileReader implements FileReader using os
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// manifestNamespace scopes document IDs derived from source paths.
var manifestNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/seanblong/pdfchat/manifest"))

// Indexer extracts and chunks every PDF under Root and records a manifest per
// document. Unchanged documents are skipped.
type Indexer struct {
	Store      store.ManifestStore
	Root       string
	Chunker    *chunker.Chunker
	Workers    int
	Walker     FileSystemWalker
	FileReader FileReader
	Extract    func([]byte) (pdf.Document, error)

	// Summarizer is optional; without it a heuristic summary is stored.
	Summarizer Summarizer
	// SummaryRequest carries the credential and model used with Summarizer.
	SummaryRequest models.GenerationRequest

	now func() time.Time
}

// Stats counts what a Run did.
type Stats struct {
	Indexed int64
	Skipped int64
	Failed  int64
}

// New creates a new Indexer instance.
func New(s store.ManifestStore, root string, ch *chunker.Chunker) *Indexer {
	return NewWithDependencies(s, root, ch, &DefaultFileSystemWalker{}, &DefaultFileReader{}, pdf.Extract)
}

// NewWithDependencies creates a new Indexer instance with custom dependencies for testing
func NewWithDependencies(s store.ManifestStore, root string, ch *chunker.Chunker, walker FileSystemWalker, fileReader FileReader, extract func([]byte) (pdf.Document, error)) *Indexer {
	return &Indexer{
		Store:      s,
		Root:       root,
		Chunker:    ch,
		Walker:     walker,
		FileReader: fileReader,
		Extract:    extract,
		now:        time.Now,
	}
}

// workItem represents a file to be processed
type workItem struct {
	path string
	data []byte
}

// DocumentID returns the stable ID of the document at relPath.
func DocumentID(relPath string) string {
	return uuid.NewSHA1(manifestNamespace, []byte(filepath.ToSlash(relPath))).String()
}

// processWorkItem handles the processing of a single file
func (ix *Indexer) processWorkItem(ctx context.Context, item workItem, stats *Stats) error {
	relPath := rel(ix.Root, item.path)
	id := DocumentID(relPath)
	hash := hashContent(item.data)

	existing, found, err := ix.Store.GetManifest(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("path", relPath).Msg("failed to read manifest, re-indexing")
	} else if found && existing.ContentHash == hash {
		log.Debug().Str("path", relPath).Msg("unchanged, skipping")
		atomic.AddInt64(&stats.Skipped, 1)
		return nil
	}

	doc, err := ix.Extract(item.data)
	if err != nil {
		log.Warn().Err(err).Str("path", relPath).Msg("extraction failed")
		atomic.AddInt64(&stats.Failed, 1)
		return nil
	}
	if strings.TrimSpace(doc.Text) == "" {
		log.Warn().Str("path", relPath).Msg("no extractable text")
		atomic.AddInt64(&stats.Failed, 1)
		return nil
	}

	chunks := ix.Chunker.Chunk(doc.Text)
	m := models.Manifest{
		DocumentID:  id,
		Source:      filepath.ToSlash(relPath),
		ContentHash: hash,
		Pages:       doc.PageCount,
		Info:        doc.Metadata,
		Characters:  len([]rune(doc.Text)),
		Summary:     ix.summarize(ctx, relPath, doc.Text),
		Chunks:      chunks,
		IndexedAt:   ix.now().UTC(),
	}
	log.Info().Str("path", relPath).
		Int("pages", doc.PageCount).
		Int("chunks", len(chunks)).
		Bool("changed", found).
		Msg("indexing document")

	if err := ix.Store.PutManifest(ctx, m); err != nil {
		return err
	}
	atomic.AddInt64(&stats.Indexed, 1)
	return nil
}

func (ix *Indexer) summarize(ctx context.Context, relPath, text string) string {
	if ix.Summarizer == nil {
		return summarizeHeuristic(text)
	}
	req := ix.SummaryRequest
	req.Operation = models.OpSummarize
	req.Content = text
	s, err := ix.Summarizer.Summarize(ctx, req)
	if err != nil || strings.TrimSpace(s) == "" {
		log.Warn().Err(err).Str("path", relPath).Msg("summarization failed, using heuristic")
		return summarizeHeuristic(text)
	}
	return s
}

func (ix *Indexer) workers() int {
	if ix.Workers > 0 {
		return ix.Workers
	}
	// Cap at 8 to avoid overwhelming the AI API
	return min(runtime.NumCPU(), 8)
}

// Run walks Root and processes every PDF found. Per-document extraction
// failures are counted, not returned; store failures and walk errors are.
func (ix *Indexer) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	if ix.Chunker == nil || ix.Store == nil || ix.Extract == nil {
		return stats, errors.New("indexer is missing a chunker, store or extractor")
	}
	numWorkers := ix.workers()

	log.Info().Int("workers", numWorkers).Str("root", ix.Root).Msg("starting concurrent indexing")

	// Create channels for work distribution
	workChan := make(chan workItem, numWorkers*2) // Buffer to keep workers busy
	errorChan := make(chan error, 1)

	// Start worker goroutines
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			log.Debug().Int("worker", workerID).Msg("worker started")

			for item := range workChan {
				if err := ix.processWorkItem(ctx, item, &stats); err != nil {
					select {
					case errorChan <- err:
					default:
						// Error channel is full, log the error
						log.Error().Err(err).Str("path", item.path).Msg("worker processing error")
					}
				}
			}

			log.Debug().Int("worker", workerID).Msg("worker finished")
		}(i)
	}

	// Walk files and send them to workers
	walkErr := ix.Walker.Walk(ix.Root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			// de is nil when driven by a test walker
			if de != nil && de.IsDir() {
				if skipDir(path) {
					return godirwalk.SkipThis
				}
				return nil
			}
			if shouldSkip(path) {
				return nil
			}

			b, err := ix.FileReader.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to read file")
				atomic.AddInt64(&stats.Failed, 1)
				return nil
			}

			select {
			case workChan <- workItem{path: path, data: b}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	})

	// Close work channel to signal workers to finish
	close(workChan)

	// Wait for all workers to complete
	wg.Wait()
	close(errorChan)

	if err, ok := <-errorChan; ok && err != nil {
		return stats, err
	}
	return stats, walkErr
}

// hashContent returns the SHA-1 hash of the given content as a hex string.
func hashContent(b []byte) string {
	h := sha1.Sum(b)
	return hex.EncodeToString(h[:])
}

// summarizeHeuristic provides a simple heuristic summary by truncating the content.
func summarizeHeuristic(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 240 {
		s = string(r[:240])
	}
	return s
}

var skippedDirs = map[string]bool{
	".git": true, "node_modules": true, ".cache": true, ".venv": true,
	"venv": true, "__pycache__": true, ".idea": true, "vendor": true,
}

func skipDir(path string) bool {
	return skippedDirs[strings.ToLower(filepath.Base(path))]
}

// shouldSkip returns true if the file at path should be skipped.
func shouldSkip(path string) bool {
	p := strings.ToLower(filepath.ToSlash(path))
	for dir := range skippedDirs {
		if strings.Contains(p, "/"+dir+"/") {
			return true
		}
	}
	if strings.HasPrefix(filepath.Base(p), ".") {
		return true
	}
	return filepath.Ext(p) != ".pdf"
}

func rel(root, p string) string {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return r
}
