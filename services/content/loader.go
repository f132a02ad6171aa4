// Package content loads the book corpus from a directory tree of
// markdown/text files and splits documents into indexable chunks.
package content

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/physical-ai/tutor-backend/models"
	"go.uber.org/zap"
)

// Loader reads book documents from a content directory. The resulting
// corpus is built once at startup and never mutated.
type Loader struct {
	dir    string
	logger *zap.Logger
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, logger *zap.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// loadableExts are the file extensions treated as book content.
var loadableExts = map[string]bool{
	".md":  true,
	".mdx": true,
	".txt": true,
}

// Load walks the content directory and returns one Document per
// readable content file. A single unreadable file is logged and
// skipped; it never aborts the load. Document order carries no ranking
// meaning, but it is deterministic (filepath.WalkDir is lexical) so the
// lexical retriever can use it for stable tie-breaking.
func (l *Loader) Load() ([]models.Document, error) {
	if _, err := os.Stat(l.dir); err != nil {
		return nil, err
	}

	var docs []models.Document
	walkErr := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() || !loadableExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("could not read content file", zap.String("path", path), zap.Error(err))
			return nil
		}
		base := filepath.Base(path)
		docs = append(docs, models.Document{
			SourceID: path,
			Title:    strings.TrimSuffix(base, filepath.Ext(base)),
			Text:     string(data),
		})
		return nil
	})
	if walkErr != nil {
		return docs, walkErr
	}

	l.logger.Info("book content loaded",
		zap.String("dir", l.dir),
		zap.Int("documents", len(docs)))
	return docs, nil
}

// SplitDocument splits a document into paragraph-based chunks of at
// most maxChars characters each. Paragraphs are kept whole where
// possible; a paragraph longer than maxChars becomes its own oversized
// chunk rather than being cut mid-sentence (the prompt builder enforces
// the final character budget). Chunk IDs are SourceID:index, stable
// across restarts for identical content layout.
func SplitDocument(doc models.Document, maxChars int) []models.Chunk {
	if maxChars <= 0 {
		maxChars = 1200
	}

	paragraphs := strings.Split(doc.Text, "\n\n")
	var chunks []models.Chunk
	var buf strings.Builder

	flush := func() {
		text := strings.TrimSpace(buf.String())
		buf.Reset()
		if text == "" {
			return
		}
		chunks = append(chunks, models.Chunk{
			ChunkID: doc.SourceID + ":" + strconv.Itoa(len(chunks)),
			Title:   doc.Title,
			Text:    text,
		})
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if buf.Len() > 0 && buf.Len()+len(p)+2 > maxChars {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(p)
		if buf.Len() >= maxChars {
			flush()
		}
	}
	flush()

	return chunks
}
