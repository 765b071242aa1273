// Package search combines free-text queries with structured facets into
// bounded, visibility-filtered media queries over PostgreSQL full-text
// search.
package search

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/mediacms-io/mediacms-go/pkg/observability"
)

// DefaultStopWords is the built-in stop-word set, used when no stop-word
// file is configured.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"in", "is", "it", "of", "on", "or", "that", "the", "this", "to",
	"was", "with",
}

// StopWords is a concurrently readable stop-word set that can be replaced
// wholesale when its backing file changes.
type StopWords struct {
	mu    sync.RWMutex
	words map[string]struct{}
}

// NewStopWords builds a set from the given words.
func NewStopWords(words []string) *StopWords {
	s := &StopWords{}
	s.Replace(words)
	return s
}

// Contains reports whether word is a stop word. Lookup is case-sensitive;
// the tokenizer lower-cases before calling.
func (s *StopWords) Contains(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.words[word]
	return ok
}

// Replace swaps the whole set atomically.
func (s *StopWords) Replace(words []string) {
	next := make(map[string]struct{}, len(words))
	for _, w := range words {
		next[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	delete(next, "")

	s.mu.Lock()
	s.words = next
	s.mu.Unlock()
}

// Len returns the set size.
func (s *StopWords) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

type stopWordFile struct {
	StopWords []string `yaml:"stop_words"`
}

// LoadFile replaces the set with the contents of a YAML stop-word file.
func (s *StopWords) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read stop-word file: %w", err)
	}

	var file stopWordFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse stop-word file %s: %w", path, err)
	}

	s.Replace(file.StopWords)
	return nil
}

// Watch reloads the set whenever the backing file changes, until ctx is
// cancelled. A reload failure keeps the previous set and logs the error.
func (s *StopWords) Watch(ctx context.Context, path string, logger *observability.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create stop-word watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch stop-word file %s: %w", path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.LoadFile(path); err != nil {
					logger.WithError(err).Warn("stop-word reload failed, keeping previous set")
					continue
				}
				logger.WithField("count", s.Len()).Info("stop-word set reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("stop-word watcher error")
			}
		}
	}()

	return nil
}
