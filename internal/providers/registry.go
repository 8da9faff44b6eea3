package providers

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// DefaultContextTokens is assumed for models missing from the capability
// file. Conservative on purpose: overestimating a context window makes the
// planner include content the provider will reject.
const DefaultContextTokens = 32_768

// ModelCapability describes one model's limits as consumed by the planner.
type ModelCapability struct {
	Name             string `yaml:"name"`
	Provider         string `yaml:"provider"`
	MaxContextTokens int    `yaml:"max_context_tokens"`
}

type capabilityFile struct {
	Models []ModelCapability `yaml:"models"`
}

// Registry resolves model names to context-window sizes. Constructed
// explicitly and injected where needed, never accessed through package
// globals. Reload-safe behind a RWMutex for the fsnotify hot-reload path.
type Registry struct {
	mu       sync.RWMutex
	models   map[string]ModelCapability
	filePath string
}

// NewRegistry loads model capabilities from a YAML file.
func NewRegistry(filePath string) (*Registry, error) {
	r := &Registry{
		models:   make(map[string]ModelCapability),
		filePath: filePath,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the capability file, replacing the model table atomically.
func (r *Registry) Reload() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return fmt.Errorf("failed to read models file: %w", err)
	}

	var file capabilityFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse models YAML: %w", err)
	}

	models := make(map[string]ModelCapability, len(file.Models))
	for _, m := range file.Models {
		models[m.Name] = m
	}

	r.mu.Lock()
	r.models = models
	r.mu.Unlock()

	log.Printf("📋 [PROVIDERS] Loaded %d model capabilities from %s", len(models), r.filePath)
	return nil
}

// MaxContextTokens returns the context window for a model, falling back to
// the conservative default for unknown names.
func (r *Registry) MaxContextTokens(modelName string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.models[modelName]; ok && m.MaxContextTokens > 0 {
		return m.MaxContextTokens
	}
	return DefaultContextTokens
}

// Known reports whether the model appears in the capability file.
func (r *Registry) Known(modelName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.models[modelName]
	return ok
}

// Watch starts an fsnotify watcher on the capability file's directory and
// reloads on write/create, debounced against rapid successive saves. Blocks
// until the watcher errors out; run it in a goroutine.
func (r *Registry) Watch() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  [PROVIDERS] Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(r.filePath)
	if err != nil {
		log.Printf("⚠️  [PROVIDERS] Failed to resolve %s: %v", r.filePath, err)
		return
	}

	// Watch the directory; watching the file directly breaks on
	// rename-replace saves.
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  [PROVIDERS] Failed to watch directory %s: %v", dir, err)
		return
	}

	log.Printf("👁️  [PROVIDERS] Watching %s for changes (hot-reload enabled)", r.filePath)

	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := r.Reload(); err != nil {
						log.Printf("❌ [PROVIDERS] Failed to reload model capabilities: %v", err)
					}
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  [PROVIDERS] File watcher error: %v", err)
		}
	}
}
