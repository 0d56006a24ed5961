package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader reads a graph definition from a YAML file.
// It implements ports.DefinitionLoader and ports.Watchable.
type Loader struct {
	path string
}

// NewLoader creates a loader for the YAML file at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the watched file.
func (l *Loader) Path() string {
	return l.path
}

// Load parses the file. Node IDs are filled from their keys and the
// definition name defaults to the file name.
func (l *Loader) Load(ctx context.Context) (*domain.Definition, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read definition %q: %w", l.path, err)
	}
	return Parse(data, filepath.Base(l.path))
}

// Parse decodes a YAML definition.
func Parse(data []byte, fallbackName string) (*domain.Definition, error) {
	var def domain.Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if def.Name == "" {
		def.Name = fallbackName
	}
	for id, n := range def.Nodes {
		if n.ID == "" {
			n.ID = id
			def.Nodes[id] = n
		}
	}
	return &def, nil
}

// Watch signals on the returned channel whenever the file is written or replaced.
// The channel closes when ctx is done or the watcher fails.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// editors replace files on save, so watch the directory
	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch dir %q: %w", dir, err)
	}

	target := filepath.Clean(l.path)
	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					select {
					case ch <- struct{}{}:
					default:
					}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return ch, nil
}
