package ps

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/nickyhof/CommitView/core"
)

// LayoutDir is the repository directory holding saved layouts.
const LayoutDir = ".commitview/layouts"

const layoutExt = ".json"

func layoutPath(name string) string {
	return path.Join(LayoutDir, name+layoutExt)
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// SaveLayout commits the attribute map of a viewer under name, replacing any
// earlier layout of that name.
func (p *Persistence) SaveLayout(name string, attributes map[string]string, identity core.Identity) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	if err := validName(name); err != nil {
		return Transaction{}, err
	}
	data, err := json.MarshalIndent(attributes, "", "  ")
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to marshal layout: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeFile(layoutPath(name), append(data, '\n'), identity, fmt.Sprintf("Saving layout %s", name))
}

// GetLayout returns the latest saved attributes of name.
func (p *Persistence) GetLayout(name string) (map[string]string, error) {
	return p.GetLayoutAsOf(name, "")
}

// GetLayoutAsOf returns the attributes of name as of rev, a transaction id
// or a snapshot tag.
func (p *Persistence) GetLayoutAsOf(name, rev string) (map[string]string, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, err := p.repo.Head(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
	}
	data, err := p.readFile(rev, layoutPath(name))
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	var attributes map[string]string
	if err := json.Unmarshal(data, &attributes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal layout %s: %w", name, err)
	}
	return attributes, nil
}

// ListLayouts returns the names of saved layouts in sorted order.
func (p *Persistence) ListLayouts() ([]string, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	files, err := p.listFiles(LayoutDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, file := range files {
		if name, ok := strings.CutSuffix(file, layoutExt); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (p *Persistence) DeleteLayout(name string, identity core.Identity) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	if err := validName(name); err != nil {
		return Transaction{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.readFile("", layoutPath(name)); err != nil {
		return Transaction{}, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
	}
	return p.deleteFile(layoutPath(name), identity, fmt.Sprintf("Deleting layout %s", name))
}

// LayoutHistory returns the transactions that saved or deleted name, newest
// first.
func (p *Persistence) LayoutHistory(name string) ([]Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.history(layoutPath(name))
}
