package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"MarketLens/internal/model"
)

// ErrPortfolioNotFound is returned for unknown portfolio names.
var ErrPortfolioNotFound = errors.New("portfolio not found")

// Book stores named portfolios in a JSON file, guarded by a mutex.
type Book struct {
	mu         sync.Mutex
	filePath   string
	portfolios map[string]model.Portfolio
	now        func() time.Time
}

// NewBook creates a Book, loading existing portfolios from filePath.
// An empty filePath keeps the book in memory only.
func NewBook(filePath string) (*Book, error) {
	portfolios, err := loadBook(filePath)
	if err != nil {
		return nil, err
	}
	return &Book{filePath: filePath, portfolios: portfolios, now: time.Now}, nil
}

// Save creates or replaces a portfolio. CreatedAt survives replacement.
func (b *Book) Save(name string, holdings map[string]model.Holding) (model.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Portfolio{}, fmt.Errorf("%w: portfolio name is required", ErrInvalidHoldings)
	}
	holdings = NormalizeHoldings(holdings)
	if err := ValidateHoldings(holdings); err != nil {
		return model.Portfolio{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC()
	p := model.Portfolio{Name: name, Holdings: holdings, CreatedAt: now, UpdatedAt: now}
	if existing, ok := b.portfolios[name]; ok {
		p.CreatedAt = existing.CreatedAt
	}
	next := b.snapshot()
	next[name] = p
	if err := b.save(next); err != nil {
		return model.Portfolio{}, err
	}
	b.portfolios = next
	return p, nil
}

// Load returns the named portfolio.
func (b *Book) Load(name string) (model.Portfolio, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.portfolios[strings.TrimSpace(name)]
	if !ok {
		return model.Portfolio{}, ErrPortfolioNotFound
	}
	return copyPortfolio(p), nil
}

// List returns every portfolio sorted by name.
func (b *Book) List() []model.Portfolio {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Portfolio, 0, len(b.portfolios))
	for _, p := range b.portfolios {
		out = append(out, copyPortfolio(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Delete removes the named portfolio.
func (b *Book) Delete(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	name = strings.TrimSpace(name)
	if _, ok := b.portfolios[name]; !ok {
		return ErrPortfolioNotFound
	}
	next := b.snapshot()
	delete(next, name)
	if err := b.save(next); err != nil {
		return err
	}
	b.portfolios = next
	return nil
}

// snapshot returns a shallow copy of the book; callers hold b.mu.
func (b *Book) snapshot() map[string]model.Portfolio {
	next := make(map[string]model.Portfolio, len(b.portfolios)+1)
	for k, v := range b.portfolios {
		next[k] = v
	}
	return next
}

// save writes portfolios to the book file. The in-memory book is replaced
// only after this succeeds.
func (b *Book) save(portfolios map[string]model.Portfolio) error {
	if b.filePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(portfolios, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(b.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(b.filePath, data, 0644)
}

// loadBook reads portfolios from a JSON file. A missing file yields an empty book.
func loadBook(filePath string) (map[string]model.Portfolio, error) {
	portfolios := make(map[string]model.Portfolio)
	if filePath == "" {
		return portfolios, nil
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return portfolios, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &portfolios); err != nil {
		return nil, fmt.Errorf("decode portfolio book %s: %w", filePath, err)
	}
	return portfolios, nil
}

func copyPortfolio(p model.Portfolio) model.Portfolio {
	holdings := make(map[string]model.Holding, len(p.Holdings))
	for k, v := range p.Holdings {
		holdings[k] = v
	}
	p.Holdings = holdings
	return p
}
