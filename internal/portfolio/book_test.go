package portfolio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"MarketLens/internal/model"
)

func TestBook_SaveLoadPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolios.json")
	book, err := NewBook(path)
	if err != nil {
		t.Fatalf("NewBook failed: %v", err)
	}

	saved, err := book.Save("growth", map[string]model.Holding{
		"aapl": {Shares: 10, PurchasePrice: 150},
		"MSFT": {Shares: 2, PurchasePrice: 300},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, ok := saved.Holdings["AAPL"]; !ok {
		t.Errorf("expected normalised symbols, got %v", saved.Holdings)
	}

	reopened, err := NewBook(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	p, err := reopened.Load("growth")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(p.Holdings) != 2 || p.Holdings["MSFT"].Shares != 2 {
		t.Errorf("unexpected portfolio %+v", p)
	}
	if !p.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("CreatedAt not persisted: %v vs %v", p.CreatedAt, saved.CreatedAt)
	}
}

func TestBook_ListDelete(t *testing.T) {
	book, _ := NewBook("")
	h := map[string]model.Holding{"X": {Shares: 1, PurchasePrice: 1}}
	_, _ = book.Save("b", h)
	_, _ = book.Save("a", h)

	list := book.List()
	if len(list) != 2 || list[0].Name != "a" {
		t.Errorf("unexpected list %+v", list)
	}

	if err := book.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := book.Delete("a"); !errors.Is(err, ErrPortfolioNotFound) {
		t.Errorf("expected ErrPortfolioNotFound, got %v", err)
	}
	if _, err := book.Load("missing"); !errors.Is(err, ErrPortfolioNotFound) {
		t.Errorf("expected ErrPortfolioNotFound, got %v", err)
	}
}

func TestBook_RejectsInvalidHoldings(t *testing.T) {
	book, _ := NewBook("")
	_, err := book.Save("bad", map[string]model.Holding{"X": {Shares: 0, PurchasePrice: 10}})
	if !errors.Is(err, ErrInvalidHoldings) {
		t.Errorf("expected ErrInvalidHoldings, got %v", err)
	}
	if _, err := book.Save(" ", map[string]model.Holding{"X": {Shares: 1, PurchasePrice: 1}}); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestValidateHoldings(t *testing.T) {
	if err := ValidateHoldings(nil); !errors.Is(err, ErrInvalidHoldings) {
		t.Errorf("expected error for no holdings, got %v", err)
	}
	err := ValidateHoldings(map[string]model.Holding{
		"OK":  {Shares: 1, PurchasePrice: 1},
		"NEG": {Shares: -1, PurchasePrice: 1},
	})
	if err == nil || !errors.Is(err, ErrInvalidHoldings) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := err.Error(); got != "invalid holdings: NEG: Shares must be > 0" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestNormalizeHoldings_MergesDuplicates(t *testing.T) {
	out := NormalizeHoldings(map[string]model.Holding{
		"aapl":  {Shares: 1, PurchasePrice: 100},
		" AAPL": {Shares: 3, PurchasePrice: 200},
	})
	h := out["AAPL"]
	if len(out) != 1 || h.Shares != 4 || h.PurchasePrice != 175 {
		t.Errorf("unexpected merge %+v", out)
	}
}

func TestBook_FailedWriteKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	book, err := NewBook(filepath.Join(dir, "portfolios.json"))
	if err != nil {
		t.Fatalf("NewBook failed: %v", err)
	}
	if _, err := book.Save("keep", map[string]model.Holding{"AAPL": {Shares: 1, PurchasePrice: 100}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// a regular file where the book directory should be makes every write fail
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	book.filePath = filepath.Join(blocker, "portfolios.json")

	if _, err := book.Save("new", map[string]model.Holding{"MSFT": {Shares: 1, PurchasePrice: 10}}); err == nil {
		t.Fatal("expected Save to fail")
	}
	if _, err := book.Load("new"); !errors.Is(err, ErrPortfolioNotFound) {
		t.Errorf("failed Save must not add the portfolio, got %v", err)
	}

	if _, err := book.Save("keep", map[string]model.Holding{"TSLA": {Shares: 5, PurchasePrice: 200}}); err == nil {
		t.Fatal("expected Save to fail")
	}
	if err := book.Delete("keep"); err == nil {
		t.Fatal("expected Delete to fail")
	}
	p, err := book.Load("keep")
	if err != nil {
		t.Fatalf("failed writes must keep the portfolio: %v", err)
	}
	if _, ok := p.Holdings["AAPL"]; !ok || len(p.Holdings) != 1 {
		t.Errorf("failed Save must not replace holdings, got %v", p.Holdings)
	}
}
