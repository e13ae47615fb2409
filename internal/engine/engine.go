package engine

import (
	"errors"
	"log/slog"

	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/store"
)

var (
	// ErrUnknownDimension is returned for a grouping dimension outside the catalogue.
	ErrUnknownDimension = errors.New("unknown dimension")
	// ErrInvalidPredicate is returned for malformed filter predicates.
	ErrInvalidPredicate = errors.New("invalid predicate")
)

// Engine computes churn breakdowns, risk tiers and filtered views over a
// customer table. It holds no per-request state and is safe for concurrent use.
type Engine struct {
	pack   *RulePack
	logger *slog.Logger
	seg    classifier
	dims   map[string]Dimension
	order  []string
}

// NewEngine builds an engine from a rule pack file; see LoadRulePack.
func NewEngine(rulesPath string, logger *slog.Logger) (*Engine, error) {
	pack, err := LoadRulePack(rulesPath)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("rule pack loaded", slog.String("path", rulesPath))
	return New(pack, logger), nil
}

// New builds an engine from an already validated rule pack. A nil pack uses defaults.
func New(pack *RulePack, logger *slog.Logger) *Engine {
	if pack == nil {
		pack = DefaultRulePack()
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{pack: pack, logger: logger, seg: newClassifier(pack)}
	e.dims, e.order = catalogue(pack, e.seg)
	return e
}

// Rules exposes the active rule pack.
func (e *Engine) Rules() *RulePack { return e.pack }

// Baseline returns churn counts over the whole view.
func Baseline(view store.View) models.ChurnStats {
	stats := models.ChurnStats{Count: view.Len()}
	view.Each(func(c models.Customer) bool {
		if c.Exited {
			stats.Churned++
		}
		return true
	})
	return stats
}

// BalanceTier returns the balance band label of c.
func (e *Engine) BalanceTier(c models.Customer) string {
	_, label := e.pack.Tiers.Balance.Lookup(c.Balance)
	return label
}

// CreditTier returns the credit band label of c.
func (e *Engine) CreditTier(c models.Customer) string {
	_, label := e.pack.Tiers.Credit.LookupInt(c.CreditScore)
	return label
}
