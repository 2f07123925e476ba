package factors

import (
	"context"
	"time"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// RuleProvider is the read-only view of the external rule registry. The core
// never writes rule weights back; optimized weights travel on in-memory
// copies of the returned slice.
type RuleProvider interface {
	ActiveRules(ctx context.Context, asOf time.Time) ([]models.FactorRule, error)
}

// StaticRuleProvider serves a fixed rule snapshot. Used in tests and by
// callers that already hold a registry export.
type StaticRuleProvider struct {
	rules []models.FactorRule
}

// NewStaticRuleProvider copies the given rules into an immutable snapshot.
func NewStaticRuleProvider(rules []models.FactorRule) *StaticRuleProvider {
	return &StaticRuleProvider{rules: models.CloneRules(rules)}
}

// ActiveRules returns a fresh copy of the snapshot.
func (p *StaticRuleProvider) ActiveRules(_ context.Context, _ time.Time) ([]models.FactorRule, error) {
	return models.CloneRules(p.rules), nil
}
