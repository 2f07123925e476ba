package dataprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/database"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// PostgresRuleProvider serves active factor rules from the rule registry
// table. It is read-only; optimized weights are never written back.
type PostgresRuleProvider struct {
	db *database.DB
}

// NewPostgresRuleProvider creates a rule provider over the registry table.
func NewPostgresRuleProvider(db *database.DB) *PostgresRuleProvider {
	return &PostgresRuleProvider{db: db}
}

// ActiveRules returns the rules active as of the given date, in stable name
// order so every trial sees the same factor ordering.
func (p *PostgresRuleProvider) ActiveRules(ctx context.Context, asOf time.Time) ([]models.FactorRule, error) {
	query := `
		SELECT rule_name, category, expression, weight
		FROM factor_rules
		WHERE active AND effective_from <= $1
		ORDER BY rule_name
	`

	rows, err := p.db.Pool().Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query factor rules: %w", err)
	}
	defer rows.Close()

	var rules []models.FactorRule
	for rows.Next() {
		var rule models.FactorRule
		if err := rows.Scan(&rule.Name, &rule.Category, &rule.Expression, &rule.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan factor rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}
