package models

// FactorRule is one weighted scoring rule from the external rule registry.
// The core receives an immutable ordered list per trial and never writes
// weight changes back; optimized weights live on in-memory copies only.
type FactorRule struct {
	Name       string  `json:"rule_name"`
	Category   string  `json:"category"`
	Expression string  `json:"expression"`
	Weight     float64 `json:"weight"` // >= 0
}

// CloneRules returns a deep copy of a rule list so a trial can adjust weights
// without touching the registry's snapshot.
func CloneRules(rules []FactorRule) []FactorRule {
	out := make([]FactorRule, len(rules))
	copy(out, rules)
	return out
}
