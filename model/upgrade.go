package model

// UpgradeEffect names which part of the session an upgrade changes.
type UpgradeEffect string

const (
	EffectAddGates        UpgradeEffect = "gates"
	EffectProcessingSpeed UpgradeEffect = "processingSpeed"
	EffectRevenue         UpgradeEffect = "revenue"
	EffectSatisfaction    UpgradeEffect = "satisfaction"
	EffectOperatingCost   UpgradeEffect = "costs"
)

// Upgrade is a one-time purchase. Value is a gate count for EffectAddGates
// and a multiplier for every other effect.
type Upgrade struct {
	ID          string        `yaml:"id" json:"id"`
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description" json:"description"`
	Cost        int           `yaml:"cost" json:"cost"`
	Effect      UpgradeEffect `yaml:"effect" json:"effect"`
	Value       float64       `yaml:"value" json:"value"`
	Purchased   bool          `yaml:"-" json:"purchased"`
}

// Multipliers are the global factors folded in by upgrades. Each starts at
// 1.0 and only changes multiplicatively.
type Multipliers struct {
	ProcessingSpeed float64 `json:"processingSpeed"`
	Revenue         float64 `json:"revenue"`
	Satisfaction    float64 `json:"satisfaction"`
	OperatingCost   float64 `json:"operatingCost"`
}

// NeutralMultipliers returns all factors at 1.0.
func NeutralMultipliers() Multipliers {
	return Multipliers{ProcessingSpeed: 1, Revenue: 1, Satisfaction: 1, OperatingCost: 1}
}

// Apply folds a non-gate upgrade effect into m. It reports false for
// EffectAddGates and unknown effects, which leave m unchanged.
func (m *Multipliers) Apply(effect UpgradeEffect, value float64) bool {
	switch effect {
	case EffectProcessingSpeed:
		m.ProcessingSpeed *= value
	case EffectRevenue:
		m.Revenue *= value
	case EffectSatisfaction:
		m.Satisfaction *= value
	case EffectOperatingCost:
		m.OperatingCost *= value
	default:
		return false
	}
	return true
}
