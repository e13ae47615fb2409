package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// RulePack holds every threshold table and segmentation rule. It is loaded
// from YAML so the rule set stays inspectable outside the code.
type RulePack struct {
	Tiers    TierConfig    `yaml:"tiers"`
	Segments SegmentConfig `yaml:"segments"`
}

// TierConfig lists the scales used to discretise numeric fields.
type TierConfig struct {
	Balance TierScale `yaml:"balance"`
	Credit  TierScale `yaml:"credit"`
	Age     TierScale `yaml:"age"`
	Tenure  TierScale `yaml:"tenure"`
}

// SegmentConfig parameterises the risk-tier rules.
type SegmentConfig struct {
	Critical CriticalRule `yaml:"critical"`
	Medium   MediumRule   `yaml:"medium"`
}

// CriticalRule matches complainers at or below a satisfaction score.
type CriticalRule struct {
	MaxSatisfaction int `yaml:"max_satisfaction"`
}

// MediumRule matches customers in any of the listed balance or credit tiers.
type MediumRule struct {
	BalanceTiers []string `yaml:"balance_tiers"`
	CreditTiers  []string `yaml:"credit_tiers"`
}

// TierScale maps a number onto ordered bands. Bands are upper-inclusive and
// the last band must be open-ended, so every value gets exactly one label.
type TierScale struct {
	Bands []Band `yaml:"bands"`
}

// Band is one labelled interval. A nil Upper marks the open top band.
type Band struct {
	Label string   `yaml:"label"`
	Upper *float64 `yaml:"upper,omitempty"`

	upper decimal.Decimal
}

// RuleFile is the YAML root structure.
type RuleFile struct {
	Rules RulePack `yaml:"rules"`
}

// LoadRulePack reads a rule pack from path. An empty path or a missing file
// yields the built-in defaults.
func LoadRulePack(path string) (*RulePack, error) {
	if path == "" {
		return DefaultRulePack(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultRulePack(), nil
		}
		return nil, err
	}
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}
	pack := &file.Rules
	pack.fillDefaults()
	if err := pack.Validate(); err != nil {
		return nil, err
	}
	return pack, nil
}

// DefaultRulePack returns the calibrated thresholds.
func DefaultRulePack() *RulePack {
	pack := &RulePack{
		Tiers: TierConfig{
			Balance: scale([]string{"Zero", "Low", "Medium", "High", "Very High"}, 1, 50000, 100000, 150000),
			Credit:  scale([]string{"Poor", "Fair", "Good", "Very Good", "Excellent"}, 500, 600, 700, 800),
			Age:     scale([]string{"Young", "Adult", "Middle", "Mature", "Senior"}, 30, 40, 50, 60),
			Tenure:  scale([]string{"New", "Growing", "Stable", "Mature", "Loyal"}, 2, 4, 6, 8),
		},
		Segments: SegmentConfig{
			Critical: CriticalRule{MaxSatisfaction: 2},
			Medium:   MediumRule{BalanceTiers: []string{"Low"}, CreditTiers: []string{"Poor"}},
		},
	}
	if err := pack.Validate(); err != nil {
		panic(err)
	}
	return pack
}

func scale(labels []string, uppers ...float64) TierScale {
	bands := make([]Band, len(labels))
	for i, label := range labels {
		bands[i].Label = label
		if i < len(uppers) {
			upper := uppers[i]
			bands[i].Upper = &upper
		}
	}
	return TierScale{Bands: bands}
}

// fillDefaults substitutes default sections the YAML left out.
func (p *RulePack) fillDefaults() {
	def := DefaultRulePack()
	if len(p.Tiers.Balance.Bands) == 0 {
		p.Tiers.Balance = def.Tiers.Balance
	}
	if len(p.Tiers.Credit.Bands) == 0 {
		p.Tiers.Credit = def.Tiers.Credit
	}
	if len(p.Tiers.Age.Bands) == 0 {
		p.Tiers.Age = def.Tiers.Age
	}
	if len(p.Tiers.Tenure.Bands) == 0 {
		p.Tiers.Tenure = def.Tiers.Tenure
	}
	if p.Segments.Critical.MaxSatisfaction == 0 {
		p.Segments.Critical = def.Segments.Critical
	}
	if len(p.Segments.Medium.BalanceTiers) == 0 && len(p.Segments.Medium.CreditTiers) == 0 {
		p.Segments.Medium = def.Segments.Medium
	}
}

// Validate checks every scale and that segment rules reference known labels.
func (p *RulePack) Validate() error {
	scales := map[string]*TierScale{
		"balance": &p.Tiers.Balance,
		"credit":  &p.Tiers.Credit,
		"age":     &p.Tiers.Age,
		"tenure":  &p.Tiers.Tenure,
	}
	for name, s := range scales {
		if err := s.prepare(); err != nil {
			return fmt.Errorf("tier scale %s: %w", name, err)
		}
	}
	if p.Segments.Critical.MaxSatisfaction < 1 || p.Segments.Critical.MaxSatisfaction > 5 {
		return fmt.Errorf("critical rule: max_satisfaction %d outside 1..5", p.Segments.Critical.MaxSatisfaction)
	}
	for _, label := range p.Segments.Medium.BalanceTiers {
		if p.Tiers.Balance.Index(label) < 0 {
			return fmt.Errorf("medium rule: unknown balance tier %q", label)
		}
	}
	for _, label := range p.Segments.Medium.CreditTiers {
		if p.Tiers.Credit.Index(label) < 0 {
			return fmt.Errorf("medium rule: unknown credit tier %q", label)
		}
	}
	return nil
}

func (s *TierScale) prepare() error {
	if len(s.Bands) == 0 {
		return errors.New("no bands")
	}
	seen := make(map[string]struct{}, len(s.Bands))
	for i := range s.Bands {
		band := &s.Bands[i]
		if band.Label == "" {
			return fmt.Errorf("band %d has no label", i)
		}
		if _, dup := seen[band.Label]; dup {
			return fmt.Errorf("duplicate band label %q", band.Label)
		}
		seen[band.Label] = struct{}{}

		last := i == len(s.Bands)-1
		switch {
		case last && band.Upper != nil:
			return fmt.Errorf("top band %q must be open-ended", band.Label)
		case !last && band.Upper == nil:
			return fmt.Errorf("band %q needs an upper bound", band.Label)
		case !last && i > 0 && *band.Upper <= *s.Bands[i-1].Upper:
			return fmt.Errorf("band %q upper bound must increase", band.Label)
		}
		if band.Upper != nil {
			band.upper = decimal.NewFromFloat(*band.Upper)
		}
	}
	return nil
}

// Lookup returns the band index and label for v.
func (s TierScale) Lookup(v decimal.Decimal) (int, string) {
	last := len(s.Bands) - 1
	for i := 0; i < last; i++ {
		if v.Cmp(s.Bands[i].upper) <= 0 {
			return i, s.Bands[i].Label
		}
	}
	return last, s.Bands[last].Label
}

// LookupInt is Lookup for integer fields.
func (s TierScale) LookupInt(v int) (int, string) {
	return s.Lookup(decimal.NewFromInt(int64(v)))
}

// Index returns the position of label, or -1.
func (s TierScale) Index(label string) int {
	for i, band := range s.Bands {
		if band.Label == label {
			return i
		}
	}
	return -1
}

// Labels returns the band labels in order.
func (s TierScale) Labels() []string {
	labels := make([]string, len(s.Bands))
	for i, band := range s.Bands {
		labels[i] = band.Label
	}
	return labels
}
