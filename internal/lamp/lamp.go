// Package lamp computes expected lamp yields for the in-game lamp gacha:
// how much XP or gold an average lamp of a given level produces, and how
// many lamps a player needs to hit a target amount.
package lamp

import (
	"fmt"
	"math"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"mushbot/pkg/logx"
)

const numRarities = 11

// Kind selects which per-rarity value the calculation uses.
type Kind string

const (
	KindXP   Kind = "xp"
	KindGold Kind = "gold"
)

// Rarity is one drop tier with its payout values.
type Rarity struct {
	Name string `yaml:"name"`
	XP   int64  `yaml:"xp"`
	Gold int64  `yaml:"gold"`
}

// defaultRarities is the compiled-in payout table, lowest tier first. The
// order must line up with the probability columns in levelChances.
var defaultRarities = [numRarities]Rarity{
	{Name: "Common", XP: 100, Gold: 50},
	{Name: "Uncommon", XP: 250, Gold: 125},
	{Name: "Rare", XP: 600, Gold: 300},
	{Name: "Elite", XP: 1500, Gold: 750},
	{Name: "Epic", XP: 4000, Gold: 2000},
	{Name: "Legendary", XP: 10000, Gold: 5000},
	{Name: "Mythic", XP: 25000, Gold: 12500},
	{Name: "Ancient", XP: 60000, Gold: 30000},
	{Name: "Celestial", XP: 150000, Gold: 75000},
	{Name: "Divine", XP: 400000, Gold: 200000},
	{Name: "Eternal", XP: 1000000, Gold: 500000},
}

// Calculator answers lamp questions against a payout table.
type Calculator struct {
	log      logx.Logger
	rarities [numRarities]Rarity
}

func NewCalculator(log logx.Logger) *Calculator {
	return &Calculator{log: log, rarities: defaultRarities}
}

type configFile struct {
	Rarities []Rarity `yaml:"rarities"`
}

// LoadConfig overrides the payout table from a YAML file. The file must
// list exactly one entry per rarity tier, lowest first. An empty path
// keeps the compiled-in table.
func (c *Calculator) LoadConfig(path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read lamp config: %w", err)
	}
	var doc configFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse lamp config %s: %w", path, err)
	}
	if len(doc.Rarities) != numRarities {
		return fmt.Errorf("lamp config %s: expected %d rarities, got %d", path, numRarities, len(doc.Rarities))
	}
	for i, r := range doc.Rarities {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("lamp config %s: rarity %d has no name", path, i)
		}
		c.rarities[i] = r
	}
	c.log.Info("lamp payout table loaded", logx.String("path", path))
	return nil
}

// ParseKind normalizes user input into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xp":
		return KindXP, nil
	case "gold":
		return KindGold, nil
	default:
		return "", fmt.Errorf("unknown lamp value kind %q", s)
	}
}

func (r Rarity) value(kind Kind) int64 {
	if kind == KindGold {
		return r.Gold
	}
	return r.XP
}

// AveragePerLamp is the probability-weighted payout of one lamp at the
// given level.
func (c *Calculator) AveragePerLamp(kind Kind, level int) (float64, error) {
	if level < 1 || level > MaxLevel {
		return 0, fmt.Errorf("invalid lamp level %d, valid levels are 1-%d", level, MaxLevel)
	}
	probs := levelChances[level]
	var avg float64
	for i, p := range probs {
		avg += p * float64(c.rarities[i].value(kind))
	}
	return avg, nil
}

// Result is one lamps-needed computation.
type Result struct {
	Kind           Kind
	Level          int
	Target         int64
	LampsNeeded    int64
	AveragePerLamp float64
	TotalObtained  float64
}

// LampsNeeded computes how many lamps of the given level it takes, on
// average, to accumulate target.
func (c *Calculator) LampsNeeded(kind Kind, level int, target int64) (Result, error) {
	if target < 1 {
		return Result{}, fmt.Errorf("target must be positive, got %d", target)
	}
	avg, err := c.AveragePerLamp(kind, level)
	if err != nil {
		return Result{}, err
	}
	if avg <= 0 {
		return Result{}, fmt.Errorf("lamp level %d yields nothing for %s", level, kind)
	}
	needed := int64(math.Ceil(float64(target) / avg))
	return Result{
		Kind:           kind,
		Level:          level,
		Target:         target,
		LampsNeeded:    needed,
		AveragePerLamp: avg,
		TotalObtained:  float64(needed) * avg,
	}, nil
}

// Chance is one rarity tier's drop odds at a level, for display.
type Chance struct {
	Rarity      Rarity
	Probability float64
}

// Chances lists the tiers that can actually drop at the given level.
func (c *Calculator) Chances(level int) ([]Chance, error) {
	if level < 1 || level > MaxLevel {
		return nil, fmt.Errorf("invalid lamp level %d, valid levels are 1-%d", level, MaxLevel)
	}
	var out []Chance
	for i, p := range levelChances[level] {
		if p > 0 {
			out = append(out, Chance{Rarity: c.rarities[i], Probability: p})
		}
	}
	return out, nil
}
