package store

import (
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tartampluch/go-daybook/internal/config"
	"gopkg.in/yaml.v3"
)

//go:embed seed_rules.yaml
var seedRulesYAML []byte

type seedFile struct {
	Regions []seedRegion `yaml:"regions"`
}

type seedRegion struct {
	Region string     `yaml:"region"`
	Rules  []seedRule `yaml:"rules"`
}

type seedRule struct {
	Name  string `yaml:"name"`
	Month int    `yaml:"month"`
	Day   int    `yaml:"day"`
	Bank  bool   `yaml:"bank"`
}

// Seed inserts the embedded system holiday rules on first run. The presence
// of any system rule (including soft-deleted ones) marks the seed as applied;
// user deletions of system rules must survive restarts.
func (s *Store) Seed() error {
	var count int64
	if err := s.db.Unscoped().Model(&HolidayRule{}).Where("system = ?", true).Count(&count).Error; err != nil {
		return fmt.Errorf("%s: %w", config.ErrSeedApply, err)
	}
	if count > 0 {
		slog.Debug(config.MsgSeedSkipped, config.LogKeyComponent, config.CompStore)
		return nil
	}

	var file seedFile
	if err := yaml.Unmarshal(seedRulesYAML, &file); err != nil {
		return fmt.Errorf("%s: %w", config.ErrSeedDecode, err)
	}

	var rules []HolidayRule
	for _, region := range file.Regions {
		for _, r := range region.Rules {
			rules = append(rules, HolidayRule{
				ID:         uuid.New(),
				Name:       r.Name,
				Region:     region.Region,
				Bank:       r.Bank,
				Recurrence: config.RecurrenceFixed,
				Month:      r.Month,
				Day:        r.Day,
				System:     true,
				Enabled:    true,
			})
		}
	}

	if err := s.db.Create(&rules).Error; err != nil {
		return fmt.Errorf("%s: %w", config.ErrSeedApply, err)
	}

	slog.Info(config.MsgSeeded,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyCount, len(rules),
	)
	return nil
}

// SeedRegions lists the region codes present in the embedded seed packs, used
// by the settings window to offer subscription checkboxes.
func SeedRegions() ([]string, error) {
	var file seedFile
	if err := yaml.Unmarshal(seedRulesYAML, &file); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSeedDecode, err)
	}
	regions := make([]string, 0, len(file.Regions))
	for _, r := range file.Regions {
		regions = append(regions, r.Region)
	}
	return regions, nil
}
