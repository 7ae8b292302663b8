package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Target describes one configured job source. Greenhouse and lever targets
// need a board slug; json targets need the endpoint url.
type Target struct {
	Kind    string `mapstructure:"kind" validate:"required,oneof=greenhouse lever json"`
	Company string `mapstructure:"company" validate:"required"`
	Slug    string `mapstructure:"slug" validate:"required_unless=Kind json"`
	Url     string `mapstructure:"url" validate:"required_if=Kind json"`
}

type ScraperConfig struct {
	ScrapeInterval    time.Duration `mapstructure:"scrape_interval"`
	PilotJobsOnly     bool          `mapstructure:"pilot_jobs_only"`
	MinimumPilotScore int           `mapstructure:"minimum_pilot_score"`
	// GlobalCloseSweep restores the legacy closure behavior that also closes
	// jobs of sources which failed to scrape this cycle.
	GlobalCloseSweep     bool     `mapstructure:"global_close_sweep"`
	RetentionDays        int      `mapstructure:"retention_days"`
	MaxRequestsPerSecond float32  `mapstructure:"max_requests_per_second"`
	Targets              []Target `mapstructure:"targets"`
}

func (config *ScraperConfig) setDefaults() {
	if config.ScrapeInterval == 0 {
		config.ScrapeInterval = 3 * time.Hour
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = 90
	}
	if config.MaxRequestsPerSecond == 0 {
		config.MaxRequestsPerSecond = 1
	}
}

func (config ScraperConfig) validate() error {

	if len(config.Targets) == 0 {
		return fmt.Errorf("missing variable: at least one scraper target is required")
	}

	validate := validator.New()
	for i, target := range config.Targets {
		if err := validate.Struct(target); err != nil {
			return fmt.Errorf("target %d (%s): %w", i, target.Company, err)
		}
	}

	return nil
}

func (config ScraperConfig) bindEnvironmentVariables() error {

	err := viper.BindEnv("scraper.scrape_interval", "SCRAPE_INTERVAL")
	if err != nil {
		return err
	}

	err = viper.BindEnv("scraper.retention_days", "RETENTION_DAYS")
	if err != nil {
		return err
	}

	return viper.BindEnv("scraper.global_close_sweep", "GLOBAL_CLOSE_SWEEP")
}
