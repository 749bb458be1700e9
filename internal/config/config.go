// Package config builds the single immutable configuration value the rest of
// the pipeline receives at startup. Sources, in increasing precedence:
// optional YAML file, environment variables (CHANPERF_* prefix), CLI flags
// applied by the caller. No other component reads ambient process state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "chanperf/internal/errors"
)

// EnvPrefix is the environment variable prefix for all settings.
const EnvPrefix = "CHANPERF"

// Config is the complete application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" envconfig:"STORE"`
	Report  ReportConfig  `yaml:"report" envconfig:"REPORT"`
	Browser BrowserConfig `yaml:"browser" envconfig:"BROWSER"`
	Sheets  SheetsConfig  `yaml:"sheets" envconfig:"SHEETS"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// StoreConfig identifies the merchant store and login credentials.
type StoreConfig struct {
	Slug     string `yaml:"slug" envconfig:"SLUG" validate:"required"`
	Host     string `yaml:"host" envconfig:"HOST" default:"admin.shopify.com" validate:"required,hostname"`
	Email    string `yaml:"email" envconfig:"EMAIL" validate:"omitempty,email"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	// OTPCode satisfies a second-factor challenge without an interactive
	// prompt when set.
	OTPCode   string `yaml:"otp_code" envconfig:"OTP_CODE"`
	AutoLogin bool   `yaml:"auto_login" envconfig:"AUTO_LOGIN" default:"false"`
}

// ReportConfig controls the date range and aggregation parameters.
type ReportConfig struct {
	Since        string `yaml:"since" envconfig:"SINCE" default:"2025-09-01" validate:"required,datetime=2006-01-02"`
	Until        string `yaml:"until" envconfig:"UNTIL" validate:"omitempty,datetime=2006-01-02"`
	Country      string `yaml:"country" envconfig:"COUNTRY" default:"US" validate:"required,len=2"`
	WeekStartDay int    `yaml:"week_start_day" envconfig:"WEEK_START_DAY" default:"0" validate:"min=0,max=6"`
	DownloadDir  string `yaml:"download_dir" envconfig:"DOWNLOAD_DIR" default:"downloads"`
}

// BrowserConfig controls the automated browser session.
type BrowserConfig struct {
	Headless        bool          `yaml:"headless" envconfig:"HEADLESS" default:"true"`
	SessionFile     string        `yaml:"session_file" envconfig:"SESSION_FILE" default:"session_state.json"`
	SealSession     bool          `yaml:"seal_session" envconfig:"SEAL_SESSION" default:"false"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout" envconfig:"NAVIGATE_TIMEOUT" default:"60s"`
	StepTimeout     time.Duration `yaml:"step_timeout" envconfig:"STEP_TIMEOUT" default:"15s"`
	AttemptTimeout  time.Duration `yaml:"attempt_timeout" envconfig:"ATTEMPT_TIMEOUT" default:"8s"`
	DownloadTimeout time.Duration `yaml:"download_timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"3m"`
}

// SheetsConfig controls the optional spreadsheet hand-off.
type SheetsConfig struct {
	Upload          bool   `yaml:"upload" envconfig:"UPLOAD" default:"false"`
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID" validate:"required_if=Upload true"`
	Tab             string `yaml:"tab" envconfig:"TAB" default:"summary"`
	Mode            string `yaml:"mode" envconfig:"MODE" default:"append" validate:"oneof=append overwrite"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE" default:"credentials.json"`
}

// LoggingConfig mirrors the logger setup: JSON records to console, a file, or
// both.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/reporter.log"`
}

// Load builds the configuration from the environment and, when present, the
// YAML file at configFile (empty means skip). File values fill in what the
// environment leaves unset.
func Load(configFile string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileCfg, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("load config file %s: %w", configFile, err)
			}
			mergeFromFile(&cfg, fileCfg)
		}
	}

	if cfg.Report.Until == "" {
		cfg.Report.Until = time.Now().Format("2006-01-02")
	}

	return &cfg, nil
}

// Validate checks the assembled configuration, including anything flags
// overrode after Load. Violations map to the fatal MissingConfig and
// InvalidRange kinds.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			f := verrs[0]
			return apperrors.Wrap(apperrors.KindMissingConfig, "config",
				fmt.Sprintf("invalid %s (rule %s)", f.Namespace(), f.Tag()), err)
		}
		return apperrors.Wrap(apperrors.KindMissingConfig, "config", "validation failed", err)
	}

	since, until, err := c.DateRange()
	if err != nil {
		return err
	}
	if until.Before(since) {
		return apperrors.Wrap(apperrors.KindInvalidRange, "config",
			fmt.Sprintf("until %s is before since %s", c.Report.Until, c.Report.Since), nil)
	}

	if c.Store.AutoLogin && (c.Store.Email == "" || c.Store.Password == "") {
		return apperrors.New(apperrors.KindMissingConfig, "config",
			"auto login requires both email and password")
	}
	return nil
}

// DateRange parses the configured since/until dates.
func (c *Config) DateRange() (since, until time.Time, err error) {
	since, err = time.Parse("2006-01-02", c.Report.Since)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Wrap(apperrors.KindMissingConfig, "config",
			fmt.Sprintf("invalid since date %q", c.Report.Since), err)
	}
	until, err = time.Parse("2006-01-02", c.Report.Until)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Wrap(apperrors.KindMissingConfig, "config",
			fmt.Sprintf("invalid until date %q", c.Report.Until), err)
	}
	return since, until, nil
}

// EnsureDirectories creates the directories the run writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Report.DownloadDir}
	if c.Logging.Output != "console" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeFromFile fills unset string fields from the file config; booleans and
// durations keep their env/default values unless the env left them zero.
func mergeFromFile(dst *Config, file *Config) {
	setIfEmpty(&dst.Store.Slug, file.Store.Slug)
	setIfEmpty(&dst.Store.Email, file.Store.Email)
	setIfEmpty(&dst.Store.Password, file.Store.Password)
	setIfEmpty(&dst.Store.OTPCode, file.Store.OTPCode)
	setIfEmpty(&dst.Report.Until, file.Report.Until)
	setIfEmpty(&dst.Sheets.SpreadsheetID, file.Sheets.SpreadsheetID)
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}
