package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config values can be written as
// human-readable strings ("30s", "2m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Title        string        `yaml:"title"`
	Author       string        `yaml:"author"`
	Schedule     string        `yaml:"schedule"`
	RunOnStart   bool          `yaml:"run_on_start"`
	Sources      []Source      `yaml:"sources"`
	Destinations []Destination `yaml:"destinations"`
	Limits       Limits        `yaml:"limits"`
	Timeouts     Timeouts      `yaml:"timeouts"`
	Retry        Retry         `yaml:"retry"`
	Converter    Converter     `yaml:"converter"`
}

// Source identifies one configured news source. Immutable for a run.
type Source struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	URL         string   `yaml:"url"`
	MaxArticles int      `yaml:"max_articles"`
	MaxAge      Duration `yaml:"max_age"`
}

// DisplayName returns the section heading used for this source in the
// assembled document.
func (s Source) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

type Destination struct {
	ID    string           `yaml:"id"`
	Type  string           `yaml:"type"`
	Email EmailDestination `yaml:"email"`
	Dir   string           `yaml:"dir"`
}

type EmailDestination struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type Limits struct {
	MaxTotalArticles int `yaml:"max_total_articles"`
	MaxPerSource     int `yaml:"max_per_source"`
}

type Timeouts struct {
	Fetch   Duration `yaml:"fetch"`
	Convert Duration `yaml:"convert"`
	Deliver Duration `yaml:"deliver"`
}

type Retry struct {
	MaxRetries int      `yaml:"max_retries"`
	BaseDelay  Duration `yaml:"base_delay"`
}

type Converter struct {
	Engine string `yaml:"engine"`
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.Title == "" {
		cfg.Title = "Daily News"
	}
	if cfg.Author == "" {
		cfg.Author = "news2kindle"
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 6 * * *"
	}
	if cfg.Limits.MaxTotalArticles == 0 {
		cfg.Limits.MaxTotalArticles = 100
	}
	if cfg.Limits.MaxPerSource == 0 {
		cfg.Limits.MaxPerSource = 25
	}
	if cfg.Timeouts.Fetch == 0 {
		cfg.Timeouts.Fetch = Duration(30 * time.Second)
	}
	if cfg.Timeouts.Convert == 0 {
		cfg.Timeouts.Convert = Duration(2 * time.Minute)
	}
	if cfg.Timeouts.Deliver == 0 {
		cfg.Timeouts.Deliver = Duration(1 * time.Minute)
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 2
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = Duration(1 * time.Second)
	}
	if cfg.Converter.Engine == "" {
		cfg.Converter.Engine = "ebook-convert"
	}
	if cfg.Converter.Format == "" {
		cfg.Converter.Format = "epub"
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].MaxAge == 0 {
			cfg.Sources[i].MaxAge = Duration(24 * time.Hour)
		}
	}
	for i := range cfg.Destinations {
		if cfg.Destinations[i].Type == "email" && cfg.Destinations[i].Email.SMTPPort == 0 {
			cfg.Destinations[i].Email.SMTPPort = 587
		}
	}
}

func validate(cfg *Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("config: at least one source is required")
	}
	seen := make(map[string]bool)
	for _, src := range cfg.Sources {
		if src.ID == "" {
			return fmt.Errorf("config: source id is required")
		}
		if seen[src.ID] {
			return fmt.Errorf("config: duplicate source id %q", src.ID)
		}
		seen[src.ID] = true
		if src.URL == "" {
			return fmt.Errorf("config: source %s: url is required", src.ID)
		}
	}
	if len(cfg.Destinations) == 0 {
		return fmt.Errorf("config: at least one destination is required")
	}
	seenDest := make(map[string]bool)
	for _, dest := range cfg.Destinations {
		if dest.ID == "" {
			return fmt.Errorf("config: destination id is required")
		}
		if seenDest[dest.ID] {
			return fmt.Errorf("config: duplicate destination id %q", dest.ID)
		}
		seenDest[dest.ID] = true
		switch dest.Type {
		case "email":
			if dest.Email.SMTPHost == "" {
				return fmt.Errorf("config: destination %s: email.smtp_host is required", dest.ID)
			}
			if dest.Email.From == "" {
				return fmt.Errorf("config: destination %s: email.from is required", dest.ID)
			}
			if len(dest.Email.To) == 0 {
				return fmt.Errorf("config: destination %s: email.to is required", dest.ID)
			}
		case "filedrop":
			if dest.Dir == "" {
				return fmt.Errorf("config: destination %s: dir is required", dest.ID)
			}
		default:
			return fmt.Errorf("config: destination %s: unsupported type %q (supported: email, filedrop)", dest.ID, dest.Type)
		}
	}
	switch cfg.Converter.Engine {
	case "ebook-convert", "pandoc":
	default:
		return fmt.Errorf("config: unsupported converter engine %q (supported: ebook-convert, pandoc)", cfg.Converter.Engine)
	}
	return nil
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
