package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Output          string `yaml:"output"`
	Height          int    `yaml:"height"`
	ContinueOnError bool   `yaml:"continue_on_error"`
	Debug           bool   `yaml:"debug"`

	DefaultURL     string `yaml:"default_url"`
	DefaultChapter string `yaml:"default_chapter"`
	DefaultRange   string `yaml:"default_range"`

	Cookie     string `yaml:"cookie"`
	CookieFile string `yaml:"cookie_file"`
	UserAgent  string `yaml:"user_agent"`
}

// Options carries everything the CLI flags may override. Merged once
// at startup into an immutable Config handed to the orchestrator; no
// ambient flag lookups after that.
type Options struct {
	IgnoreConfig    bool
	Debug           bool
	Output          string
	Height          int
	ContinueOnError bool
	DefaultURL      string
	DefaultChapter  string
	DefaultRange    string
	Cookie          string
	CookieFile      string
	UserAgent       string
}

func DefaultConfig() *Config {
	return &Config{
		Output:          ".",
		Height:          0,
		ContinueOnError: false,
		Debug:           false,
		DefaultURL:      "",
		DefaultChapter:  "",
		DefaultRange:    "",
		Cookie:          "",
		CookieFile:      "",
		UserAgent:       "",
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `mangapark-dl config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Height != 0 {
		c.Height = o.Height
	}
	if o.ContinueOnError {
		c.ContinueOnError = true
	}
	if o.Debug {
		c.Debug = true
	}
	if o.DefaultURL != "" {
		c.DefaultURL = o.DefaultURL
	}
	if o.DefaultChapter != "" {
		c.DefaultChapter = o.DefaultChapter
	}
	if o.DefaultRange != "" {
		c.DefaultRange = o.DefaultRange
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "."
	}
	if c.Height < 0 {
		c.Height = 0
	}
}

func (c *Config) Print() {
	if c.Output != "" {
		fmt.Printf(" -output: %s\n", c.Output)
	}
	if c.Height > 0 {
		fmt.Printf(" -height: %d\n", c.Height)
	}
	if c.ContinueOnError {
		fmt.Printf(" -continue_on_error: %t\n", c.ContinueOnError)
	}
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if c.DefaultURL != "" {
		fmt.Printf(" -url: %s\n", c.DefaultURL)
	}
	if c.DefaultChapter != "" {
		fmt.Printf(" -chapter: %s\n", c.DefaultChapter)
	}
	if c.DefaultRange != "" {
		fmt.Printf(" -chapters: %s\n", c.DefaultRange)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		fmt.Printf(" -user_agent: %s\n", c.UserAgent)
	}
}
