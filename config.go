package snaplisp

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// DefaultConfigFile is the config file name looked up by the CLI.
const DefaultConfigFile = "snaplisp.yaml"

// Config represents the SnapLisp configuration
type Config struct {
	InputDir  string         `yaml:"input_dir"`
	OutputDir string         `yaml:"output_dir"`
	Exclude   []string       `yaml:"exclude"`
	Emit      EmitConfig     `yaml:"emit"`
	Analyzer  AnalyzerConfig `yaml:"analyzer"`
	Literate  LiterateConfig `yaml:"literate"`

	excludes []glob.Glob
}

// EmitConfig represents PHP generation settings
type EmitConfig struct {
	Mode string `yaml:"mode"`
	// Pointer to distinguish between unset and false. Source maps are on unless disabled.
	SourceMaps         *bool  `yaml:"source_maps"`
	RuntimeClass       string `yaml:"runtime_class"`
	PHPNamespacePrefix string `yaml:"php_namespace_prefix"`
}

// SourceMapsEnabled returns true unless source_maps: false is set
func (e EmitConfig) SourceMapsEnabled() bool {
	return e.SourceMaps == nil || *e.SourceMaps
}

// AnalyzerConfig represents macro expansion and namespace settings
type AnalyzerConfig struct {
	MaxMacroDepth        int    `yaml:"max_macro_depth"`
	StrictMacroConflicts bool   `yaml:"strict_macro_conflicts"`
	DefaultNamespace     string `yaml:"default_namespace"`
}

// LiterateConfig represents Markdown source settings
type LiterateConfig struct {
	Languages []string `yaml:"languages"`
}

var (
	validModes = map[string]bool{
		"statement": true,
		"file":      true,
		"cache":     true,
	}

	phpClassName  = regexp.MustCompile(`^\\?[A-Za-z_][A-Za-z0-9_]*(\\[A-Za-z_][A-Za-z0-9_]*)*$`)
	namespaceName = regexp.MustCompile(`^[^\s/()\[\]{}"';,` + "`" + `]+$`)
)

// LoadConfig loads configuration from the specified file
func LoadConfig(configPath string) (*Config, error) {
	// Load .env files first
	err := loadEnvFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to load environment files: %w", err)
	}

	// Return default configuration if file doesn't exist
	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		config := getDefaultConfig()
		expandConfigEnvVars(config)

		if err := config.compileExcludes(); err != nil {
			return nil, err
		}

		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var config Config

	err := yaml.UnmarshalWithOptions(data, &config, yaml.Strict())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	applyDefaults(&config)
	expandConfigEnvVars(&config)

	if err := config.compileExcludes(); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration for common errors and inconsistencies
func validateConfig(config *Config) error {
	if config.Emit.Mode != "" && !validModes[strings.ToLower(config.Emit.Mode)] {
		return fmt.Errorf("%w: invalid emit.mode '%s': must be one of statement, file, cache", ErrConfigValidation, config.Emit.Mode)
	}

	if config.Emit.RuntimeClass != "" && !phpClassName.MatchString(config.Emit.RuntimeClass) {
		return fmt.Errorf("%w: emit.runtime_class '%s' is not a PHP class name", ErrConfigValidation, config.Emit.RuntimeClass)
	}

	if prefix := strings.Trim(config.Emit.PHPNamespacePrefix, `\`); prefix != "" && !phpClassName.MatchString(prefix) {
		return fmt.Errorf("%w: emit.php_namespace_prefix '%s' is not a PHP namespace", ErrConfigValidation, config.Emit.PHPNamespacePrefix)
	}

	if config.Analyzer.MaxMacroDepth < 0 {
		return fmt.Errorf("%w: analyzer.max_macro_depth must be non-negative, got %d", ErrConfigValidation, config.Analyzer.MaxMacroDepth)
	}

	if ns := config.Analyzer.DefaultNamespace; ns != "" && !namespaceName.MatchString(ns) {
		return fmt.Errorf("%w: analyzer.default_namespace '%s' is not a valid namespace name", ErrConfigValidation, ns)
	}

	for _, pattern := range config.Exclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("%w: %w '%s': %w", ErrConfigValidation, ErrInvalidExcludePattern, pattern, err)
		}
	}

	for _, lang := range config.Literate.Languages {
		if strings.TrimSpace(lang) == "" {
			return fmt.Errorf("%w: literate.languages must not contain empty entries", ErrConfigValidation)
		}
	}

	return nil
}

// getDefaultConfig returns the default configuration
func getDefaultConfig() *Config {
	config := &Config{}
	applyDefaults(config)

	return config
}

// applyDefaults applies default values to missing configuration fields
func applyDefaults(config *Config) {
	if config.InputDir == "" {
		config.InputDir = "./src"
	}

	if config.OutputDir == "" {
		config.OutputDir = "./out"
	}

	if config.Exclude == nil {
		config.Exclude = []string{"**/_*.lisp"}
	}

	if config.Emit.Mode == "" {
		config.Emit.Mode = "file"
	}

	config.Emit.Mode = strings.ToLower(config.Emit.Mode)

	if config.Emit.RuntimeClass == "" {
		config.Emit.RuntimeClass = `\SnapLisp\Runtime`
	}

	if config.Analyzer.MaxMacroDepth == 0 {
		config.Analyzer.MaxMacroDepth = 512
	}

	if config.Analyzer.DefaultNamespace == "" {
		config.Analyzer.DefaultNamespace = "user"
	}

	if len(config.Literate.Languages) == 0 {
		config.Literate.Languages = []string{"snaplisp", "lisp"}
	}

	for i, lang := range config.Literate.Languages {
		config.Literate.Languages[i] = strings.ToLower(strings.TrimSpace(lang))
	}
}

func (c *Config) compileExcludes() error {
	c.excludes = c.excludes[:0]

	for _, pattern := range c.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return fmt.Errorf("%w '%s': %w", ErrInvalidExcludePattern, pattern, err)
		}

		c.excludes = append(c.excludes, g)
	}

	return nil
}

// IsExcluded reports whether a path relative to the input directory matches an exclude
// pattern. A leading "**/" also matches files directly inside the input directory.
func (c *Config) IsExcluded(rel string) bool {
	if len(c.excludes) != len(c.Exclude) {
		if err := c.compileExcludes(); err != nil {
			return false
		}
	}

	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")

	for _, g := range c.excludes {
		if g.Match(rel) || g.Match("/"+rel) {
			return true
		}
	}

	return false
}

// loadEnvFiles loads .env files if they exist
func loadEnvFiles() error {
	if fileExists(".env") {
		err := godotenv.Load(".env")
		if err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	return nil
}

var (
	bracedEnvVar = regexp.MustCompile(`\$\{([^}]+)\}`)
	plainEnvVar  = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
func expandEnvVars(s string) string {
	s = bracedEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})

	return plainEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[1:])
	})
}

// expandConfigEnvVars expands environment variables in path fields
func expandConfigEnvVars(config *Config) {
	config.InputDir = expandEnvVars(config.InputDir)
	config.OutputDir = expandEnvVars(config.OutputDir)
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
