package cmd

import (
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-matcher/internal/catalog"
	"github.com/spigell/resume-matcher/internal/embedcache"
	"github.com/spigell/resume-matcher/internal/errs"
	"github.com/spigell/resume-matcher/internal/evidence"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/planner"
)

const (
	app       = "resume-matcher"
	envPrefix = "RESUME_MATCHER"
)

type Config struct {
	Data     DataConfig     `mapstructure:"data"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Index    IndexConfig    `mapstructure:"index"`
	Matching MatchingConfig `mapstructure:"matching"`
	Plan     PlanConfig     `mapstructure:"plan"`
	Evidence EvidenceConfig `mapstructure:"evidence"`
	Encoder  EncoderConfig  `mapstructure:"encoder"`
	Filters  FiltersConfig  `mapstructure:"filters"`
}

type DataConfig struct {
	Skills      string `mapstructure:"skills" validate:"required"`
	Jobs        string `mapstructure:"jobs" validate:"required"`
	LearningMap string `mapstructure:"learning-map" validate:"required"`
	MaxJobs     int    `mapstructure:"max-jobs" validate:"gte=0"`
}

type CacheConfig struct {
	Path         string `mapstructure:"path"`
	Quantization string `mapstructure:"quantization" validate:"oneof=none int8 binary"`
}

type IndexConfig struct {
	Metric string `mapstructure:"metric" validate:"oneof=ip l2"`
}

type MatchingConfig struct {
	TopK             int     `mapstructure:"top-k" validate:"gte=1"`
	SemanticWeight   float64 `mapstructure:"semantic-weight" validate:"gte=0,lte=1"`
	KeywordWeight    float64 `mapstructure:"keyword-weight" validate:"gte=0,lte=1"`
	MaxQueryChars    int     `mapstructure:"max-query-chars" validate:"gte=1"`
	DescriptionChars int     `mapstructure:"description-chars" validate:"gte=1"`
	DegradedMode     string  `mapstructure:"degraded-mode" validate:"oneof=lexical fail"`
}

type PlanConfig struct {
	MaxEntries int `mapstructure:"max-entries" validate:"gte=1"`
}

type EvidenceConfig struct {
	SnippetChars int `mapstructure:"snippet-chars" validate:"gte=1"`
}

type EncoderConfig struct {
	Provider  string       `mapstructure:"provider" validate:"oneof=gemini hashing"`
	Dimension int          `mapstructure:"dimension" validate:"gte=0"`
	Gemini    GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile        string  `mapstructure:"api-key-file"`
	Model             string  `mapstructure:"model"`
	TaskType          string  `mapstructure:"task-type"`
	MaxRetries        int     `mapstructure:"max-retries" validate:"gte=0"`
	BatchSize         int     `mapstructure:"batch-size" validate:"gte=0,lte=100"`
	Concurrency       int     `mapstructure:"concurrency" validate:"gte=0"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second" validate:"gte=0"`
}

type FiltersConfig struct {
	MinimumScore     float64  `mapstructure:"minimum-score" validate:"gte=0,lte=1"`
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-matcher ranks jobs against a resume and builds a learning plan for the missing skills",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("encoder.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().IntP("top-k", "k", matching.DefaultTopK, "number of jobs to return")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("matching.top-k", rootCmd.PersistentFlags().Lookup("top-k"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.skills", "data/skills.json")
	v.SetDefault("data.jobs", "data/jobs.json")
	v.SetDefault("data.learning-map", "data/learning_map.json")
	v.SetDefault("data.max-jobs", catalog.DefaultMaxJobs)

	v.SetDefault("cache.path", embedcache.DefaultPath)
	v.SetDefault("cache.quantization", "binary")
	v.SetDefault("index.metric", "ip")

	v.SetDefault("matching.top-k", matching.DefaultTopK)
	v.SetDefault("matching.semantic-weight", matching.DefaultSemanticWeight)
	v.SetDefault("matching.keyword-weight", matching.DefaultKeywordWeight)
	v.SetDefault("matching.max-query-chars", matching.DefaultMaxQueryChars)
	v.SetDefault("matching.description-chars", matching.DefaultDescriptionChars)
	v.SetDefault("matching.degraded-mode", string(matching.DegradeLexical))

	v.SetDefault("plan.max-entries", planner.DefaultMaxEntries)
	v.SetDefault("evidence.snippet-chars", evidence.DefaultSnippetChars)

	v.SetDefault("encoder.provider", "hashing")
	v.SetDefault("encoder.dimension", 0)
	v.SetDefault("encoder.gemini.model", "gemini-embedding-001")
	v.SetDefault("encoder.gemini.task-type", "SEMANTIC_SIMILARITY")
	v.SetDefault("encoder.gemini.max-retries", 3)
	v.SetDefault("encoder.gemini.batch-size", 100)
	v.SetDefault("encoder.gemini.concurrency", 4)
	v.SetDefault("encoder.gemini.requests-per-second", 5)

	v.SetDefault("filters.minimum-score", 0)
	v.SetDefault("filters.exclude-companies", []string{})
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config file is fine; defaults and env cover everything.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errs.Config("config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errs.Config("config", err)
	}
	if c.Matching.SemanticWeight+c.Matching.KeywordWeight == 0 {
		return errs.Config("config", errors.New("matching weights must not both be zero"))
	}
	return nil
}
