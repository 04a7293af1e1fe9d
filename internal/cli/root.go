package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/verity/verity/internal/model"
)

const defaultOllamaURL = "http://localhost:11434"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "verity",
	Short: "Verity - naturalization eligibility checks over submitted documents",
	Long: `Verity reads the documents submitted with a naturalization application,
extracts their facts with a vision-language model, folds them into one
knowledge graph per applicant and evaluates a fixed set of eligibility rules.

The result is a report of failed checks with an overall verdict:
SUCCESS, WARNING or CRITICAL_ERROR.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("verity v0.3.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.verity/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("provider", "", "extraction backend (openai, anthropic, ollama)")
	flags.String("model", "", "vision-language model name")
	flags.String("base-url", "", "extraction backend base URL")
	flags.String("source-url", "", "document source base URL")
	flags.Int("documents", 0, "documents processed concurrently")
	flags.Duration("document-timeout", 0, "per-document processing timeout")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("backend.provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("backend.model", flags.Lookup("model"))
	_ = viper.BindPFlag("backend.base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("source.base_url", flags.Lookup("source-url"))
	_ = viper.BindPFlag("concurrency.documents", flags.Lookup("documents"))
	_ = viper.BindPFlag("document_timeout", flags.Lookup("document-timeout"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".verity"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	configureViper(viper.GetViper(), model.DefaultConfig())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// configureViper registers every config key with its default so that
// VERITY_* variables resolve during Unmarshal
func configureViper(v *viper.Viper, defaults *model.Config) {
	v.SetEnvPrefix("VERITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend.provider", defaults.Backend.Provider)
	v.SetDefault("backend.model", defaults.Backend.Model)
	v.SetDefault("backend.api_key", defaults.Backend.APIKey)
	v.SetDefault("backend.base_url", defaults.Backend.BaseURL)
	v.SetDefault("backend.timeout", defaults.Backend.Timeout)
	v.SetDefault("backend.max_tokens", defaults.Backend.MaxTokens)
	v.SetDefault("backend.temperature", defaults.Backend.Temperature)
	v.SetDefault("backend.requests_per_second", defaults.Backend.RequestsPerSecond)
	v.SetDefault("backend.burst", defaults.Backend.Burst)

	v.SetDefault("source.base_url", defaults.Source.BaseURL)
	v.SetDefault("source.timeout", defaults.Source.Timeout)
	v.SetDefault("source.user_agent", defaults.Source.UserAgent)
	v.SetDefault("source.max_body_bytes", defaults.Source.MaxBodyBytes)

	v.SetDefault("render.dpi", defaults.Render.DPI)
	v.SetDefault("render.max_pages", defaults.Render.MaxPages)
	v.SetDefault("render.max_dimension", defaults.Render.MaxDimension)
	v.SetDefault("render.jpeg_quality", defaults.Render.JPEGQuality)

	v.SetDefault("concurrency.render_workers", defaults.Concurrency.RenderWorkers)
	v.SetDefault("concurrency.documents", defaults.Concurrency.Documents)

	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.report_ttl", defaults.Server.ReportTTL)

	v.SetDefault("proxy.http", defaults.Proxy.HTTP)
	v.SetDefault("proxy.https", defaults.Proxy.HTTPS)
	v.SetDefault("proxy.no_proxy", defaults.Proxy.NoProxy)

	v.SetDefault("document_timeout", defaults.DocumentTimeout)
	v.SetDefault("verbose", defaults.Verbose)
}

// decodeConfig builds the effective configuration from v
func decodeConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Provider keys follow the usual vendor variables when not configured
	if cfg.Backend.APIKey == "" {
		switch cfg.Backend.Provider {
		case "anthropic", "claude":
			cfg.Backend.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai", "vllm", "":
			cfg.Backend.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Backend.Provider == "ollama" && cfg.Backend.BaseURL == model.DefaultConfig().Backend.BaseURL {
		cfg.Backend.BaseURL = defaultOllamaURL
		if env := os.Getenv("OLLAMA_BASE_URL"); env != "" {
			cfg.Backend.BaseURL = env
		}
	}

	return cfg, nil
}

// loadConfig returns the configuration assembled from flags, env and file
func loadConfig() (*model.Config, error) {
	return decodeConfig(viper.GetViper())
}

// newLogger builds the process logger: text on stderr, debug under --verbose
func newLogger(cfg *model.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose || verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
