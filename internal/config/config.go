// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Config is the explicit configuration passed into the ledger, transport
// and CLI at construction time. Nothing in the settlement core reads the
// environment directly.
type Config struct {
	Cluster        string  `mapstructure:"cluster"`
	ClusterURL     string  `mapstructure:"cluster_url"`
	ProgramID      string  `mapstructure:"program_id"`
	KeypairPath    string  `mapstructure:"keypair_path"`
	WalletsFile    string  `mapstructure:"wallets_file"`
	CommissionRate float64 `mapstructure:"commission_rate"`
	SubmitTimeout  int     `mapstructure:"submit_timeout_ms"`
	JournalPath    string  `mapstructure:"journal_path"`
	LogFile        string  `mapstructure:"log_file"`
	DebugLogging   bool    `mapstructure:"debug_logging"`
}

const (
	DefaultCluster        = "localhost"
	DefaultCommissionRate = 0.10
	DefaultSubmitTimeout  = 30_000
	DefaultJournalPath    = "ico.db"
	DefaultLogFile        = "ico.log"
)

// clusterURLs maps well-known cluster names to their public RPC endpoints.
var clusterURLs = map[string]string{
	"mainnet":   "https://api.mainnet-beta.solana.com",
	"testnet":   "https://api.testnet.solana.com",
	"devnet":    "https://api.devnet.solana.com",
	"localhost": "http://localhost:8899",
}

// Load reads configuration from path, applies defaults and SOLANA_ICO_*
// environment overrides, and validates the result. A missing file is not
// an error; defaults plus environment then apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"cluster":           DefaultCluster,
		"commission_rate":   DefaultCommissionRate,
		"submit_timeout_ms": DefaultSubmitTimeout,
		"journal_path":      DefaultJournalPath,
		"log_file":          DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, err
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("SOLANA_ICO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key := range defaults {
		_ = v.BindEnv(key)
	}
	for _, key := range []string{"cluster_url", "program_id", "keypair_path", "wallets_file", "debug_logging"} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, Validate(&cfg)
}

func isNotExist(err error) bool {
	return strings.Contains(err.Error(), "no such file")
}

// Validate checks the configuration the way the CLI's `config verify`
// surfaces it, resolving cluster names to RPC URLs along the way.
func Validate(cfg *Config) error {
	if cfg.ClusterURL == "" {
		resolved, ok := clusterURLs[strings.ToLower(cfg.Cluster)]
		if !ok {
			return fmt.Errorf("unknown cluster %q and no cluster_url set", cfg.Cluster)
		}
		cfg.ClusterURL = resolved
	}
	parsed, err := url.Parse(cfg.ClusterURL)
	if err != nil || !strings.HasPrefix(parsed.Scheme, "http") {
		return errors.New("invalid cluster URL protocol")
	}
	if cfg.CommissionRate < 0 || cfg.CommissionRate > 1 {
		return errors.New("commission_rate must be within [0, 1]")
	}
	if cfg.SubmitTimeout <= 0 {
		return errors.New("invalid submit_timeout_ms")
	}
	return nil
}

// RequireProgramID returns the configured program ID or an error telling
// the operator how to set it.
func (c *Config) RequireProgramID() (string, error) {
	if c.ProgramID == "" {
		return "", errors.New("program_id is not set; set it in the config file or via SOLANA_ICO_PROGRAM_ID")
	}
	return c.ProgramID, nil
}
