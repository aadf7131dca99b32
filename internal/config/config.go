package config

import (
	"fmt"
	"os"
	"time"

	"StakePool/internal/model"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. STAKEPOOL_POOL_OWNER.
const EnvPrefix = "stakepool"

// GenesisBalance seeds the token bank the first time it is created.
type GenesisBalance struct {
	Token   string `yaml:"token"`
	Address string `yaml:"address"`
	Amount  string `yaml:"amount"`
	// Approve also grants the custodian an allowance of Amount.
	Approve bool `yaml:"approve"`
}

// Config holds all application configuration.
type Config struct {
	Pool struct {
		Owner             string         `yaml:"owner" envconfig:"owner"`
		Custodian         string         `yaml:"custodian" envconfig:"custodian"`
		StakeToken        string         `yaml:"stake_token" envconfig:"stake_token"`
		RewardToken       string         `yaml:"reward_token" envconfig:"reward_token"`
		RewardRatePercent *uint64        `yaml:"reward_rate_percent" envconfig:"reward_rate_percent"`
		LockedTime        *time.Duration `yaml:"locked_time" envconfig:"locked_time"`
		RewardPeriod      time.Duration  `yaml:"reward_period" envconfig:"reward_period"`
		PenaltyPercent    *uint64        `yaml:"penalty_percent" envconfig:"penalty_percent"`
	} `yaml:"pool" envconfig:"pool"`
	State struct {
		File string `yaml:"file" envconfig:"file"`
	} `yaml:"state" envconfig:"state"`
	Tokens struct {
		StateFile string           `yaml:"state_file" envconfig:"state_file"`
		Genesis   []GenesisBalance `yaml:"genesis" ignored:"true"`
	} `yaml:"tokens" envconfig:"tokens"`
	API struct {
		Listen string `yaml:"listen" envconfig:"listen"`
	} `yaml:"api" envconfig:"api"`
	Schedule struct {
		ReportCron   string `yaml:"report_cron" envconfig:"report_cron"`
		SnapshotCron string `yaml:"snapshot_cron" envconfig:"snapshot_cron"`
		RunOnStart   bool   `yaml:"run_on_start" envconfig:"run_on_start"`
	} `yaml:"schedule" envconfig:"schedule"`
	Telegram struct {
		BotToken     string `yaml:"bot_token" envconfig:"bot_token"`
		ChatID       string `yaml:"chat_id" envconfig:"chat_id"`
		NotifyEvents bool   `yaml:"notify_events" envconfig:"notify_events"`
	} `yaml:"telegram" envconfig:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"sqlite_path"`
	} `yaml:"database" envconfig:"database"`
	Proxy string `yaml:"proxy" envconfig:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if cfg.Proxy == "" {
		cfg.Proxy = os.Getenv("HTTPS_PROXY")
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Pool.Custodian == "" {
		c.Pool.Custodian = "pool"
	}
	if c.Pool.StakeToken == "" {
		c.Pool.StakeToken = "STK"
	}
	if c.Pool.RewardToken == "" {
		c.Pool.RewardToken = "RWD"
	}
	if c.Pool.RewardRatePercent == nil {
		c.Pool.RewardRatePercent = uint64Ptr(20)
	}
	if c.Pool.LockedTime == nil {
		c.Pool.LockedTime = durationPtr(1200 * time.Second)
	}
	if c.Pool.RewardPeriod == 0 {
		c.Pool.RewardPeriod = 600 * time.Second
	}
	if c.Pool.PenaltyPercent == nil {
		c.Pool.PenaltyPercent = uint64Ptr(20)
	}
	if c.State.File == "" {
		c.State.File = "data/pool_state.json"
	}
	if c.Tokens.StateFile == "" {
		c.Tokens.StateFile = "data/token_bank.json"
	}
	if c.API.Listen == "" {
		c.API.Listen = ":8080"
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 0 9 * * *"
	}
	if c.Schedule.SnapshotCron == "" {
		c.Schedule.SnapshotCron = "0 */15 * * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/stakepool.db"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Pool.Owner == "" {
		return fmt.Errorf("pool.owner is required")
	}
	if c.Pool.StakeToken == c.Pool.RewardToken {
		return fmt.Errorf("pool.stake_token and pool.reward_token must differ")
	}
	if c.Pool.RewardPeriod <= 0 {
		return fmt.Errorf("pool.reward_period must be positive")
	}
	if *c.Pool.LockedTime < 0 {
		return fmt.Errorf("pool.locked_time must not be negative")
	}
	if *c.Pool.PenaltyPercent > 100 {
		return fmt.Errorf("pool.penalty_percent must be at most 100")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	for i, g := range c.Tokens.Genesis {
		if g.Token != c.Pool.StakeToken && g.Token != c.Pool.RewardToken {
			return fmt.Errorf("tokens.genesis[%d]: unknown token %q", i, g.Token)
		}
		if g.Address == "" {
			return fmt.Errorf("tokens.genesis[%d]: address is required", i)
		}
		if _, err := model.ParseAmount(g.Amount); err != nil {
			return fmt.Errorf("tokens.genesis[%d]: %w", i, err)
		}
	}
	return nil
}

// PoolParams returns the configured pool parameters.
func (c *Config) PoolParams() model.PoolParams {
	return model.PoolParams{
		Owner:             model.Address(c.Pool.Owner),
		Custodian:         model.Address(c.Pool.Custodian),
		StakeToken:        model.TokenID(c.Pool.StakeToken),
		RewardToken:       model.TokenID(c.Pool.RewardToken),
		RewardRatePercent: *c.Pool.RewardRatePercent,
		LockedTime:        *c.Pool.LockedTime,
		RewardPeriod:      c.Pool.RewardPeriod,
		PenaltyPercent:    *c.Pool.PenaltyPercent,
	}
}

// TelegramEnabled reports whether outgoing notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func uint64Ptr(v uint64) *uint64 { return &v }

func durationPtr(d time.Duration) *time.Duration { return &d }
