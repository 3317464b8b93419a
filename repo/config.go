package repo

import (
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Config struct {
	RepoRoot string   `mapstructure:"-" toml:"-"`
	DialUrl  string   `mapstructure:"dial_url" toml:"dial_url"`
	Registry Registry `mapstructure:"registry" toml:"registry"`
	Ledger   Ledger   `mapstructure:"ledger" toml:"ledger"`
	Retry    Retry    `mapstructure:"retry" toml:"retry"`
	Log      Log      `mapstructure:"log" toml:"log"`
}

type Log struct {
	Level        string        `mapstructure:"level" toml:"level"`
	Filename     string        `mapstructure:"filename" toml:"filename"`
	ReportCaller bool          `mapstructure:"report_caller" toml:"report_caller"`
	MaxAge       time.Duration `mapstructure:"max_age" toml:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time" toml:"rotation_time"`
}

type Registry struct {
	// address of the proposal registry contract
	Address string `mapstructure:"address" toml:"address"`
	// beginning of the queried range, 1 means genesis block
	FromBlock uint64 `mapstructure:"from_block" toml:"from_block"`
	// end of the range, 0 means latest block
	ToBlock uint64 `mapstructure:"to_block" toml:"to_block"`
}

type Ledger struct {
	// keep proposals in leveldb under the repo root, memory only otherwise
	Persist bool `mapstructure:"persist" toml:"persist"`
}

// Retry bounds broadcasts and reconnects to the chain.
type Retry struct {
	Limit   uint          `mapstructure:"limit" toml:"limit"`
	Backoff time.Duration `mapstructure:"backoff" toml:"backoff"`
}

func DefaultConfig(repoRoot string) *Config {
	return &Config{
		RepoRoot: repoRoot,
		DialUrl:  "ws://localhost:8546",
		Registry: Registry{
			Address:   DefaultRegistryAddr,
			FromBlock: 1,
			ToBlock:   0,
		},
		Ledger: Ledger{
			Persist: true,
		},
		Retry: Retry{
			Limit:   5,
			Backoff: 5 * time.Second,
		},
		Log: Log{
			Level:        "info",
			Filename:     "proposer.log",
			ReportCaller: false,
			MaxAge:       30 * 24 * time.Hour,
			RotationTime: 24 * time.Hour,
		},
	}
}

// StoragePath is where the ledger and the sync cursor are persisted.
func (c *Config) StoragePath() string {
	return filepath.Join(c.RepoRoot, StorageDirName)
}

func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Registry.Address) {
		return errors.Errorf("registry.address %q is not a hex address", c.Registry.Address)
	}
	if c.Registry.ToBlock != 0 && c.Registry.ToBlock < c.Registry.FromBlock {
		return errors.Errorf("registry.to_block %d is before from_block %d", c.Registry.ToBlock, c.Registry.FromBlock)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	if c.Retry.Limit == 0 {
		return errors.New("retry.limit must be at least 1")
	}
	return nil
}
