package main

import (
	"github.com/pkg/errors"

	"github.com/meverselabs/stableswap/contract/exchange/trade"
)

// Config is a configuration for the cmd
type Config struct {
	LogLevel    string          `yaml:"logLevel"`
	ListenAddr  string          `yaml:"listenAddr"`
	StoreDriver string          `yaml:"storeDriver"`
	StorePath   string          `yaml:"storePath"`
	StartTime   uint64          `yaml:"startTime"`
	Pool        PoolConfig      `yaml:"pool"`
	Accounts    []AccountConfig `yaml:"accounts"`
	Steps       []StepConfig    `yaml:"steps"`
}

// PoolConfig describes the pool. Fee and AdminFee are in units of
// 1/FEE_DENOMINATOR.
type PoolConfig struct {
	Name     string       `yaml:"name"`
	Amp      uint64       `yaml:"amp"`
	Fee      uint64       `yaml:"fee"`
	AdminFee uint64       `yaml:"adminFee"`
	FeeIndex *int         `yaml:"feeIndex"`
	Owner    string       `yaml:"owner"`
	Coins    []CoinConfig `yaml:"coins"`
}

type CoinConfig struct {
	Symbol         string `yaml:"symbol"`
	Decimals       uint8  `yaml:"decimals"`
	TransferFeeBps uint64 `yaml:"transferFeeBps"`
}

// AccountConfig funds a named account with one human readable balance per
// coin.
type AccountConfig struct {
	Name     string   `yaml:"name"`
	Balances []string `yaml:"balances"`
}

// StepConfig is one scripted call. Amounts of coins use the coin's
// decimals, LP amounts 18. FutureTime is seconds after the current clock.
type StepConfig struct {
	Op         string   `yaml:"op"`
	Caller     string   `yaml:"caller"`
	Amounts    []string `yaml:"amounts"`
	Amount     string   `yaml:"amount"`
	I          int      `yaml:"i"`
	J          int      `yaml:"j"`
	Min        string   `yaml:"min"`
	Max        string   `yaml:"max"`
	Deposit    bool     `yaml:"deposit"`
	Advance    uint64   `yaml:"advance"`
	FutureA    uint64   `yaml:"futureA"`
	FutureTime uint64   `yaml:"futureTime"`
	Fee        uint64   `yaml:"fee"`
	AdminFee   uint64   `yaml:"adminFee"`
	NewOwner   string   `yaml:"newOwner"`
	// Expect is the error code the step must fail with, e.g. "SLIPPAGE"
	Expect string `yaml:"expect"`
}

func (cfg *Config) feeIndex() int {
	if cfg.Pool.FeeIndex == nil {
		return trade.NoFeeIndex
	}
	return *cfg.Pool.FeeIndex
}

func (cfg *Config) validate() error {
	if len(cfg.Pool.Name) == 0 {
		return errors.New("config: pool name is empty")
	}
	if len(cfg.Pool.Owner) == 0 {
		return errors.New("config: pool owner is empty")
	}
	N := len(cfg.Pool.Coins)
	for _, cc := range cfg.Pool.Coins {
		if cc.Decimals > 18 {
			return errors.Errorf("config: coin %s has %d decimals, at most 18", cc.Symbol, cc.Decimals)
		}
	}
	for _, acc := range cfg.Accounts {
		if len(acc.Name) == 0 {
			return errors.New("config: account without name")
		}
		if len(acc.Balances) != N {
			return errors.Errorf("config: account %s has %d balances for %d coins", acc.Name, len(acc.Balances), N)
		}
	}
	for i, step := range cfg.Steps {
		if _, has := stepOps[step.Op]; !has {
			return errors.Errorf("config: step %d: unknown op %q", i, step.Op)
		}
	}
	return nil
}

func (cfg *Config) setDefaults() {
	if len(cfg.LogLevel) == 0 {
		cfg.LogLevel = "info"
	}
	if len(cfg.StoreDriver) == 0 {
		cfg.StoreDriver = "leveldb"
	}
}
