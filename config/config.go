package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the wallet's runtime settings.
type Config struct {
	// DataDir is where the wallet database and logs live.
	DataDir string

	// ListenAddr is the host:port the application bridge listens on.
	ListenAddr string

	// Network selects the chain: mainnet, testnet, or regtest.
	Network string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogFile, when set, receives log output instead of stderr.
	LogFile string

	// FeeRate is the fee rate in satoshis per byte.
	FeeRate float64

	// SelectionBuffer is the coin-selection margin in satoshis.
	SelectionBuffer uint64

	// ExplorerURL is the base URL of the chain explorer API.
	ExplorerURL string

	// ProcessorURL is the base URL of the transaction processor API.
	ProcessorURL string

	// MerchantURL is the base URL of the merchant submission API.
	MerchantURL string

	// SyncInterval is how often the lock scanner runs.
	SyncInterval time.Duration
}

// DefaultDataDir returns the default wallet data directory under the user's
// home directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".libwallet")
}

// DefaultConfig returns a Config populated with sane defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:         DefaultDataDir(),
		ListenAddr:      ":3321",
		Network:         "mainnet",
		LogLevel:        "info",
		LogFile:         "",
		FeeRate:         0.5,
		SelectionBuffer: 200,
		ExplorerURL:     "https://api.whatsonchain.com/v1/bsv/main",
		ProcessorURL:    "https://arc.taal.com",
		MerchantURL:     "https://merchantapi.taal.com",
		SyncInterval:    10 * time.Minute,
	}
}

// ConfigPath returns the path of the config file inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// LoadConfig reads a config file at path. Missing keys keep their defaults;
// unknown keys are ignored so newer files still load on older binaries.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNum, line)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "datadir":
			cfg.DataDir = value
		case "listen":
			cfg.ListenAddr = value
		case "network":
			cfg.Network = value
		case "loglevel":
			cfg.LogLevel = value
		case "logfile":
			cfg.LogFile = value
		case "feerate":
			rate, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return cfg, fmt.Errorf("%w: line %d: feerate %q", ErrInvalidConfigLine, lineNum, value)
			}
			cfg.FeeRate = rate
		case "selectionbuffer":
			buf, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return cfg, fmt.Errorf("%w: line %d: selectionbuffer %q", ErrInvalidConfigLine, lineNum, value)
			}
			cfg.SelectionBuffer = buf
		case "explorer":
			cfg.ExplorerURL = value
		case "processor":
			cfg.ProcessorURL = value
		case "merchant":
			cfg.MerchantURL = value
		case "syncinterval":
			d, err := time.ParseDuration(value)
			if err != nil {
				return cfg, fmt.Errorf("%w: line %d: syncinterval %q", ErrInvalidConfigLine, lineNum, value)
			}
			cfg.SyncInterval = d
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Wallet Configuration\n")
	b.WriteString("# Generated " + time.Now().UTC().Format(time.RFC3339) + "\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "listen = %s\n", cfg.ListenAddr)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	fmt.Fprintf(&b, "feerate = %s\n", strconv.FormatFloat(cfg.FeeRate, 'f', -1, 64))
	fmt.Fprintf(&b, "selectionbuffer = %d\n", cfg.SelectionBuffer)
	fmt.Fprintf(&b, "explorer = %s\n", cfg.ExplorerURL)
	fmt.Fprintf(&b, "processor = %s\n", cfg.ProcessorURL)
	fmt.Fprintf(&b, "merchant = %s\n", cfg.MerchantURL)
	fmt.Fprintf(&b, "syncinterval = %s\n", cfg.SyncInterval)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
