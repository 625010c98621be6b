package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// JournalConfig holds every option the journal's on-disk config recognizes.
type JournalConfig struct {
	JournalDirs                []string `yaml:"journal_dirs"`
	LedgerDirs                 []string `yaml:"ledger_dirs"`
	MaxJournalSizeMB           int64    `yaml:"max_journal_size_mb"`
	JournalPreAllocSizeMB      int64    `yaml:"journal_prealloc_size_mb"`
	JournalWriteBufferSizeKB   int64    `yaml:"journal_write_buffer_size_kb"`
	MaxBackupJournals          int      `yaml:"max_backup_journals"`
	JournalAdaptiveGroupWrites bool     `yaml:"journal_adaptive_group_writes"`
	JournalMaxGroupWaitMs      int64    `yaml:"journal_max_group_wait_ms"`
	JournalBufferedWritesThreshold  int64 `yaml:"journal_buffered_writes_threshold"`
	JournalBufferedEntriesThreshold int64 `yaml:"journal_buffered_entries_threshold"`
	JournalFlushWhenQueueEmpty bool     `yaml:"journal_flush_when_queue_empty"`
	JournalRemovePagesFromCache bool    `yaml:"journal_remove_pages_from_cache"`
	NumJournalCallbackThreads  int      `yaml:"num_journal_callback_threads"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Output string `yaml:"output"` // stdout, file, none
	File   string `yaml:"file"`
}

// Config is the top-level configuration struct for the journal demo CLI.
type Config struct {
	Journal JournalConfig `yaml:"journal"`
	Logging LoggingConfig `yaml:"logging"`
}

const (
	MB = 1024 * 1024
	KB = 1024
)

// Load reads configuration from an io.Reader, falling back to defaults for
// anything the reader doesn't set. A nil reader returns pure defaults.
func Load(r io.Reader) (*Config, error) {
	cfg := &Config{
		Journal: JournalConfig{
			JournalDirs:                     []string{"./journal"},
			LedgerDirs:                      []string{"./ledgers"},
			MaxJournalSizeMB:                2 * 1024,
			JournalPreAllocSizeMB:           16,
			JournalWriteBufferSizeKB:        64,
			MaxBackupJournals:               5,
			JournalAdaptiveGroupWrites:      true,
			JournalMaxGroupWaitMs:           2,
			JournalBufferedWritesThreshold:  512 * 1024,
			JournalBufferedEntriesThreshold: 50000,
			JournalFlushWhenQueueEmpty:      true,
			JournalRemovePagesFromCache:     false,
			NumJournalCallbackThreads:       1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
	}

	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config data: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	return cfg, nil
}

// LoadConfig reads configuration from a YAML file by path. A missing file is
// not an error: it yields the default configuration.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Load(nil)
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}
