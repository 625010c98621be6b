// Command journalctl runs and inspects a bookie-style write-ahead journal.
// It is a minimal demonstration entry point, not a production node: it
// opens a journal from a config file and replays it, logging each replayed
// record. With -replay-only it then exits; otherwise it keeps the journal
// open, checkpointing every 30 seconds until interrupted. It never appends
// records itself.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/INLOpen/nexusbase/config"
	"github.com/INLOpen/nexusbase/hooks"
	"github.com/INLOpen/nexusbase/hooks/listeners"
	"github.com/INLOpen/nexusbase/journal"
)

func createLogger(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	var output io.Writer
	var closer io.Closer
	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		output = os.Stdout
	case "file":
		if cfg.File == "" {
			return nil, nil, fmt.Errorf("log output is 'file' but no file path is specified")
		}
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		output = file
		closer = file
	case "none":
		output = io.Discard
	default:
		return nil, nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}

	return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})), closer, nil
}

type dumpScanner struct{ logger *slog.Logger }

func (d dumpScanner) Process(formatVersion uint8, offset int64, payload []byte) error {
	var ledgerID, entryID uint64
	if len(payload) >= 16 {
		for i := 0; i < 8; i++ {
			ledgerID = ledgerID<<8 | uint64(payload[i])
			entryID = entryID<<8 | uint64(payload[8+i])
		}
	}
	d.logger.Info("record", "offset", offset, "format_version", formatVersion, "ledger_id", ledgerID, "entry_id", entryID, "payload_len", len(payload))
	return nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	replayOnly := flag.Bool("replay-only", false, "Replay and dump the journal, then exit without accepting appends")
	cardinalityThreshold := flag.Int("cardinality-alert-threshold", 0, "Warn once distinct ledger ids exceed this count (0 disables)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger, logCloser, err := createLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	hookManager := hooks.NewHookManager(logger)
	hookManager.Register(hooks.EventPostForceWrite, listeners.NewGroupCommitRatioListener(logger))
	if *cardinalityThreshold > 0 {
		hookManager.Register(hooks.EventPostAppend, listeners.NewLedgerCardinalityAlerterListener(logger, *cardinalityThreshold))
	}

	opts, err := journal.NewOptionsFromConfig(cfg, logger, hookManager)
	if err != nil {
		logger.Error("invalid journal configuration", "error", err)
		os.Exit(1)
	}

	j, err := journal.Open(opts)
	if err != nil {
		logger.Error("failed to open journal", "error", err)
		os.Exit(1)
	}

	mark, err := j.Replay(dumpScanner{logger: logger})
	if err != nil {
		logger.Error("replay failed", "error", err)
		j.Shutdown()
		os.Exit(1)
	}
	logger.Info("replay complete", "mark_log_id", mark.LogID, "mark_offset", mark.Offset)

	if *replayOnly {
		if err := j.Shutdown(); err != nil {
			logger.Error("shutdown reported an error", "error", err)
			os.Exit(1)
		}
		return
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	logger.Info("journal running, press Ctrl+C to exit", "journal_dir", opts.JournalDir)
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			logger.Info("shutdown signal received, checkpointing and stopping journal")
			ckpt := j.RequestCheckpoint()
			if err := ckpt.Completed(true); err != nil {
				logger.Error("final checkpoint failed", "error", err)
			}
			if err := j.Shutdown(); err != nil {
				logger.Error("journal shutdown reported an error", "error", err)
				os.Exit(1)
			}
			return
		case <-ticker.C:
			ckpt := j.RequestCheckpoint()
			if err := ckpt.Completed(true); err != nil {
				logger.Error("periodic checkpoint failed", "error", err)
			}
			logger.Info("checkpoint", "log_id", ckpt.Mark().LogID, "offset", ckpt.Mark().Offset, "queue_length", j.JournalQueueLength())
		}
	}
}
