package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// dumpHistories appends a finished game's chains to a timestamped file
// under the configured history directory. Best-effort: the caller logs
// failures and moves on, game state never depends on the dump.
func dumpHistories(cfg *Config, histories [][]HistoryEntry) error {
	if err := os.MkdirAll(cfg.historyDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(histories, "", "  ")
	if err != nil {
		return err
	}

	name := time.Now().Format("2006-01-02_15-04-05.000000000") + ".json"

	return os.WriteFile(filepath.Join(cfg.historyDir, name), data, 0644)
}
