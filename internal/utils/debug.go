package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const logPrefix = "debug-"

var (
	debugFile *os.File
	debugMu   sync.Mutex
)

// ConfigureDebug points the standard logger at a new timestamped file in
// logsDir and sets its level. An empty level keeps info.
func ConfigureDebug(logsDir, level string) (string, error) {
	debugMu.Lock()
	defer debugMu.Unlock()

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return "", err
	}
	name := logPrefix + time.Now().Format("20060102-150405") + ".log"
	path := filepath.Join(logsDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", err
	}

	if debugFile != nil {
		_ = debugFile.Close()
	}
	debugFile = f

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetOutput(f)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return path, nil
}

// CleanupLogs keeps the newest retention log files in logsDir.
func CleanupLogs(logsDir string, retention int) error {
	if retention < 1 {
		retention = 1
	}
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var logs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), logPrefix) && strings.HasSuffix(e.Name(), ".log") {
			logs = append(logs, e.Name())
		}
	}
	if len(logs) <= retention {
		return nil
	}

	// Names embed the timestamp, so lexical order is chronological.
	sort.Strings(logs)
	for _, name := range logs[:len(logs)-retention] {
		if err := os.Remove(filepath.Join(logsDir, name)); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

// Debug writes a message to the debug log
func Debug(format string, args ...any) {
	logrus.Debugf(format, args...)
}
