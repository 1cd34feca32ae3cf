package obslog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPrepare_ConsoleOnlySucceeds(t *testing.T) {
	logger, err := Prepare(Config{Level: LevelInfo})
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Info("hello")
}

func TestPrepare_WritesFileWhenDirSet(t *testing.T) {
	dir := t.TempDir()
	logger, err := Prepare(Config{Level: LevelDebug, FileDir: dir})
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	logger.Debug("file line")
	_ = logger.Sync()

	if _, err := os.Stat(filepath.Join(dir, "run.log")); err != nil {
		t.Fatalf("expected run.log to exist: %v", err)
	}
}

func TestPhase_ReturnsNamedChildLogger(t *testing.T) {
	logger, err := Prepare(Config{Level: LevelNone})
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	child := Phase(logger, "normalize")
	if child == nil {
		t.Fatal("expected non-nil child logger")
	}
}
