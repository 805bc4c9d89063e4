package main

import (
	"testing"

	"conveyor/internal/testsupport"
)

func TestNewLoggerWritesToLogDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger, err := newLogger(cfg)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("daemon booting")
}

func TestNewLoggerRejectsUnknownFormat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Format = "xml"
	if _, err := newLogger(cfg); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
