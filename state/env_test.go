package state

import (
	"context"
	"log"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}
	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
	if env != EnvFromContext(ctx) {
		t.Error("EnvFromContext() returned different environment for the same context")
	}
	if env.Cfg != nil || env.Log != nil || env.Rpt != nil {
		t.Error("Fresh environment should not have configuration, log or report")
	}
}

func TestEnvFromContext_Missing(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when env not in context")
		}
	}()
	EnvFromContext(context.Background())
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := &LocalEnv{start: time.Now().Add(-time.Minute)}
	if up := env.Uptime(); up < time.Minute || up > time.Hour {
		t.Errorf("Uptime() = %v, expected about a minute", up)
	}
}

func TestLocalEnv_StdLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	env := &LocalEnv{Log: zap.New(core)}

	env.RedirectStdLog()
	if env.restoreStdLog == nil {
		t.Fatal("Expected restoreStdLog to be set")
	}
	log.Print("from standard logger")
	env.RestoreStdLog()

	if logs.FilterMessage("from standard logger").Len() != 1 {
		t.Errorf("standard log output was not redirected: %v", logs.All())
	}

	// repeated cycles are fine
	for range 3 {
		env.RedirectStdLog()
		env.RestoreStdLog()
	}
}

func TestLocalEnv_StdLogWithoutLogger(t *testing.T) {
	env := &LocalEnv{}
	env.RedirectStdLog()
	if env.restoreStdLog != nil {
		t.Error("Expected restoreStdLog to remain nil")
	}
	env.RestoreStdLog()
}
