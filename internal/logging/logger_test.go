package logging

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zap.ErrorLevel) {
		t.Error("logger should be a no-op when no level is configured")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	l := GetLogger()
	if l.Core().Enabled(zap.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zap.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestLogProtocolError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogProtocolError("10.0.0.1:5000", 5, errors.New("bad value"))

	entries := logs.FilterMessage("Protocol error").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["remote_addr"] != "10.0.0.1:5000" {
		t.Errorf("remote_addr = %v", fields["remote_addr"])
	}
	if fields["code"] != uint32(5) {
		t.Errorf("code = %v (%T)", fields["code"], fields["code"])
	}
}

func TestDumps(t *testing.T) {
	data := []byte("ipv4=\x01\n")
	if got := hexDump(data); got != "697076343d010a" {
		t.Errorf("hexDump() = %q", got)
	}
	if got := asciiDump(data); got != "ipv4=.." {
		t.Errorf("asciiDump() = %q", got)
	}

	long := []byte(strings.Repeat("a", 300))
	if got := hexDump(long); !strings.HasSuffix(got, "...") || len(got) != 512+3 {
		t.Errorf("hexDump() did not truncate: len %d", len(got))
	}
	if got := asciiDump(long); len(got) != 256 {
		t.Errorf("asciiDump() did not truncate: len %d", len(got))
	}
}
