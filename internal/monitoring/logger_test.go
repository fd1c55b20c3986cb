package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("read %d rows", 12)
	if got != "read 12 rows" {
		t.Errorf("custom logger got %q", got)
	}

	got = ""
	SetLogger(nil)
	Logf("muted")
	if got != "" {
		t.Errorf("no-op logger should not reach the previous logger, got %q", got)
	}
}

func TestSetWarnLogger(t *testing.T) {
	original := Warnf
	defer func() { Warnf = original }()

	calls := 0
	SetWarnLogger(func(string, ...interface{}) { calls++ })
	Warnf("dropped %d row", 1)
	if calls != 1 {
		t.Errorf("expected 1 warning call, got %d", calls)
	}

	SetWarnLogger(nil)
	Warnf("should not panic")
	if calls != 1 {
		t.Errorf("no-op warn logger should not call previous logger")
	}
}

func TestDefaultsNotNil(t *testing.T) {
	if Logf == nil || Warnf == nil {
		t.Fatal("default loggers must not be nil")
	}
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("default loggers panicked: %v", r)
		}
	}()
	Logf("test message: %s", "value")
	Warnf("test warning: %s", "value")
}
