package observ

import "testing"

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := NewLogger(env, "debug")
		if err != nil {
			t.Fatalf("%s logger: %v", env, err)
		}
		if logger == nil {
			t.Fatalf("%s logger is nil", env)
		}
	}
}

func TestNewLoggerInvalidLevelFallsBack(t *testing.T) {
	logger, err := NewLogger("development", "shouting")
	if err != nil {
		t.Fatalf("invalid level must fall back, got error: %v", err)
	}
	if !logger.Core().Enabled(0) { // InfoLevel
		t.Error("fallback level must be info")
	}
}
