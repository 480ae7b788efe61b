package utils

import "testing"

func TestT_Fallback(t *testing.T) {
	if got := T("fr", "health.ok"); got != "ok" {
		t.Fatalf("fallback to en failed: %s", got)
	}
}

func TestT_LocalizedFallbackAnalysis(t *testing.T) {
	if got := T("zh", "analysis.fallback.rec.owner"); got == T("en", "analysis.fallback.rec.owner") {
		t.Fatalf("expected zh translation, got %s", got)
	}
	if got := T("en", "missing.key"); got != "missing.key" {
		t.Fatalf("expected key echo, got %s", got)
	}
}
