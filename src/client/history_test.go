package client

import (
	"fmt"
	"testing"
)

func TestHistory_CapacityAndOrder(t *testing.T) {
	h := &History{}
	for i := 1; i <= 7; i++ {
		h.Add(HistoryEntry{Prompt: fmt.Sprintf("p%d", i), RiskLevel: i, Type: EntryText})
	}

	if h.Len() != HistoryCapacity {
		t.Fatalf("Len() = %d, want %d", h.Len(), HistoryCapacity)
	}
	entries := h.Entries()
	for i, want := range []string{"p7", "p6", "p5", "p4", "p3"} {
		if entries[i].Prompt != want {
			t.Errorf("entries[%d] = %q, want %q", i, entries[i].Prompt, want)
		}
	}

	entries[0].Prompt = "changed"
	if h.Entries()[0].Prompt != "p7" {
		t.Error("Entries() must return a copy")
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		level int
		want  Severity
	}{
		{0, SeverityLow},
		{39, SeverityLow},
		{40, SeverityMedium},
		{79, SeverityMedium},
		{80, SeverityHigh},
		{100, SeverityHigh},
	}
	for _, tt := range tests {
		if got := SeverityOf(tt.level); got != tt.want {
			t.Errorf("SeverityOf(%d) = %s, want %s", tt.level, got, tt.want)
		}
	}
}
