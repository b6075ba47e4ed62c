package casepattern_test

import (
	"testing"

	"evd-go/internal/casepattern"
	"evd-go/internal/evd"
)

func TestResolver_Resolve(t *testing.T) {
	r, err := casepattern.New(casepattern.DefaultPatterns())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"federal docket", "2024-06-01_order_1:24-cv-01234_sanctions.pdf", "1:24-cv-01234"},
		{"federal criminal", "transcript 3:23-cr-00017 day two.pdf", "3:23-cr-00017"},
		{"state criminal", "CR-2024-0042-arraignment.mp4", "CR-2024-0042"},
		{"state civil", "exhibit CV-2023-123456.jpg", "CV-2023-123456"},
		{"agency reference", "FOIA_response_DPS-REF-20240611.pdf", "DPS-REF-20240611"},
		{"no match", "vacation-photo.jpg", evd.UnassignedCase},
		{"empty input", "", evd.UnassignedCase},
		{"whitespace only", "   ", evd.UnassignedCase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.raw); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolver_Priority(t *testing.T) {
	t.Run("lower priority value wins when both match", func(t *testing.T) {
		r, err := casepattern.New([]casepattern.Pattern{
			{Name: "broad", Regex: `(?P<case>CR-\d{4}-\d{4})`, Priority: 50},
			{Name: "narrow", Regex: `(?P<case>CR-2024-\d{4})`, Priority: 5},
		})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		// Both patterns match; the priority-5 pattern must be consulted first.
		if got := r.Resolve("CR-2024-0042"); got != "CR-2024-0042" {
			t.Errorf("Resolve() = %q", got)
		}
	})

	t.Run("whole match used when no case group exists", func(t *testing.T) {
		r, err := casepattern.New([]casepattern.Pattern{
			{Name: "bare", Regex: `INC\d{6}`, Priority: 1},
		})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if got := r.Resolve("report INC123456 final"); got != "INC123456" {
			t.Errorf("Resolve() = %q, want INC123456", got)
		}
	})
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := casepattern.New([]casepattern.Pattern{
		{Name: "broken", Regex: `([unclosed`, Priority: 1},
	})
	if err == nil {
		t.Fatal("New() error = nil, want compile failure")
	}
}
