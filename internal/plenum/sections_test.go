package plenum

import (
	"strings"
	"testing"
)

const samplePage = `Intro text
===== Topic A =====
line a1
line a2

===== Termine =====
  * 2024-06-17 Party

Ende: 18:30 Uhr`

func TestIsHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"===== Topic =====", true},
		{"  =====Topic=====  ", true},
		{"==========", true},
		{"====== Protokolle ======", false},
		{"==== Topic ====", false},
		{"===== a = b =====", false},
		{"Topic", false},
	}

	for _, tt := range tests {
		if got := IsHeading(tt.line); got != tt.want {
			t.Errorf("IsHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestSplitSections(t *testing.T) {
	sections := SplitSections(samplePage)
	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}

	if sections[0].Heading != "Topic A" {
		t.Errorf("Unexpected first heading: %q", sections[0].Heading)
	}
	if sections[0].Body != "line a1\nline a2\n" {
		t.Errorf("Unexpected first body: %q", sections[0].Body)
	}

	if sections[1].Heading != "Termine" {
		t.Errorf("Unexpected second heading: %q", sections[1].Heading)
	}
	// the last line is the final boundary and not part of the body
	if sections[1].Body != "  * 2024-06-17 Party\n" {
		t.Errorf("Unexpected second body: %q", sections[1].Body)
	}
}

func TestSplitSections_NoHeadings(t *testing.T) {
	for _, text := range []string{"", "just text\nmore text", "====== Protokolle ======\n"} {
		if got := SplitSections(text); len(got) != 0 {
			t.Errorf("Expected no sections for %q, got %v", text, got)
		}
	}
}

func TestSplitSections_HeadingOnLastLine(t *testing.T) {
	sections := SplitSections("===== A =====\nbody\n===== B =====")
	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}
	if sections[0].Body != "body" {
		t.Errorf("Unexpected body of A: %q", sections[0].Body)
	}
	if sections[1].Heading != "B" || sections[1].Body != "" {
		t.Errorf("Unexpected section B: %+v", sections[1])
	}
}

func TestSplitSections_DuplicateHeadings(t *testing.T) {
	sections := SplitSections("===== A =====\none\n===== A =====\ntwo\n\n")
	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}
	if sections[0].Heading != "A" || sections[1].Heading != "A" {
		t.Errorf("Expected both headings to be A: %+v", sections)
	}
}

func TestSplitSections_Reconstruct(t *testing.T) {
	doc := "===== One =====\nalpha\nbeta\n===== Two =====\ngamma\n===== Three =====\ndelta\nlast"
	sections := SplitSections(doc)
	if len(sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d", len(sections))
	}

	var parts []string
	for _, s := range sections {
		parts = append(parts, HeadingLine(s.Heading))
		if s.Body != "" {
			parts = append(parts, s.Body)
		}
	}
	rebuilt := strings.Join(parts, "\n") + "\nlast"
	if rebuilt != doc {
		t.Errorf("Reconstructed document differs:\n%s\n---\n%s", rebuilt, doc)
	}
}

func TestSplitSections_CRLF(t *testing.T) {
	sections := SplitSections("===== A =====\r\nbody\r\nend\r\n")
	if len(sections) != 1 || sections[0].Body != "body" {
		t.Errorf("Unexpected sections for CRLF input: %+v", sections)
	}
}

func TestFindSectionStart(t *testing.T) {
	idx, ok := FindSectionStart(samplePage, "===== Termine =====\n")
	if !ok {
		t.Fatal("Expected heading to be found")
	}
	if idx != 5 {
		t.Errorf("Expected index 5, got %d", idx)
	}

	if _, ok := FindSectionStart(samplePage, "===== Beschlüsse ====="); ok {
		t.Error("Expected missing heading not to be found")
	}
}
