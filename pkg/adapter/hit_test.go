package adapter

import (
	"strings"
	"testing"
)

func TestParseTabularHits(t *testing.T) {
	input := "# comment\nP1\tT1\t0.55\t120\t10\t2\t1\t120\t5\t124\t1.2e-30\t210.5\n\nP1\tT2\t0.40\t90\t20\t1\t1\t90\t1\t90\t1e-10\t80\n"
	hits, err := ParseTabularHits(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTabularHits: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits want 2", len(hits))
	}
	if hits[0].TemplateID != "T1" || hits[0].AlignLength != 120 || hits[0].BitScore != 210.5 {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
	if hits[1].EValue != 1e-10 {
		t.Fatalf("unexpected e-value: %v", hits[1].EValue)
	}
}

func TestParseTabularHitsRejectsWrongColumnCount(t *testing.T) {
	_, err := ParseTabularHits(strings.NewReader("P1\tT1\tonly\tthree\n"))
	if err == nil {
		t.Fatal("expected parse error for malformed row")
	}
}
