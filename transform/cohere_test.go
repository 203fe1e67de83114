package transform

import "testing"

func TestNewCohereGeneratorWithoutKeyIsNil(t *testing.T) {
	if gen := NewCohereGenerator("", "command-r-08-2024"); gen != nil {
		t.Error("missing API key must disable generation")
	}
}

func TestNewCohereGeneratorReportsModel(t *testing.T) {
	gen := NewCohereGenerator("key", "command-r-08-2024")
	if gen == nil {
		t.Fatal("expected a generator with a key configured")
	}
	if gen.Model() != "command-r-08-2024" {
		t.Errorf("unexpected model: %s", gen.Model())
	}
}
