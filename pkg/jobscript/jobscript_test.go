package jobscript

import (
	"strings"
	"testing"
)

func TestRenderIncludesRequiredFlags(t *testing.T) {
	out, err := Render(Data{
		BatchID:      "run1",
		RunnerBinary: "/usr/local/bin/dpamengine",
		WorkingRoot:  "/data/run1",
		ConfigPath:   "/data/run1/config.yaml",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"dpamengine run", "/data/run1", "config.yaml", "run1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderOmitsOptionalFlagsWhenUnset(t *testing.T) {
	out, err := Render(Data{BatchID: "run2", RunnerBinary: "dpamengine", WorkingRoot: "/data/run2", ConfigPath: "/data/run2/config.yaml"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(out, "--layout") {
		t.Fatalf("expected no --layout flag when unset, got:\n%s", out)
	}
	if strings.Contains(out, "--scratch-root") {
		t.Fatalf("expected no --scratch-root flag when unset, got:\n%s", out)
	}
	if strings.Contains(out, "--workers") {
		t.Fatalf("expected no --workers flag when unset, got:\n%s", out)
	}
}

func TestRenderIncludesEnvSetupLines(t *testing.T) {
	out, err := Render(Data{
		BatchID:      "run3",
		RunnerBinary: "dpamengine",
		WorkingRoot:  "/data/run3",
		ConfigPath:   "/data/run3/config.yaml",
		EnvSetup:     []string{"module load hhsuite", "module load foldseek"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "module load hhsuite") || !strings.Contains(out, "module load foldseek") {
		t.Fatalf("expected env setup lines in output, got:\n%s", out)
	}
}

func TestRenderTemplateRejectsMalformedTemplate(t *testing.T) {
	_, err := RenderTemplate("{{ .Unclosed", Data{})
	if err == nil {
		t.Fatal("expected an error parsing a malformed template")
	}
}
