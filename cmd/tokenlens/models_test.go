package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewModelsCmd_HasListAndClassify(t *testing.T) {
	cmd := newModelsCmd()

	want := []string{"list", "classify"}
	for _, name := range want {
		found := false

		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}

		if !found {
			t.Errorf("expected subcommand %q not found in models", name)
		}
	}
}

func TestWriteCatalog_ListsEverySection(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCatalog(&buf, false); err != nil {
		t.Fatalf("writeCatalog returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"encodings:",
		"chat and legacy models:",
		"open-source models:",
		"cl100k_base",
		"gpt-4",
		"openai-community/gpt2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("catalog output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteCatalog_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCatalog(&buf, true); err != nil {
		t.Fatalf("writeCatalog returned error: %v", err)
	}

	var decoded map[string][]string
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if len(decoded["encodings"]) == 0 {
		t.Error("expected non-empty encodings list")
	}
	if len(decoded["models"]) == 0 {
		t.Error("expected non-empty models list")
	}
	if len(decoded["open_source_models"]) == 0 {
		t.Error("expected non-empty open_source_models list")
	}
}

func TestWriteClassification_KnownIdentifiers(t *testing.T) {
	tests := []struct {
		identifier string
		want       string
	}{
		{identifier: "cl100k_base", want: "cl100k_base: encoding"},
		{identifier: "gpt-4", want: "gpt-4: model"},
		{identifier: "openai-community/gpt2", want: "openai-community/gpt2: open-source"},
	}
	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeClassification(&buf, tt.identifier, false); err != nil {
				t.Fatalf("writeClassification returned error: %v", err)
			}
			if got := strings.TrimSpace(buf.String()); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestWriteClassification_UnknownFailsInTextMode(t *testing.T) {
	var buf bytes.Buffer

	err := writeClassification(&buf, "definitely-not-a-model", false)
	if err == nil {
		t.Fatal("expected error for unknown identifier")
	}
}

func TestWriteClassification_UnknownReportsInJSONMode(t *testing.T) {
	var buf bytes.Buffer

	if err := writeClassification(&buf, "definitely-not-a-model", true); err != nil {
		t.Fatalf("writeClassification returned error: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["kind"] != "invalid" {
		t.Errorf("expected kind invalid, got %q", decoded["kind"])
	}
}
