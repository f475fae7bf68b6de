package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"llmgate/providers/ai"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

const validConfig = `
server:
  host: 127.0.0.1
  port: 8080
language: fr
stream:
  first_byte_timeout: 45s
  inter_chunk_timeout: 15s
providers:
  mistral:
    api_key: sk-mistral-test
    model: mistral-large-latest
    budgets:
      very_short: 150
      normal: 800
      comprehensive: 2500
  azure_openai:
    endpoint: https://example.openai.azure.com
    api_key: azure-test-key
    deployment: gpt-4o
    budgets:
      very_short: 200
      normal: 1000
      comprehensive: 4000
`

// TestLoad verifies a complete file parses with every field in place.
func TestLoad(t *testing.T) {
	path := writeConfig(t, validConfig)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Server.Address() != "127.0.0.1:8080" {
		t.Errorf("server address = %q", config.Server.Address())
	}
	if config.Language != "fr" {
		t.Errorf("language = %q, want fr", config.Language)
	}
	if config.Stream.FirstByteTimeout.Std() != 45*time.Second {
		t.Errorf("first byte timeout = %s, want 45s", config.Stream.FirstByteTimeout.Std())
	}
	if config.Stream.InterChunkTimeout.Std() != 15*time.Second {
		t.Errorf("inter chunk timeout = %s, want 15s", config.Stream.InterChunkTimeout.Std())
	}

	mistral, exists := config.Providers[ai.ProviderMistral]
	if !exists {
		t.Fatal("mistral provider missing")
	}
	if mistral.Model != "mistral-large-latest" {
		t.Errorf("mistral model = %q", mistral.Model)
	}
	if mistral.Budgets.Normal != 800 {
		t.Errorf("mistral normal budget = %d", mistral.Budgets.Normal)
	}
	azure := config.Providers[ai.ProviderAzureOpenAI]
	if azure.Deployment != "gpt-4o" {
		t.Errorf("azure deployment = %q", azure.Deployment)
	}
}

// TestLoad_EnvExpansion verifies ${VAR} references resolve from the
// environment.
func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_MISTRAL_KEY", "sk-from-env")

	path := writeConfig(t, `
server:
  port: 8080
providers:
  mistral:
    api_key: ${TEST_MISTRAL_KEY}
    model: mistral-small-latest
    budgets:
      very_short: 100
      normal: 500
      comprehensive: 2000
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := config.Providers[ai.ProviderMistral].APIKey; got != "sk-from-env" {
		t.Errorf("api key = %q, want the expanded env value", got)
	}
}

// TestLoad_DefaultLanguage verifies an omitted language falls back to
// English.
func TestLoad_DefaultLanguage(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
providers:
  mistral:
    api_key: sk-test
    model: mistral-small-latest
    budgets:
      very_short: 100
      normal: 500
      comprehensive: 2000
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Language != "en" {
		t.Errorf("language = %q, want default en", config.Language)
	}
}

// TestValidate_Failures covers the fail-fast startup checks.
func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "bad port",
			content: `
server:
  port: 70000
providers:
  mistral:
    api_key: k
    model: m
    budgets: {very_short: 1, normal: 2, comprehensive: 3}
`,
			wantErr: "server.port",
		},
		{
			name: "unsupported language",
			content: `
server:
  port: 8080
language: nl
providers:
  mistral:
    api_key: k
    model: m
    budgets: {very_short: 1, normal: 2, comprehensive: 3}
`,
			wantErr: "language",
		},
		{
			name: "no providers",
			content: `
server:
  port: 8080
`,
			wantErr: "no providers",
		},
		{
			name: "unknown provider",
			content: `
server:
  port: 8080
providers:
  llama_farm:
    api_key: k
    model: m
    budgets: {very_short: 1, normal: 2, comprehensive: 3}
`,
			wantErr: "unknown provider",
		},
		{
			name: "missing api key",
			content: `
server:
  port: 8080
providers:
  gemini:
    model: gemini-2.0-flash
    budgets: {very_short: 1, normal: 2, comprehensive: 3}
`,
			wantErr: "api_key",
		},
		{
			name: "missing azure deployment",
			content: `
server:
  port: 8080
providers:
  azure_openai:
    endpoint: https://example.openai.azure.com
    api_key: k
    budgets: {very_short: 1, normal: 2, comprehensive: 3}
`,
			wantErr: "deployment",
		},
		{
			name: "missing budget tier",
			content: `
server:
  port: 8080
providers:
  claude:
    api_key: k
    model: claude-sonnet-4-0
    budgets: {very_short: 1, normal: 2}
`,
			wantErr: "comprehensive",
		},
		{
			name: "negative budget",
			content: `
server:
  port: 8080
providers:
  claude:
    api_key: k
    model: claude-sonnet-4-0
    budgets: {very_short: 1, normal: -5, comprehensive: 3}
`,
			wantErr: "normal",
		},
		{
			name: "invalid duration",
			content: `
server:
  port: 8080
stream:
  first_byte_timeout: soon
providers:
  mistral:
    api_key: k
    model: m
    budgets: {very_short: 1, normal: 2, comprehensive: 3}
`,
			wantErr: "duration",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeConfig(t, test.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected load error, got nil")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error %q does not mention %q", err, test.wantErr)
			}
		})
	}
}

// TestBudgetTable verifies the configured budgets convert into a working
// gateway table.
func TestBudgetTable(t *testing.T) {
	path := writeConfig(t, validConfig)
	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	table, err := config.BudgetTable()
	if err != nil {
		t.Fatalf("BudgetTable failed: %v", err)
	}
	got, err := table.Select(ai.ProviderAzureOpenAI, "comprehensive")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if got != 4000 {
		t.Errorf("azure comprehensive budget = %d, want 4000", got)
	}
}
