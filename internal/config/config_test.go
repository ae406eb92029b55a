package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LLM_BACKEND", "OLLAMA_HOST", "OLLAMA_MODEL", "LLM_TEMPERATURE", "LLM_MAX_TOKENS", "RATE_LIMIT_PER_MINUTE", "SOUND_PLAYER", "SOUND_SAMPLE_RATE", "MAX_BODY_BYTES"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":3001" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.AI.Backend != BackendOllama || cfg.AI.OllamaModel != "llama3" {
		t.Fatalf("unexpected ai defaults: %+v", cfg.AI)
	}
	if cfg.AI.Temperature != 0.5 || cfg.AI.MaxTokens != nil {
		t.Fatalf("unexpected sampling defaults: %v %v", cfg.AI.Temperature, cfg.AI.MaxTokens)
	}
	if cfg.Server.RateLimitPerMinute != 120 || cfg.Server.MaxBodyBytes != 64<<10 {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Sound.SampleRate != 44100 || cfg.Sound.Player != "" {
		t.Fatalf("unexpected sound defaults: %+v", cfg.Sound)
	}
}

func TestLoadServerAddrForms(t *testing.T) {
	tests := map[string]string{
		"8080":           ":8080",
		":9000":          ":9000",
		"127.0.0.1:3001": "127.0.0.1:3001",
	}
	for in, want := range tests {
		t.Setenv("PORT", in)
		cfg, err := loadServerConfig()
		if err != nil {
			t.Fatalf("loadServerConfig(%q) err: %v", in, err)
		}
		if cfg.Addr != want {
			t.Fatalf("PORT=%q: got %q want %q", in, cfg.Addr, want)
		}
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"LLM_BACKEND", "llamafarm"},
		{"LLM_TEMPERATURE", "warm"},
		{"LLM_MAX_TOKENS", "0"},
		{"SOUND_SAMPLE_RATE", "100"},
		{"RATE_LIMIT_PER_MINUTE", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestAIConfigValidateBackends(t *testing.T) {
	base := AIConfig{OllamaHost: "http://localhost:11434", OllamaModel: "llama3"}

	openai := base
	openai.Backend = BackendOpenAI
	if err := openai.Validate(); err == nil {
		t.Fatal("expected openai without key to fail")
	}
	openai.OpenAIAPIKey = "sk-test"
	if err := openai.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ark := base
	ark.Backend = BackendArk
	ark.ArkModel = "doubao"
	ark.ArkAccessKey = "ak"
	if err := ark.Validate(); err == nil {
		t.Fatal("expected ark with only access key to fail")
	}
	ark.ArkSecretKey = "sk"
	if err := ark.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock := AIConfig{Backend: BackendMock}
	if err := mock.Validate(); err != nil {
		t.Fatalf("mock should need nothing: %v", err)
	}
}

func TestLoadClientDefaults(t *testing.T) {
	for _, key := range []string{"ORGANCHAT_SERVER", "LOG_FILE", "LOG_CONSOLE", "SOUND_SAMPLE_RATE"} {
		t.Setenv(key, "")
	}
	t.Setenv("LLM_BACKEND", "not-a-backend")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient should ignore server-only settings: %v", err)
	}
	if cfg.ServerURL != "http://localhost:3001" {
		t.Fatalf("unexpected server url %q", cfg.ServerURL)
	}
	if cfg.Log.Console || cfg.Log.File != "organchat.log" {
		t.Fatalf("client must log to a file only: %+v", cfg.Log)
	}

	t.Setenv("ORGANCHAT_SERVER", "http://anatomy.local:8080/")
	cfg, _ = LoadClient()
	if cfg.ServerURL != "http://anatomy.local:8080" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.ServerURL)
	}
}

func TestLoadToolLogsToConsole(t *testing.T) {
	for _, key := range []string{"LOG_FILE", "LOG_CONSOLE", "SOUND_PLAYER", "SOUND_SAMPLE_RATE"} {
		t.Setenv(key, "")
	}
	t.Setenv("PORT", "not-a-port")

	cfg, err := LoadTool()
	if err != nil {
		t.Fatalf("LoadTool should ignore server-only settings: %v", err)
	}
	if !cfg.Log.Console || cfg.Log.File != "" {
		t.Fatalf("tool should log to the console: %+v", cfg.Log)
	}
	if cfg.Sound.SampleRate != 44100 || cfg.Sound.Player != "" {
		t.Fatalf("unexpected sound config %+v", cfg.Sound)
	}

	t.Setenv("SOUND_SAMPLE_RATE", "fast")
	if _, err := LoadTool(); err == nil {
		t.Fatal("expected error for bad SOUND_SAMPLE_RATE")
	}
}
