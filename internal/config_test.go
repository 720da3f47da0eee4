package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if got := cfg.App.HTTP.Address(); got != "127.0.0.1:4477" {
		t.Errorf("address = %q", got)
	}
	if cfg.Workspace.FileName != "sitedog.yml" {
		t.Errorf("file name = %q", cfg.Workspace.FileName)
	}
}

func TestHTTPConfig_BaseURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"127.0.0.1", "http://127.0.0.1:8080"},
		{"", "http://127.0.0.1:8080"},
		{"0.0.0.0", "http://127.0.0.1:8080"},
		{"localhost", "http://localhost:8080"},
		{"::1", "http://[::1]:8080"},
	}
	for _, tt := range tests {
		cfg := HTTPConfig{Host: tt.host, Port: 8080}
		if got := cfg.BaseURL(); got != tt.want {
			t.Errorf("BaseURL(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestHTTPConfig_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Host: "127.0.0.1", Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
}

func TestWorkspaceConfig_FileName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"sitedog.yml", false},
		{"custom.yaml", false},
		{"", true},
		{"dir/sitedog.yml", true},
		{"..", true},
	}
	for _, tt := range tests {
		cfg := WorkspaceConfig{Root: ".", FileName: tt.name}
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("file name %q: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestPreviewConfig_Assets(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Preview.StylesheetURL = "http://localhost:9000/preview.css"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	assets := cfg.Preview.Assets()
	if assets.StylesheetURL != "http://localhost:9000/preview.css" || assets.Title != "SiteDog Preview" {
		t.Errorf("assets = %+v", assets)
	}

	cfg.Preview.RenderScriptURL = "renderCards.js"
	if err := cfg.Validate(); err == nil {
		t.Error("relative script URL should fail validation")
	}
}
