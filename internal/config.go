package internal

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"path"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sitedog/preview/internal/preview"
	"github.com/sitedog/preview/internal/session"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	Preview   PreviewConfig     `yaml:"preview"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.Preview.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL returns the URL a local browser uses to reach the server.
func (c *HTTPConfig) BaseURL() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Length(0, 253)),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WorkspaceConfig holds the workspace the editor operates on.
type WorkspaceConfig struct {
	Root     string `yaml:"root"`
	FileName string `yaml:"file_name"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.FileName, validation.Required, validation.By(baseName)),
	)
}

func baseName(value any) error {
	s, _ := value.(string)
	if s != path.Base(s) || s == "." || s == ".." {
		return fmt.Errorf("must be a file name without directories")
	}
	return nil
}

// PreviewConfig holds preview panel configuration.
type PreviewConfig struct {
	Title           string `yaml:"title"`
	StylesheetURL   string `yaml:"stylesheet_url"`
	YAMLScriptURL   string `yaml:"yaml_script_url"`
	RenderScriptURL string `yaml:"render_script_url"`
	OpenBrowser     bool   `yaml:"open_browser"`
	BrowserBin      string `yaml:"browser_bin"`
}

// Validate validates the preview configuration.
func (c *PreviewConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.StylesheetURL, validation.Required, validation.By(absURL)),
		validation.Field(&c.YAMLScriptURL, validation.Required, validation.By(absURL)),
		validation.Field(&c.RenderScriptURL, validation.Required, validation.By(absURL)),
	)
}

func absURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}

// Assets returns the panel asset configuration.
func (c *PreviewConfig) Assets() preview.Assets {
	return preview.Assets{
		Title:           c.Title,
		StylesheetURL:   c.StylesheetURL,
		YAMLScriptURL:   c.YAMLScriptURL,
		RenderScriptURL: c.RenderScriptURL,
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	assets := preview.DefaultAssets()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 4477,
			},
		},
		Workspace: WorkspaceConfig{
			Root:     ".",
			FileName: session.DefaultFileName,
		},
		Preview: PreviewConfig{
			Title:           assets.Title,
			StylesheetURL:   assets.StylesheetURL,
			YAMLScriptURL:   assets.YAMLScriptURL,
			RenderScriptURL: assets.RenderScriptURL,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
