package amyrose

import (
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values like "15m" parse directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid duration "+raw)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// SMTPConfig holds mail transport settings. Values are deployment secrets;
// absence is tolerated until a send is attempted.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	TLS      bool   `yaml:"tls"`
}

// TwilioConfig holds SMS transport settings.
type TwilioConfig struct {
	SID   string `yaml:"sid"`
	Token string `yaml:"token"`
	From  string `yaml:"from"`
}

// SessionConfig holds the expiry policy window per session kind.
type SessionConfig struct {
	AuthenticationWindow Duration `yaml:"authentication_window"`
	VerificationWindow   Duration `yaml:"verification_window"`
	CaptchaWindow        Duration `yaml:"captcha_window"`
}

// Config is the process configuration for the session security core.
type Config struct {
	SigningKey      string        `yaml:"signing_key"`
	Issuer          string        `yaml:"issuer"`
	CaptchaImageDir string        `yaml:"captcha_image_dir"`
	Sessions        SessionConfig `yaml:"sessions"`
	SMTP            SMTPConfig    `yaml:"smtp"`
	Twilio          TwilioConfig  `yaml:"twilio"`
}

// Validate will validate the configuration
func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.Issuer, validation.Required),
	); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid configuration")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Issuer == "" {
		c.Issuer = "amyrose"
	}
	if c.CaptchaImageDir == "" {
		c.CaptchaImageDir = "./resources/captcha/img"
	}
	if c.Sessions.AuthenticationWindow == 0 {
		c.Sessions.AuthenticationWindow = Duration(720 * time.Hour)
	}
	if c.Sessions.VerificationWindow == 0 {
		c.Sessions.VerificationWindow = Duration(15 * time.Minute)
	}
	if c.Sessions.CaptchaWindow == 0 {
		c.Sessions.CaptchaWindow = Duration(5 * time.Minute)
	}
}

// LoadConfig reads, defaults, and validates a yaml configuration file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "could not open config")
	}
	defer f.Close()

	cfg := &Config{}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "could not parse config")
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
