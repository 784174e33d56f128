package amyrose_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunset-developer/amyrose"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "amyrose.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
signing_key: test-signing-key-0123456789
issuer: amyrose-test
captcha_image_dir: /srv/captcha
sessions:
  authentication_window: 48h
  verification_window: 10m
  captcha_window: 90s
smtp:
  host: smtp.example.com
  port: 465
  username: mailer
  password: hunter2
  from: noreply@example.com
  tls: true
twilio:
  sid: AC123
  token: secret-token
  from: "+15550001111"
`)

	cfg, err := amyrose.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "amyrose-test", cfg.Issuer)
	assert.Equal(t, "/srv/captcha", cfg.CaptchaImageDir)
	assert.Equal(t, 48*time.Hour, cfg.Sessions.AuthenticationWindow.Std())
	assert.Equal(t, 10*time.Minute, cfg.Sessions.VerificationWindow.Std())
	assert.Equal(t, 90*time.Second, cfg.Sessions.CaptchaWindow.Std())
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.True(t, cfg.SMTP.TLS)
	assert.Equal(t, "AC123", cfg.Twilio.SID)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "signing_key: test-signing-key-0123456789\n")

	cfg, err := amyrose.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "amyrose", cfg.Issuer)
	assert.Equal(t, "./resources/captcha/img", cfg.CaptchaImageDir)
	assert.Equal(t, 720*time.Hour, cfg.Sessions.AuthenticationWindow.Std())
	assert.Equal(t, 15*time.Minute, cfg.Sessions.VerificationWindow.Std())
	assert.Equal(t, 5*time.Minute, cfg.Sessions.CaptchaWindow.Std())
}

func TestLoadConfigRejectsShortSigningKey(t *testing.T) {
	path := writeConfigFile(t, "signing_key: short\n")

	_, err := amyrose.LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := writeConfigFile(t, `
signing_key: test-signing-key-0123456789
sessions:
  verification_window: soon
`)

	_, err := amyrose.LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := amyrose.LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestConfigValidateRequiresSigningKey(t *testing.T) {
	err := (amyrose.Config{Issuer: "amyrose"}).Validate()
	assert.Error(t, err)
}
