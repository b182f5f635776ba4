package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

type gateConfig struct {
	JWKSURL         string        `env:"JWKS_URL" yaml:"jwks_url" required:"true"`
	ClientID        string        `env:"CLIENT_ID" yaml:"client_id"`
	EnforceAudience bool          `env:"ENFORCE_AUDIENCE" yaml:"enforce_audience"`
	KeySetTTL       time.Duration `env:"KEYSET_TTL" envDefault:"24h" yaml:"keyset_ttl"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s" yaml:"http_timeout"`
	Algorithms      []string      `env:"ALGORITHMS" envDefault:"RS256" yaml:"algorithms"`
}

type nestedConfig struct {
	Server struct {
		Port int    `env:"PORT" envDefault:"8080" yaml:"port"`
		Host string `env:"HOST" envDefault:"localhost" yaml:"host"`
	} `env:"SERVER" yaml:"server"`
	Debug bool `env:"DEBUG" yaml:"debug"`
}

type validatedConfig struct {
	Mode string `env:"MODE" envDefault:"strict" yaml:"mode"`
}

func (c validatedConfig) Validate() error {
	if c.Mode != "strict" && c.Mode != "lenient" {
		return rgerr.Newf(rgerr.CodeValidation, "mode must be strict or lenient, got %q", c.Mode)
	}
	return nil
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWKS_URL", "https://idp.example.com/certs")

	var cfg gateConfig
	require.NoError(t, New().Load(&cfg))

	assert.Equal(t, "https://idp.example.com/certs", cfg.JWKSURL)
	assert.Equal(t, 24*time.Hour, cfg.KeySetTTL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []string{"RS256"}, cfg.Algorithms)
	assert.False(t, cfg.EnforceAudience)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("JWKS_URL", "https://idp.example.com/certs")
	t.Setenv("KEYSET_TTL", "1h")
	t.Setenv("ENFORCE_AUDIENCE", "true")
	t.Setenv("ALGORITHMS", "RS256, RS384")

	var cfg gateConfig
	require.NoError(t, New().Load(&cfg))

	assert.Equal(t, time.Hour, cfg.KeySetTTL)
	assert.True(t, cfg.EnforceAudience)
	assert.Equal(t, []string{"RS256", "RS384"}, cfg.Algorithms)
}

func TestLoad_EnvPrefix(t *testing.T) {
	t.Setenv("REALMGATE_JWKS_URL", "https://idp.example.com/certs")
	t.Setenv("REALMGATE_CLIENT_ID", "storl-app")

	var cfg gateConfig
	require.NoError(t, New().WithEnvPrefix("realmgate").Load(&cfg))

	assert.Equal(t, "https://idp.example.com/certs", cfg.JWKSURL)
	assert.Equal(t, "storl-app", cfg.ClientID)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.yaml")
	data := []byte("jwks_url: https://file.example.com/certs\nclient_id: from-file\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	var cfg gateConfig
	require.NoError(t, New().WithFile(path).Load(&cfg))

	assert.Equal(t, "https://file.example.com/certs", cfg.JWKSURL)
	assert.Equal(t, "from-file", cfg.ClientID)
	assert.Equal(t, 24*time.Hour, cfg.KeySetTTL, "defaults survive file load")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.yaml")
	data := []byte("jwks_url: https://file.example.com/certs\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("JWKS_URL", "https://env.example.com/certs")

	var cfg gateConfig
	require.NoError(t, New().WithFile(path).Load(&cfg))

	assert.Equal(t, "https://env.example.com/certs", cfg.JWKSURL)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	t.Setenv("JWKS_URL", "https://idp.example.com/certs")

	var cfg gateConfig
	require.NoError(t, New().WithFile(filepath.Join(t.TempDir(), "absent.yaml")).Load(&cfg))
}

func TestLoad_FileTraversalRejected(t *testing.T) {
	var cfg gateConfig
	err := New().WithFile("../etc/passwd.yaml").Load(&cfg)

	require.Error(t, err)
	assert.True(t, rgerr.HasCode(err, rgerr.CodeConfiguration))
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg gateConfig
	err := New().Load(&cfg)

	require.Error(t, err)
	assert.True(t, rgerr.HasCode(err, rgerr.CodeValidationRequired))
	assert.Contains(t, err.Error(), "JWKSURL")
}

func TestLoad_NestedStructs(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")

	var cfg nestedConfig
	require.NoError(t, New().Load(&cfg))

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestLoad_ValidatorIsCalled(t *testing.T) {
	t.Setenv("MODE", "reckless")

	var cfg validatedConfig
	err := New().Load(&cfg)

	require.Error(t, err)
	assert.True(t, rgerr.HasCode(err, rgerr.CodeValidation))
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("JWKS_URL", "https://idp.example.com/certs")
	t.Setenv("KEYSET_TTL", "not-a-duration")

	var cfg gateConfig
	err := New().Load(&cfg)

	require.Error(t, err)
	assert.True(t, rgerr.HasCode(err, rgerr.CodeConfiguration))
}

func TestLoad_RejectsNonPointer(t *testing.T) {
	var cfg gateConfig
	err := New().Load(cfg)

	require.Error(t, err)
	assert.True(t, rgerr.HasCode(err, rgerr.CodeConfiguration))
}

func TestMustLoad_PanicsOnFailure(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad[gateConfig](New())
	})
}
