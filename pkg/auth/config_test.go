package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "minimal valid",
			cfg:  Config{JWKSURL: "https://idp.example.com/certs"},
		},
		{
			name:    "missing jwks url",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "audience enforcement without client id",
			cfg: Config{
				JWKSURL:         "https://idp.example.com/certs",
				EnforceAudience: true,
			},
			wantErr: true,
		},
		{
			name: "audience enforcement with client id",
			cfg: Config{
				JWKSURL:         "https://idp.example.com/certs",
				EnforceAudience: true,
				ClientID:        "storl-app",
			},
		},
		{
			name: "negative ttl",
			cfg: Config{
				JWKSURL:   "https://idp.example.com/certs",
				KeySetTTL: -time.Hour,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := Config{JWKSURL: "https://idp.example.com/certs"}
	cfg.applyDefaults()

	assert.Equal(t, DefaultKeySetTTL, cfg.KeySetTTL)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, DefaultClockSkew, cfg.ClockSkew)
	assert.NotNil(t, cfg.HTTPClient)
}
