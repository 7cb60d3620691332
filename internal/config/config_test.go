package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(testViper(map[string]any{"jwt_secret": "s3cret"}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, MailConsole, cfg.MailDriver)
}

func TestFromViper_MongoRequiresSecret(t *testing.T) {
	_, err := FromViper(testViper(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestFromViper_MemoryStoreGetsDevSecret(t *testing.T) {
	cfg, err := FromViper(testViper(map[string]any{"store_driver": "MEMORY"}))
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		wantErr   string
	}{
		{"unknown store", map[string]any{"store_driver": "redis", "jwt_secret": "x"}, "store_driver"},
		{"unknown mail driver", map[string]any{"mail_driver": "smtp", "jwt_secret": "x"}, "mail_driver"},
		{"sendgrid without key", map[string]any{"mail_driver": "sendgrid", "jwt_secret": "x"}, "sendgrid_api_key"},
		{"admin email only", map[string]any{"admin_email": "a@b.c", "jwt_secret": "x"}, "admin_email"},
		{"zero otp ttl", map[string]any{"otp_ttl": "0s", "jwt_secret": "x"}, "otp_ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromViper(testViper(tt.overrides))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b,"))
	assert.Nil(t, splitList(""))
}
