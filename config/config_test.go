package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
[server]
port = 8080
mode = "release"

[postgres]
host = "db.internal"
port = "5432"
user = "guild"
dbname = "guildsite"

[jwt]
secret = "s3cret"
expire_hours = 12

[discord]
guild_id = "g1"
announcement_channel = "c1"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 12, cfg.JWT.ExpireHours)
	assert.Equal(t, "g1", cfg.Discord.GuildID)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
[jwt]
secret = "s3cret"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 24, cfg.JWT.ExpireHours)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 5, cfg.Auth.LoginMaxFailures)
	assert.Equal(t, 60, cfg.Auth.LoginWindowSecs)
	assert.Equal(t, 900, cfg.Auth.LoginMaxBackoff)
	assert.Equal(t, 60, cfg.Discord.SyncIntervalSecs)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_BotTokenFromEnv(t *testing.T) {
	path := writeConfigFile(t, `
[discord]
bot_token = "from-file"
`)

	t.Setenv("DISCORD_BOT_TOKEN", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Discord.BotToken)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
