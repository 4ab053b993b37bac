package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rendezvous.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndEnvOverride(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "env-token")
	t.Setenv("RENDEZVOUS_ADDR", "")

	path := writeTempConfig(t, `
[discord]
bot_token = "file-token"

[irc]
server = "irc.example.org"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Discord.BotToken)
	assert.Equal(t, defaultBrokerAddr, cfg.Broker.Addr)
	assert.Equal(t, "irc.example.org", cfg.IRC.Server)
}

func TestLoadWithoutTokenSucceeds(t *testing.T) {
	// The broker and IRC adapter call Load too, and never configure a
	// Discord token — Load itself must not require one.
	t.Setenv("DISCORD_BOT_TOKEN", "")
	path := writeTempConfig(t, `[irc]
server = "irc.example.org"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Discord.BotToken)
}

func TestRequireDiscordTokenErrorsWhenMissing(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireDiscordToken())
}

func TestRequireDiscordTokenSucceedsWhenPresent(t *testing.T) {
	cfg := &Config{Discord: DiscordConfig{BotToken: "tok"}}
	assert.NoError(t, cfg.RequireDiscordToken())
}

func TestCompileBotsRequiresTwoCaptureGroups(t *testing.T) {
	cfg := &Config{Bots: map[string]string{"relaybot": `^(\S+)$`}}
	_, err := cfg.CompileBots()
	assert.Error(t, err)
}

func TestCompileBotsSucceeds(t *testing.T) {
	cfg := &Config{Bots: map[string]string{"relaybot": `^<(\S+)>\s(.*)$`}}
	bots, err := cfg.CompileBots()
	require.NoError(t, err)
	require.Len(t, bots, 1)
	assert.Equal(t, "relaybot", bots[0].Nickname)
}
