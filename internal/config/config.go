// Package config loads the bridge's TOML configuration document plus
// the environment-variable overrides spec.md §6 requires.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// DiscordConfig is the `[discord]` table.
type DiscordConfig struct {
	BotToken string `toml:"bot_token"`
	Intents  int    `toml:"intents"`
}

// IRCConfig is the `[irc]` table consumed by the IRC adapter.
type IRCConfig struct {
	Server   string   `toml:"server"`
	Port     int      `toml:"port"`
	TLS      bool     `toml:"tls"`
	Nick     string   `toml:"nick"`
	User     string   `toml:"user"`
	Name     string   `toml:"name"`
	Channels []string `toml:"channels"`
}

// BrokerConfig is the `[broker]` table.
type BrokerConfig struct {
	Addr string `toml:"addr"`
}

// Config is the root TOML document.
type Config struct {
	Discord DiscordConfig     `toml:"discord"`
	IRC     IRCConfig         `toml:"irc"`
	Broker  BrokerConfig      `toml:"broker"`
	Bots    map[string]string `toml:"bots"`
}

const defaultBrokerAddr = "[::1]:49252"

// Load reads and parses the TOML document at path, then applies the
// DISCORD_BOT_TOKEN and RENDEZVOUS_ADDR environment overrides. A .env
// file in the working directory is loaded first, if present,
// so those variables can be set without exporting them in the shell.
//
// The Discord bot token is not validated here: it is only required by
// the Discord adapter (spec.md §6), and Load is also called by the
// broker and the IRC adapter, neither of which touch Discord
// credentials. Callers that need a token validate it themselves, via
// RequireDiscordToken.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if tok := os.Getenv("DISCORD_BOT_TOKEN"); tok != "" {
		cfg.Discord.BotToken = tok
	}

	if addr := os.Getenv("RENDEZVOUS_ADDR"); addr != "" {
		cfg.Broker.Addr = addr
	}
	if cfg.Broker.Addr == "" {
		cfg.Broker.Addr = defaultBrokerAddr
	}

	return &cfg, nil
}

// RequireDiscordToken errors if no Discord bot token was configured.
// Only cmd/rendezvous-discord calls this: the broker and IRC adapter
// never need Discord credentials.
func (c *Config) RequireDiscordToken() error {
	if c.Discord.BotToken == "" {
		return fmt.Errorf("config: discord bot token is required (set [discord] bot_token or DISCORD_BOT_TOKEN)")
	}
	return nil
}

// CompiledBot is one [bots] entry with its pattern compiled.
type CompiledBot struct {
	Nickname string
	Pattern  *regexp.Regexp
}

// CompileBots compiles every [bots] pattern, erroring on the first
// invalid regular expression.
func (c *Config) CompileBots() ([]CompiledBot, error) {
	bots := make([]CompiledBot, 0, len(c.Bots))
	for nick, pattern := range c.Bots {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("config: bots[%s]: invalid pattern: %w", nick, err)
		}
		if re.NumSubexp() != 2 {
			return nil, fmt.Errorf("config: bots[%s]: pattern must have two capture groups", nick)
		}
		bots = append(bots, CompiledBot{Nickname: nick, Pattern: re})
	}
	return bots, nil
}
