// Package config loads daemon settings from flags, a .env file, JARVIS_*
// environment variables and an optional jarvis.yaml, in that precedence.
package config

import (
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"jarvis/internal/handlers"
)

type Config struct {
	WakePhrase     string        `mapstructure:"wake_phrase"`
	Language       string        `mapstructure:"language"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
	Library        string        `mapstructure:"library"`
	Chime          string        `mapstructure:"chime"`
	Proxy          string        `mapstructure:"proxy"`
	Socket         string        `mapstructure:"socket"`
	Replay         string        `mapstructure:"replay"`

	Listen  ListenConfig      `mapstructure:"listen"`
	Poll    PollConfig        `mapstructure:"poll"`
	Log     LogConfig         `mapstructure:"log"`
	Whisper WhisperConfig     `mapstructure:"whisper"`
	TTS     TTSConfig         `mapstructure:"tts"`
	Duck    DuckConfig        `mapstructure:"duck"`
	Hub     HubConfig         `mapstructure:"hub"`
	OpenAI  OpenAIConfig      `mapstructure:"openai"`
	Notify  NotifyConfig      `mapstructure:"notify"`
	Spotify SpotifyConfig     `mapstructure:"spotify"`
	Sites   map[string]string `mapstructure:"sites"`
}

type ListenConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	PhraseLimit time.Duration `mapstructure:"phrase_limit"`
	Threshold   float64       `mapstructure:"threshold"`
}

type PollConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type WhisperConfig struct {
	Model   string `mapstructure:"model"`
	Threads int    `mapstructure:"threads"`
}

type TTSConfig struct {
	Voice string `mapstructure:"voice"`
	Rate  int    `mapstructure:"rate"`
}

type DuckConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Factor  float64 `mapstructure:"factor"`
}

type HubConfig struct {
	URL   string `mapstructure:"url"`
	Shard string `mapstructure:"shard"`
}

type OpenAIConfig struct {
	Key   string `mapstructure:"key"`
	Model string `mapstructure:"model"`
}

type NotifyConfig struct {
	Desktop bool `mapstructure:"desktop"`
}

type SpotifyConfig struct {
	StepDelay time.Duration `mapstructure:"step_delay"`
}

// SiteList returns the web-site table sorted by name.
func (c *Config) SiteList() []handlers.Site {
	sites := make([]handlers.Site, 0, len(c.Sites))
	for name, url := range c.Sites {
		sites = append(sites, handlers.Site{Name: name, URL: url})
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].Name < sites[j].Name })
	return sites
}

var defaults = map[string]any{
	"wake_phrase":         "jarvis",
	"language":            "en",
	"handler_timeout":     30 * time.Second,
	"library":             "music_library.json",
	"chime":               "beep.mp3",
	"proxy":               "",
	"socket":              "/tmp/jarvis.sock",
	"replay":              "",
	"listen.timeout":      5 * time.Second,
	"listen.phrase_limit": 5 * time.Second,
	"listen.threshold":    0.015,
	"poll.timeout":        5 * time.Second,
	"poll.interval":       100 * time.Millisecond,
	"log.level":           "info",
	"log.file":            "jarvis_assistant.log",
	"whisper.model":       "third_party/whisper.cpp/models/ggml-base.en.bin",
	"whisper.threads":     0,
	"tts.voice":           "en",
	"tts.rate":            150,
	"duck.enabled":        false,
	"duck.factor":         0.3,
	"hub.url":             "",
	"hub.shard":           "jarvis",
	"openai.key":          "",
	"openai.model":        "gpt-5-nano",
	"notify.desktop":      false,
	"spotify.step_delay":  150 * time.Millisecond,
	"sites.moodle":        "https://cet.iitp.ac.in",
	"sites.youtube":       "https://youtube.com",
	"sites.github":        "https://github.com",
}

// flag name -> config key
var flagKeys = map[string]string{
	"log":     "log.level",
	"proxy":   "proxy",
	"wake":    "wake_phrase",
	"library": "library",
	"model":   "whisper.model",
	"replay":  "replay",
	"hub":     "hub.url",
	"socket":  "socket",
}

type Loader struct {
	v     *viper.Viper
	flags *cli.FlagSet

	configFile *string
	envFile    *string

	mu sync.Mutex
}

func NewLoader(name string) *Loader {
	fs := cli.NewFlagSet(name, cli.ContinueOnError)

	l := &Loader{
		v:          viper.New(),
		flags:      fs,
		configFile: fs.StringP("config", "c", "", "Config file (default ./jarvis.yaml if present)"),
		envFile:    fs.StringP("env", "e", ".env", "Env file path"),
	}

	fs.StringP("log", "l", "info", "Log level")
	fs.StringP("proxy", "p", "", "Socks proxy address")
	fs.String("wake", "jarvis", "Wake phrase")
	fs.String("library", "music_library.json", "Music library file")
	fs.String("model", defaults["whisper.model"].(string), "Whisper model path")
	fs.String("replay", "", "Replay recorded utterances from a directory instead of the microphone")
	fs.String("hub", "", "Url of hub")
	fs.String("socket", "/tmp/jarvis.sock", "Control socket path")

	return l
}

func (l *Loader) Flags() *cli.FlagSet { return l.flags }

// Parse reads args and every configuration source into a Config.
func (l *Loader) Parse(args []string) (*Config, error) {
	if err := l.flags.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(*l.envFile); err != nil {
		log.Debug("No env file loaded", "path", *l.envFile, "err", err)
	}

	v := l.v
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, l.flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	v.SetEnvPrefix("JARVIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("openai.key", "JARVIS_OPENAI_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if *l.configFile != "" {
		v.SetConfigFile(*l.configFile)
	} else {
		v.SetConfigName("jarvis")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if *l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		log.Debug("No config file, using defaults")
	} else {
		log.Debug("Loaded config", "path", v.ConfigFileUsed())
	}

	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Socket == "" {
		cfg.Socket = defaults["socket"].(string)
	}
	return &cfg, nil
}

// Watch reloads the config file on every change and hands the result to
// onChange. It does nothing when no file was loaded.
func (l *Loader) Watch(onChange func(*Config)) bool {
	path := l.v.ConfigFileUsed()
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			log.Warn("Config reload failed", "path", e.Name, "err", err)
			return
		}
		log.Info("Config reloaded", "path", e.Name)
		onChange(cfg)
	})
	l.v.WatchConfig()

	return true
}
