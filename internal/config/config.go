package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port     string
		GRPCAddr string
		LogLevel string
	}
	Backend struct {
		BaseURL string
		Timeout time.Duration
	}
	Poll struct {
		Interval time.Duration
	}
	Audio struct {
		Backend     string
		AssetDir    string
		CatalogFile string
		PlayerCmd   string
		Gap         time.Duration
		ClipTimeout time.Duration
	}
	Control struct {
		TokenSecret   string
		TokenSkewSecs int
	}
	Notify struct {
		AMQPURL  string
		Exchange string
	}
}

// Verbose reports whether per-order scan decisions should be logged.
func (c Config) Verbose() bool { return strings.EqualFold(c.Server.LogLevel, "debug") }

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_addr", ":9090")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("backend.base_url", "https://api-sankhya-fila-conferencia-6bbe82fb50b8.herokuapp.com")
	v.SetDefault("backend.timeout_seconds", 30)

	v.SetDefault("poll.interval_ms", 5000)

	v.SetDefault("audio.backend", "exec")
	v.SetDefault("audio.asset_dir", "./public")
	v.SetDefault("audio.gap_ms", 300)
	v.SetDefault("audio.clip_timeout_seconds", 30)

	v.SetDefault("control.token_skew_seconds", 60)

	v.SetDefault("notify.exchange", "conferencia.alerts")

	// Map envs
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.grpc_addr", "GRPC_ADDR")
	v.BindEnv("server.log_level", "LOG_LEVEL")

	v.BindEnv("backend.base_url", "BACKEND_BASE_URL")
	v.BindEnv("backend.timeout_seconds", "BACKEND_TIMEOUT_SECONDS")

	v.BindEnv("poll.interval_ms", "POLL_INTERVAL_MS")

	v.BindEnv("audio.backend", "AUDIO_BACKEND")
	v.BindEnv("audio.asset_dir", "AUDIO_ASSET_DIR")
	v.BindEnv("audio.catalog_file", "AUDIO_CATALOG_FILE")
	v.BindEnv("audio.player_cmd", "AUDIO_PLAYER_CMD")
	v.BindEnv("audio.gap_ms", "AUDIO_GAP_MS")
	v.BindEnv("audio.clip_timeout_seconds", "AUDIO_CLIP_TIMEOUT_SECONDS")

	v.BindEnv("control.token_secret", "CONTROL_TOKEN_SECRET")
	v.BindEnv("control.token_skew_seconds", "CONTROL_TOKEN_SKEW_SECONDS")

	v.BindEnv("notify.amqp_url", "NOTIFY_AMQP_URL")
	v.BindEnv("notify.exchange", "NOTIFY_EXCHANGE")

	var c Config
	c.Server.Port = toString(v.Get("server.port"))
	c.Server.GRPCAddr = v.GetString("server.grpc_addr")
	c.Server.LogLevel = v.GetString("server.log_level")

	c.Backend.BaseURL = strings.TrimSuffix(v.GetString("backend.base_url"), "/")
	c.Backend.Timeout = time.Duration(v.GetInt("backend.timeout_seconds")) * time.Second

	c.Poll.Interval = time.Duration(v.GetInt("poll.interval_ms")) * time.Millisecond

	c.Audio.Backend = strings.ToLower(v.GetString("audio.backend"))
	c.Audio.AssetDir = v.GetString("audio.asset_dir")
	c.Audio.CatalogFile = v.GetString("audio.catalog_file")
	c.Audio.PlayerCmd = v.GetString("audio.player_cmd")
	c.Audio.Gap = time.Duration(v.GetInt("audio.gap_ms")) * time.Millisecond
	c.Audio.ClipTimeout = time.Duration(v.GetInt("audio.clip_timeout_seconds")) * time.Second

	c.Control.TokenSecret = v.GetString("control.token_secret")
	c.Control.TokenSkewSecs = v.GetInt("control.token_skew_seconds")

	c.Notify.AMQPURL = v.GetString("notify.amqp_url")
	c.Notify.Exchange = v.GetString("notify.exchange")

	log.Printf("config loaded: port=%s backend=%s audio=%s poll=%s", c.Server.Port, c.Backend.BaseURL, c.Audio.Backend, c.Poll.Interval)
	return c
}

func toString(v any) string { return fmt.Sprint(v) }
