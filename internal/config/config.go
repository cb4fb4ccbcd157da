package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env    string       `yaml:"env" env:"ENV" env-default:"local"`
	HTTP   HTTPConfig   `yaml:"http"`
	WebRTC WebRTCConfig `yaml:"webrtc"`
	Relay  RelayConfig  `yaml:"relay"`
}

type HTTPConfig struct {
	Address string `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
}

type WebRTCConfig struct {
	STUNServers []string     `yaml:"stun_servers" env:"STUN_SERVERS" env-default:""`
	TURNServers []TURNServer `yaml:"turn_servers"`
}

type TURNServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username"`
	Credential string   `yaml:"credential"`
}

// RelayConfig bounds each connection: outbound queue depth, read size limit
// and the idle deadline enforced by the ping/pong keepalive.
type RelayConfig struct {
	SendQueueSize   int           `yaml:"send_queue_size" env:"RELAY_SEND_QUEUE_SIZE" env-default:"0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"RELAY_IDLE_TIMEOUT" env-default:"0s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"RELAY_WRITE_TIMEOUT" env-default:"0s"`
	MaxMessageBytes int64         `yaml:"max_message_bytes" env:"RELAY_MAX_MESSAGE_BYTES" env-default:"0"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":3001"
	}
	if len(c.WebRTC.STUNServers) == 0 {
		c.WebRTC.STUNServers = []string{"stun:stun.l.google.com:19302"}
	}
	if c.Relay.SendQueueSize <= 0 {
		c.Relay.SendQueueSize = 256
	}
	if c.Relay.IdleTimeout <= 0 {
		c.Relay.IdleTimeout = 60 * time.Second
	}
	if c.Relay.WriteTimeout <= 0 {
		c.Relay.WriteTimeout = 10 * time.Second
	}
	if c.Relay.MaxMessageBytes <= 0 {
		c.Relay.MaxMessageBytes = 64 * 1024
	}
}
