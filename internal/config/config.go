package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	WebRTC   WebRTCConfig   `yaml:"webrtc"`
	WS       WSConfig       `yaml:"ws"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Internal InternalConfig `yaml:"internal"`
	// Admins seeds the in-memory directory when no database is configured.
	Admins []string `yaml:"admins" env:"ADMIN_IDS" env-separator:","`
}

type HTTPConfig struct {
	Address        string   `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret" env:"JWT_SECRET"`
	Issuer   string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"telemed-api"`
	Audience string        `yaml:"audience" env:"JWT_AUDIENCE" env-default:"telemed-signal"`
	Leeway   time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"30s"`
}

type WebRTCConfig struct {
	STUNServers  []string `yaml:"stun_servers" env:"STUN_SERVERS" env-separator:","`
	TURNServers  []string `yaml:"turn_servers" env:"TURN_SERVERS" env-separator:","`
	TURNUsername string   `yaml:"turn_username" env:"TURN_USERNAME"`
	TURNPassword string   `yaml:"turn_password" env:"TURN_PASSWORD"`
}

type WSConfig struct {
	Path              string        `yaml:"path" env:"WS_PATH" env-default:"/ws"`
	SendBuffer        int           `yaml:"send_buffer" env:"WS_SEND_BUFFER" env-default:"64"`
	WriteWait         time.Duration `yaml:"write_wait" env:"WS_WRITE_WAIT" env-default:"10s"`
	PongWait          time.Duration `yaml:"pong_wait" env:"WS_PONG_WAIT" env-default:"60s"`
	MaxMessageBytes   int64         `yaml:"max_message_bytes" env:"WS_MAX_MESSAGE_BYTES" env-default:"65536"`
	MessagesPerSecond float64       `yaml:"messages_per_second" env:"WS_MESSAGES_PER_SECOND" env-default:"50"`
	MessageBurst      int           `yaml:"message_burst" env:"WS_MESSAGE_BURST" env-default:"100"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	RoleTTL  time.Duration `yaml:"role_ttl" env:"REDIS_ROLE_TTL" env-default:"30s"`
}

type InternalConfig struct {
	APIKey string `yaml:"api_key" env:"INTERNAL_API_KEY"`
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
		c.HTTP.Address = ":8080"
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if len(c.WebRTC.STUNServers) == 0 {
		c.WebRTC.STUNServers = []string{"stun:stun.l.google.com:19302"}
	}
	if c.WS.Path == "" {
		c.WS.Path = "/ws"
	}
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 64
	}
	if c.WS.WriteWait <= 0 {
		c.WS.WriteWait = 10 * time.Second
	}
	if c.WS.PongWait <= 0 {
		c.WS.PongWait = 60 * time.Second
	}
	if c.WS.MaxMessageBytes <= 0 {
		c.WS.MaxMessageBytes = 64 * 1024
	}
	if c.WS.MessagesPerSecond <= 0 {
		c.WS.MessagesPerSecond = 50
	}
	if c.WS.MessageBurst <= 0 {
		c.WS.MessageBurst = 100
	}
	if c.Redis.RoleTTL <= 0 {
		c.Redis.RoleTTL = 30 * time.Second
	}
}

// PingPeriod is how often the server pings an idle client. It must stay
// below PongWait.
func (w WSConfig) PingPeriod() time.Duration {
	return w.PongWait * 9 / 10
}
