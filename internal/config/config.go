package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// ConfigStruct is the glue for all configuration sections
type ConfigStruct struct {
	Common   CommonConf   `toml:"common"`
	Database DatabaseConf `toml:"database"`
	Email    EmailConf    `toml:"email"`
	Storage  StorageConf  `toml:"storage"`
	Auth     AuthConf     `toml:"auth"`
	Cache    CacheConf    `toml:"cache"`
	Events   EventsConf   `toml:"events"`
}

// CommonConf is the data required for all services
type CommonConf struct {
	LogDir  string `toml:"log_dir"`
	DataDir string `toml:"data_dir"`
	Debug   bool   `toml:"debug"`

	// BaseURL is the public origin used in the sitemap and absolute links
	BaseURL string `toml:"base_url"`
}

type DatabaseConf struct {
	// DSN is a PostgreSQL connection string. If empty, an in-memory store is used.
	DSN string `toml:"dsn"`
}

type EmailConf struct {
	Enabled bool `toml:"enabled"`

	Host     string `toml:"host"`
	Username string `toml:"username"`
	Password string `toml:"password"`

	From string `toml:"from"`
	// ContactTo receives contact form submissions
	ContactTo string `toml:"contact_to"`
}

type StorageConf struct {
	// Backend is either "disk" or "s3"
	Backend string `toml:"backend"`

	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`

	// PublicURL is the base of durable object URLs
	PublicURL string `toml:"public_url"`
}

type AuthConf struct {
	// Secret signs session tokens
	Secret string `toml:"secret"`
}

type CacheConf struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type EventsConf struct {
	Enabled bool   `toml:"enabled"`
	AMQPURL string `toml:"amqp_url"`
}

var (
	Common   CommonConf
	Database DatabaseConf
	Email    EmailConf
	Storage  StorageConf
	Auth     AuthConf
	Cache    CacheConf
	Events   EventsConf
)

func defaults() ConfigStruct {
	return ConfigStruct{
		Common: CommonConf{
			DataDir: "/tmp/dardanova",
			BaseURL: "https://dardanova.com",
		},
		Email: EmailConf{
			From: "noreply@dardanova.com",
		},
		Storage: StorageConf{
			Backend: "disk",
			Region:  "eu-central-1",
		},
		Cache: CacheConf{
			Host: "localhost:6379",
		},
	}
}

func apply(c ConfigStruct) {
	Common = c.Common
	Database = c.Database
	Email = c.Email
	Storage = c.Storage
	Auth = c.Auth
	Cache = c.Cache
	Events = c.Events
}

// Load reads the TOML config at path. A missing file is not an error, defaults are used instead.
// Afterwards the environment (including a .env file next to the working directory) overrides secrets.
func Load(path string) error {
	c := defaults()
	md, err := toml.DecodeFile(path, &c)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("couldn't decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		slog.Warn("There were a few undecoded keys", slog.String("keys", strings.Join(keys, ", ")))
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Couldn't load .env file", slog.Any("err", err))
	}
	envOverrides(&c)

	apply(c)
	return nil
}

func envOverrides(c *ConfigStruct) {
	override(&c.Database.DSN, "DARDANOVA_DB_DSN")
	override(&c.Email.Password, "DARDANOVA_SMTP_PASSWORD")
	override(&c.Email.ContactTo, "CONTACT_EMAIL")
	override(&c.Email.From, "DARDANOVA_FROM_EMAIL")
	override(&c.Auth.Secret, "DARDANOVA_AUTH_SECRET")
	override(&c.Storage.AccessKey, "DARDANOVA_S3_ACCESS_KEY")
	override(&c.Storage.SecretKey, "DARDANOVA_S3_SECRET_KEY")
	override(&c.Events.AMQPURL, "DARDANOVA_AMQP_URL")
	override(&c.Cache.Password, "DARDANOVA_REDIS_PASSWORD")
}

func override(field *string, env string) {
	if val, ok := os.LookupEnv(env); ok && val != "" {
		*field = val
	}
}
