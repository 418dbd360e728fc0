package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine identifiers for the extractor adapter selection.
const (
	EngineYTDLP = "ytdlp"
	EngineAria2 = "aria2"
)

// Config is the full configuration surface, consumed at process start.
// Values come from an optional YAML file, overridden by MEDIDOWN_* env
// variables.
type Config struct {
	Port        string `yaml:"port"`
	DownloadDir string `yaml:"download_dir"`
	DBPath      string `yaml:"db_path"`

	// Engine selects the fetch transport: "ytdlp" (default) or "aria2".
	Engine string `yaml:"engine"`

	MaxConcurrent    int `yaml:"max_concurrent"`
	TaskTTLSec       int `yaml:"task_ttl_seconds"`
	SweepIntervalSec int `yaml:"sweep_interval_seconds"`
	RetryAttempts    int `yaml:"retry_attempts"`
	RetryBackoffSec  int `yaml:"retry_backoff_seconds"`
	CancelGraceSec   int `yaml:"cancel_grace_seconds"`
	ShutdownWaitSec  int `yaml:"shutdown_wait_seconds"`

	// CookiesFile is an opaque credential blob handed to the extractor for
	// restricted content; never interpreted here.
	CookiesFile string `yaml:"cookies_file"`

	SignSecret string `yaml:"sign_secret"`
	SignTTLSec int    `yaml:"sign_ttl_seconds"`

	Aria2RPCUrl string `yaml:"aria2_rpc_url"`
	Aria2Secret string `yaml:"aria2_secret"`
}

// Default returns the configuration used when no file and no env are set.
func Default() Config {
	return Config{
		Port:             "8080",
		DownloadDir:      "./downloads",
		DBPath:           "./medidown.db",
		Engine:           EngineYTDLP,
		MaxConcurrent:    4,
		TaskTTLSec:       3600,
		SweepIntervalSec: 300,
		RetryAttempts:    2,
		RetryBackoffSec:  2,
		CancelGraceSec:   5,
		ShutdownWaitSec:  30,
		SignSecret:       "",
		SignTTLSec:       600,
		Aria2RPCUrl:      "http://localhost:6800/jsonrpc",
	}
}

// Load reads cfg from path, falling back to defaults when the file does not
// exist, then applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Port, "MEDIDOWN_PORT")
	setString(&c.DownloadDir, "MEDIDOWN_DOWNLOAD_DIR")
	setString(&c.DBPath, "MEDIDOWN_DB_PATH")
	setString(&c.Engine, "MEDIDOWN_ENGINE")
	setString(&c.CookiesFile, "MEDIDOWN_COOKIES_FILE")
	setString(&c.SignSecret, "MEDIDOWN_SIGN_SECRET")
	setString(&c.Aria2RPCUrl, "MEDIDOWN_ARIA2_RPC_URL")
	setString(&c.Aria2Secret, "MEDIDOWN_ARIA2_SECRET")
	setInt(&c.MaxConcurrent, "MEDIDOWN_MAX_CONCURRENT")
	setInt(&c.TaskTTLSec, "MEDIDOWN_TASK_TTL_SECONDS")
	setInt(&c.RetryAttempts, "MEDIDOWN_RETRY_ATTEMPTS")
	setInt(&c.SignTTLSec, "MEDIDOWN_SIGN_TTL_SECONDS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (c Config) TaskTTL() time.Duration       { return time.Duration(c.TaskTTLSec) * time.Second }
func (c Config) SweepInterval() time.Duration { return time.Duration(c.SweepIntervalSec) * time.Second }
func (c Config) RetryBackoff() time.Duration  { return time.Duration(c.RetryBackoffSec) * time.Second }
func (c Config) CancelGrace() time.Duration   { return time.Duration(c.CancelGraceSec) * time.Second }
func (c Config) ShutdownWait() time.Duration  { return time.Duration(c.ShutdownWaitSec) * time.Second }
func (c Config) SignTTL() time.Duration       { return time.Duration(c.SignTTLSec) * time.Second }
