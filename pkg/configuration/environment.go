package configuration

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/iota-uz/opsdesk/pkg/logging"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

const (
	ProgressBackendLog   = "log"
	ProgressBackendRedis = "redis"

	MinBatchSize = 1
	MaxBatchSize = 50
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the env files that exist in the working directory. When none
// do, it retries from the nearest parent directory holding a go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if root, ok := moduleRoot(); ok {
			existing = existingFiles(root, envFiles)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, envFiles []string) []string {
	out := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		path := file
		if dir != "" {
			path = filepath.Join(dir, file)
		}
		if fs.FileExists(path) {
			out = append(out, path)
		}
	}
	return out
}

func moduleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"opsdesk"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RedisOptions struct {
	URL      string `env:"REDIS_URL" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type WorkflowOptions struct {
	// BatchSize is the number of records decided per chunk.
	BatchSize int `env:"WORKFLOW_BATCH_SIZE" envDefault:"5"`
	// OptimisticLocking rejects writes whose version does not match the stored one.
	// Off means last write wins.
	OptimisticLocking bool   `env:"WORKFLOW_OPTIMISTIC_LOCKING" envDefault:"false"`
	ProgressBackend   string `env:"WORKFLOW_PROGRESS_BACKEND" envDefault:"log"`
	// ItemTimeout bounds a single decision inside a batch. Zero disables it.
	ItemTimeout time.Duration `env:"WORKFLOW_ITEM_TIMEOUT" envDefault:"10s"`
}

// Validate normalizes the workflow options. Out of range batch sizes are clamped.
func (w *WorkflowOptions) Validate() error {
	if w.BatchSize < MinBatchSize {
		w.BatchSize = MinBatchSize
	}
	if w.BatchSize > MaxBatchSize {
		w.BatchSize = MaxBatchSize
	}
	backend := strings.ToLower(strings.TrimSpace(w.ProgressBackend))
	if backend == "" {
		backend = ProgressBackendLog
	}
	switch backend {
	case ProgressBackendLog, ProgressBackendRedis:
	default:
		return fmt.Errorf("invalid WORKFLOW_PROGRESS_BACKEND=%q (expected log|redis)", w.ProgressBackend)
	}
	w.ProgressBackend = backend
	if w.ItemTimeout < 0 {
		return fmt.Errorf("WORKFLOW_ITEM_TIMEOUT must be non-negative, got %s", w.ItemTimeout)
	}
	return nil
}

type Configuration struct {
	Database   DatabaseOptions
	Prometheus PrometheusOptions
	Redis      RedisOptions
	Workflow   WorkflowOptions

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	// When set, logs are also written to this file as JSON lines.
	LogPath string `env:"LOG_PATH"`
	// Looked up on each request; a random uuid is generated when absent.
	RequestIDHeader string        `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Load builds a configuration from the given env files, without touching the singleton.
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	if c.LogPath == "" {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	} else {
		f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
		if err != nil {
			return err
		}
		c.logFile = f
		c.logger = logger
	}

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

func (c *Configuration) validate() error {
	var errs []error
	if err := c.Workflow.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("workflow configuration error: %w", err))
	}
	if c.Workflow.ProgressBackend == ProgressBackendRedis && strings.TrimSpace(c.Redis.URL) == "" {
		errs = append(errs, errors.New("REDIS_URL is required when WORKFLOW_PROGRESS_BACKEND=redis"))
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT=%d", c.ServerPort))
	}
	switch c.LogLevel {
	case "silent", "error", "warn", "info", "debug":
	default:
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL=%q (expected silent|error|warn|info|debug)", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
		c.logFile = nil
	}
}
