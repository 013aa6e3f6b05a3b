package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server       ServerConfig
	App          AppConfig
	Store        StoreConfig
	Cache        CacheConfig
	Bus          BusConfig
	Remote       RemoteConfig
	Sync         SyncConfig
	Connectivity ConnectivityConfig
	Scanner      ScannerConfig
	Auth         AuthConfig
}

// ServerConfig holds local HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"127.0.0.1"`
	Port            int           `envconfig:"SERVER_PORT" default:"8069"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"stockex-mobile"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// StoreConfig selects and configures the persistent local store.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite, postgres, mysql or mongodb
	Path string `envconfig:"STORE_PATH" default:"./data/offline.db"`
	// PostgreSQL / MySQL settings
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"5432"`
	Name     string `envconfig:"STORE_DB_NAME" default:"stockex_offline"`
	User     string `envconfig:"STORE_DB_USER" default:"postgres"`
	Password string `envconfig:"STORE_DB_PASS" default:""`
	SSLMode  string `envconfig:"STORE_DB_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI      string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"stockex_offline"`
}

// CacheConfig holds response cache settings for the cache strategy layer.
type CacheConfig struct {
	Type         string   `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	Prefix       string   `envconfig:"CACHE_PREFIX" default:"stockex"`
	Version      string   `envconfig:"CACHE_VERSION" default:"v1.0.0"`
	OfflinePage  string   `envconfig:"CACHE_OFFLINE_PAGE" default:"/stockex/mobile/offline"`
	StaticAssets []string `envconfig:"CACHE_STATIC_ASSETS" default:"/stockex/mobile,/stockex/mobile/offline,/stockex/static/src/css/mobile.css,/stockex/static/src/js/mobile-app.js,/stockex/static/manifest.json"`
	StaticPrefix []string `envconfig:"CACHE_STATIC_PREFIXES" default:"/static/"`
	StaticExt    []string `envconfig:"CACHE_STATIC_EXTENSIONS" default:".css,.js,.png,.jpg,.svg,.woff,.woff2"`
	APIPrefix    []string `envconfig:"CACHE_API_PREFIXES" default:"/api/,/jsonrpc"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// BusConfig selects the broadcast bus between the proxy and the coordinator.
type BusConfig struct {
	Type    string `envconfig:"BUS_TYPE" default:"memory"` // memory or redis
	Channel string `envconfig:"BUS_CHANNEL" default:"stockex:messages"`
}

// RemoteConfig holds settings for the remote ORM endpoints.
type RemoteConfig struct {
	BaseURL     string        `envconfig:"REMOTE_BASE_URL" default:"http://localhost:8070"`
	SyncPath    string        `envconfig:"REMOTE_SYNC_PATH" default:"/api/mobile/inventories/sync"`
	SearchPath  string        `envconfig:"REMOTE_SEARCH_PATH" default:"/api/mobile/products/search"`
	AddLinePath string        `envconfig:"REMOTE_ADD_LINE_PATH" default:"/api/mobile/inventory/add-line"`
	Timeout     time.Duration `envconfig:"REMOTE_TIMEOUT" default:"30s"`
}

// SyncConfig holds sync engine settings.
type SyncConfig struct {
	PollInterval time.Duration `envconfig:"SYNC_POLL_INTERVAL" default:"60s"`
	CycleTimeout time.Duration `envconfig:"SYNC_CYCLE_TIMEOUT" default:"2m"`
}

// ConnectivityConfig holds connectivity probe settings.
type ConnectivityConfig struct {
	ProbePath     string        `envconfig:"CONNECTIVITY_PROBE_PATH" default:"/web/health"`
	ProbeInterval time.Duration `envconfig:"CONNECTIVITY_PROBE_INTERVAL" default:"10s"`
	ProbeTimeout  time.Duration `envconfig:"CONNECTIVITY_PROBE_TIMEOUT" default:"3s"`
}

// ScannerConfig holds barcode capability settings.
type ScannerConfig struct {
	Debounce time.Duration `envconfig:"SCANNER_DEBOUNCE" default:"1000ms"`
}

// AuthConfig holds local API authentication settings.
type AuthConfig struct {
	APIKeys []string `envconfig:"API_KEYS"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Name, s.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.User, s.Password, s.Host, s.Port, s.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// ProbeURL returns the absolute URL probed for connectivity.
func (c *Config) ProbeURL() string {
	return c.Remote.BaseURL + c.Connectivity.ProbePath
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
