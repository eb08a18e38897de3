package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del autotrader.
type Config struct {
	Trader  TraderConfig  `yaml:"trader"`
	Kalshi  KalshiConfig  `yaml:"kalshi"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// TraderConfig controla sizing, límites de riesgo y el scheduler.
type TraderConfig struct {
	Bankroll             float64 `yaml:"bankroll"`
	MinEdge              float64 `yaml:"min_edge"`
	KellyFraction        float64 `yaml:"kelly_fraction"`
	MakerDiscount        float64 `yaml:"maker_discount"`
	MinPrice             float64 `yaml:"min_price"`
	MaxPrice             float64 `yaml:"max_price"`
	PollSeconds          int     `yaml:"poll_seconds"`
	MaxDailyExposure     float64 `yaml:"max_daily_exposure"`
	MaxPerMarketExposure float64 `yaml:"max_per_market_exposure"`
	MaxOrdersPerRun      int     `yaml:"max_orders_per_run"`
	OrderRetries         int     `yaml:"order_retries"`
	KillSwitchFile       string  `yaml:"kill_switch_file"`
	Timezone             string  `yaml:"timezone"`          // zona del operador (date keys)
	ScheduleTimezone     string  `yaml:"schedule_timezone"` // zona de los horarios scrapeados
}

// KalshiConfig contiene el base URL del API. Las credenciales (key id y
// ruta de la clave privada) vienen SOLO de variables de entorno, nunca del YAML.
type KalshiConfig struct {
	BaseURL        string `yaml:"base_url"`
	KeyID          string `yaml:"-"`
	PrivateKeyPath string `yaml:"-"`
}

// StorageConfig controla dónde se persisten el estado y el journal.
type StorageConfig struct {
	StateFile string `yaml:"state_file"` // ledger JSON de exposición diaria
	DSN       string `yaml:"dsn"`        // SQLite del journal, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del entorno sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// PollInterval devuelve el intervalo de espera del scheduler como time.Duration.
func (t TraderConfig) PollInterval() time.Duration {
	return time.Duration(t.PollSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KALSHI_BASE_URL"); v != "" {
		cfg.Kalshi.BaseURL = v
	}
	cfg.Kalshi.KeyID = os.Getenv("KALSHI_KEY_ID")
	cfg.Kalshi.PrivateKeyPath = os.Getenv("KALSHI_PRIVATE_KEY_PATH")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Los defaults de riesgo son deliberadamente conservadores.
func setDefaults(cfg *Config) {
	t := &cfg.Trader
	if t.MinEdge <= 0 {
		t.MinEdge = 0.15
	}
	if t.KellyFraction <= 0 {
		t.KellyFraction = 0.25
	}
	if t.MakerDiscount <= 0 {
		t.MakerDiscount = 0.02
	}
	if t.MinPrice <= 0 {
		t.MinPrice = 0.01
	}
	if t.MaxPrice <= 0 {
		t.MaxPrice = 0.99
	}
	if t.PollSeconds <= 0 {
		t.PollSeconds = 30
	}
	if t.MaxDailyExposure <= 0 {
		t.MaxDailyExposure = 300
	}
	if t.MaxPerMarketExposure <= 0 {
		t.MaxPerMarketExposure = 75
	}
	if t.MaxOrdersPerRun <= 0 {
		t.MaxOrdersPerRun = 40
	}
	if t.OrderRetries <= 0 {
		t.OrderRetries = 3
	}
	if t.KillSwitchFile == "" {
		t.KillSwitchFile = "autotrader.stop"
	}
	if t.Timezone == "" {
		t.Timezone = "America/Chicago"
	}
	if t.ScheduleTimezone == "" {
		t.ScheduleTimezone = "America/Chicago"
	}

	if cfg.Kalshi.BaseURL == "" {
		cfg.Kalshi.BaseURL = "https://demo-api.kalshi.co/trade-api/v2"
	}
	if cfg.Storage.StateFile == "" {
		cfg.Storage.StateFile = "out/autotrader_state.json"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "autotrader.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
