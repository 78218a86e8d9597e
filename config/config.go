package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Strategy  StrategyConfig  `yaml:"strategy"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Log       LogConfig       `yaml:"log"`
}

// StrategyConfig controla la estrategia de settlement arbitrage.
type StrategyConfig struct {
	MinThreshold        float64 `yaml:"min_threshold"`         // banda inferior de precio
	MaxThreshold        float64 `yaml:"max_threshold"`         // banda superior de precio
	StartingBalance     float64 `yaml:"starting_balance"`      // capital paper inicial en USDC
	CapitalSplit        float64 `yaml:"capital_split"`         // fracción del capital por posición
	MaxPositions        int     `yaml:"max_positions"`         // posiciones abiertas simultáneas
	LeadSeconds         int     `yaml:"lead_seconds"`          // antelación de la compra sobre el cierre
	PollIntervalSeconds int     `yaml:"poll_interval_seconds"` // tick del loop de orquestación
	CacheTTLSeconds     int     `yaml:"cache_ttl_seconds"`     // refresh de la lista de mercados
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig controla dónde se persiste el histórico de auditoría.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// AlertsConfig controla el alert manager.
type AlertsConfig struct {
	WebhookURL      string      `yaml:"webhook_url"`      // vacío deshabilita el webhook
	MinSeverity     string      `yaml:"min_severity"`     // info | warning | error | critical
	CooldownSeconds int         `yaml:"cooldown_seconds"` // dedup de alertas repetidas
	Email           EmailConfig `yaml:"email"`
}

// EmailConfig controla el sender de alertas por SMTP.
type EmailConfig struct {
	Host     string   `yaml:"host"` // vacío deshabilita el email
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"` // normalmente viene de SMTP_PASSWORD
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// DashboardConfig controla la API de monitoreo.
type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
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

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// PollInterval devuelve el tick del loop como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Strategy.PollIntervalSeconds) * time.Second
}

// LeadTime devuelve la antelación de ejecución como time.Duration.
func (c *Config) LeadTime() time.Duration {
	return time.Duration(c.Strategy.LeadSeconds) * time.Second
}

// CacheTTL devuelve el TTL de la caché de mercados como time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Strategy.CacheTTLSeconds) * time.Second
}

// AlertCooldown devuelve la ventana de dedup de alertas como time.Duration.
func (c *Config) AlertCooldown() time.Duration {
	return time.Duration(c.Alerts.CooldownSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Alerts.WebhookURL = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Alerts.Email.Password = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Strategy.MinThreshold <= 0 {
		cfg.Strategy.MinThreshold = 0.985
	}
	if cfg.Strategy.MaxThreshold <= 0 {
		cfg.Strategy.MaxThreshold = 1.00
	}
	if cfg.Strategy.StartingBalance <= 0 {
		cfg.Strategy.StartingBalance = 10_000
	}
	if cfg.Strategy.CapitalSplit <= 0 {
		cfg.Strategy.CapitalSplit = 0.20
	}
	if cfg.Strategy.MaxPositions <= 0 {
		cfg.Strategy.MaxPositions = 5
	}
	if cfg.Strategy.LeadSeconds <= 0 {
		cfg.Strategy.LeadSeconds = 30
	}
	if cfg.Strategy.PollIntervalSeconds <= 0 {
		cfg.Strategy.PollIntervalSeconds = 5
	}
	if cfg.Strategy.CacheTTLSeconds <= 0 {
		cfg.Strategy.CacheTTLSeconds = 60
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "settlebot.db"
	}
	if cfg.Alerts.MinSeverity == "" {
		cfg.Alerts.MinSeverity = "warning"
	}
	if cfg.Alerts.CooldownSeconds <= 0 {
		cfg.Alerts.CooldownSeconds = 300
	}
	if cfg.Dashboard.Addr == "" {
		cfg.Dashboard.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate rechaza configuraciones incoherentes que los defaults no arreglan.
func (c *Config) validate() error {
	if c.Strategy.MinThreshold >= c.Strategy.MaxThreshold {
		return fmt.Errorf("min_threshold %.3f must be below max_threshold %.3f",
			c.Strategy.MinThreshold, c.Strategy.MaxThreshold)
	}
	if c.Strategy.MaxThreshold > 1.00 {
		return fmt.Errorf("max_threshold %.3f above 1.00 makes no sense for binary markets",
			c.Strategy.MaxThreshold)
	}
	if c.Strategy.CapitalSplit > 1.00 {
		return fmt.Errorf("capital_split %.2f cannot exceed 1.0", c.Strategy.CapitalSplit)
	}
	return nil
}
