package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de prophet.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Storage  StorageConfig  `yaml:"storage"`
	Gating   GatingConfig   `yaml:"gating"`
	View     ViewConfig     `yaml:"view"`
	Daily    DailyConfig    `yaml:"daily"`
	Relayer  RelayerConfig  `yaml:"relayer"`
	Watch    WatchConfig    `yaml:"watch"`
	Telegram TelegramConfig `yaml:"telegram"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig contiene los base URLs de las APIs externas.
type APIConfig struct {
	GammaBase       string   `yaml:"gamma_base"`
	PythBase        string   `yaml:"pyth_base"`
	Transports      []string `yaml:"transports"` // direct | corsproxy | allorigins, en orden
	RetryBaseMillis int      `yaml:"retry_base_ms"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
}

// LedgerConfig apunta al programa de mercados y a las claves que firman.
type LedgerConfig struct {
	RPCURL        string  `yaml:"rpc_url"`
	ProgramID     string  `yaml:"program_id"`
	Mint          string  `yaml:"mint"`
	Decimals      uint8   `yaml:"decimals"`
	KeypairPath   string  `yaml:"keypair"`        // wallet que firma stakes y crea mercados
	OracleKeypair string  `yaml:"oracle_keypair"` // solo el relayer
	MinBet        float64 `yaml:"min_bet"`
	MaxBet        float64 `yaml:"max_bet"`
}

// StorageConfig controla dónde se persisten los datos locales.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// GatingConfig fija los saldos mínimos de token.
type GatingConfig struct {
	Threshold       float64 `yaml:"threshold"`        // crear mercados y votar
	ResolutionStake float64 `yaml:"resolution_stake"` // resolución manual
	RewardPool      float64 `yaml:"reward_pool"`      // pool por mercado resuelto
}

// ViewConfig controla la vista agregada.
type ViewConfig struct {
	PageSize    int `yaml:"page_size"`
	BucketLimit int `yaml:"bucket_limit"`
}

// DailyConfig controla el selector de mercados diarios.
type DailyConfig struct {
	Count       int     `yaml:"count"`
	PageSize    int     `yaml:"page_size"`
	MaxPages    int     `yaml:"max_pages"`
	MinVolume   float64 `yaml:"min_volume"`
	WindowHours float64 `yaml:"window_hours"`
}

// RelayerConfig controla el job de resolución por oráculo.
type RelayerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	Workers         int `yaml:"workers"`
}

// WatchConfig fija las cadencias del polling de precios.
type WatchConfig struct {
	FocusedSeconds int `yaml:"focused_seconds"`
	ListSeconds    int `yaml:"list_seconds"`
}

// TelegramConfig activa el aviso del relayer por Telegram si hay token.
type TelegramConfig struct {
	BotToken string   `yaml:"bot_token"`
	ChatIDs  []string `yaml:"chat_ids"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Un path vacío usa solo entorno y defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// RelayInterval devuelve el intervalo del relayer como time.Duration.
func (c *Config) RelayInterval() time.Duration {
	return time.Duration(c.Relayer.IntervalSeconds) * time.Second
}

// RetryBase devuelve la espera del primer reintento contra Gamma.
func (c *Config) RetryBase() time.Duration {
	return time.Duration(c.API.RetryBaseMillis) * time.Millisecond
}

// HTTPTimeout devuelve el timeout por petición HTTP.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// DailyWindow devuelve la ventana del selector diario.
func (c *Config) DailyWindow() time.Duration {
	return time.Duration(c.Daily.WindowHours * float64(time.Hour))
}

// FocusedInterval y ListInterval son las cadencias del polling de precios.
func (c *Config) FocusedInterval() time.Duration {
	return time.Duration(c.Watch.FocusedSeconds) * time.Second
}

func (c *Config) ListInterval() time.Duration {
	return time.Duration(c.Watch.ListSeconds) * time.Second
}

// TelegramEnabled es true si hay token y al menos un chat.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && len(c.Telegram.ChatIDs) > 0
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SOLANA_RPC_URL"); v != "" {
		cfg.Ledger.RPCURL = v
	}
	if v := os.Getenv("PROPHET_KEYPAIR"); v != "" {
		cfg.Ledger.KeypairPath = v
	}
	if v := os.Getenv("ORACLE_KEYPAIR"); v != "" {
		cfg.Ledger.OracleKeypair = v
	}
	if v := os.Getenv("PROPHET_DB"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_IDS"); v != "" {
		cfg.Telegram.ChatIDs = strings.Split(v, ",")
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.PythBase == "" {
		cfg.API.PythBase = "https://hermes.pyth.network"
	}
	if len(cfg.API.Transports) == 0 {
		cfg.API.Transports = []string{"direct", "corsproxy", "allorigins"}
	}
	if cfg.API.RetryBaseMillis <= 0 {
		cfg.API.RetryBaseMillis = 1000
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 10
	}
	if cfg.Ledger.RPCURL == "" {
		cfg.Ledger.RPCURL = "https://api.devnet.solana.com"
	}
	if cfg.Ledger.ProgramID == "" {
		cfg.Ledger.ProgramID = "DcNb3pYGVqo1AdMdJGycDpRPb6d1nPsg3z4x5T714YW"
	}
	if cfg.Ledger.Mint == "" {
		cfg.Ledger.Mint = "6ZFUNyPDn1ycjhb3RbNAmtcVvwp6oL4Zn6GswnGupump"
	}
	if cfg.Ledger.Decimals == 0 {
		cfg.Ledger.Decimals = 6
	}
	if cfg.Ledger.MinBet <= 0 {
		cfg.Ledger.MinBet = 1
	}
	if cfg.Ledger.MaxBet <= 0 {
		cfg.Ledger.MaxBet = 1_000_000
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "prophet.db"
	}
	if cfg.Gating.Threshold <= 0 {
		cfg.Gating.Threshold = 1000
	}
	if cfg.Gating.ResolutionStake <= 0 {
		cfg.Gating.ResolutionStake = 500
	}
	if cfg.Gating.RewardPool <= 0 {
		cfg.Gating.RewardPool = 1000
	}
	if cfg.View.PageSize <= 0 {
		cfg.View.PageSize = 50
	}
	if cfg.View.BucketLimit <= 0 {
		cfg.View.BucketLimit = 10
	}
	if cfg.Daily.Count <= 0 {
		cfg.Daily.Count = 10
	}
	if cfg.Daily.PageSize <= 0 {
		cfg.Daily.PageSize = 100
	}
	if cfg.Daily.MaxPages <= 0 {
		cfg.Daily.MaxPages = 5
	}
	if cfg.Daily.MinVolume <= 0 {
		cfg.Daily.MinVolume = 100
	}
	if cfg.Daily.WindowHours <= 0 {
		cfg.Daily.WindowHours = 24
	}
	if cfg.Relayer.IntervalSeconds <= 0 {
		cfg.Relayer.IntervalSeconds = 300
	}
	if cfg.Relayer.Workers <= 0 {
		cfg.Relayer.Workers = 4
	}
	if cfg.Watch.FocusedSeconds <= 0 {
		cfg.Watch.FocusedSeconds = 5
	}
	if cfg.Watch.ListSeconds <= 0 {
		cfg.Watch.ListSeconds = 15
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
