package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "GTLOBBY"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv = "GTLOBBY_APP_ENV"
	EnvDBDSN  = "GTLOBBY_DB_DSN"
	EnvDBHost = "GTLOBBY_DB_HOST"
	EnvDBUser = "GTLOBBY_DB_USER"
	EnvDBName = "GTLOBBY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Lobby        LobbyConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Lobby.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GTLOBBY_APP_ENV" required:"true"`
	Port         string `envconfig:"GTLOBBY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GTLOBBY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GTLOBBY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GTLOBBY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GTLOBBY_DB_DSN"`
	Driver string `envconfig:"GTLOBBY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GTLOBBY_DB_HOST"`
	LegacyPort     int    `envconfig:"GTLOBBY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GTLOBBY_DB_USER"`
	LegacyPassword string `envconfig:"GTLOBBY_DB_PASSWORD"`
	LegacyName     string `envconfig:"GTLOBBY_DB_NAME"`
	LegacySSLMode  string `envconfig:"GTLOBBY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GTLOBBY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GTLOBBY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GTLOBBY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GTLOBBY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GTLOBBY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GTLOBBY_REDIS_ADDR"`
	Password     string        `envconfig:"GTLOBBY_REDIS_PASSWORD"`
	DB           int           `envconfig:"GTLOBBY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GTLOBBY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GTLOBBY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GTLOBBY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GTLOBBY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GTLOBBY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GTLOBBY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GTLOBBY_JWT_ISSUER" default:"gtlobby"`
	ExpirationMinutes int    `envconfig:"GTLOBBY_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// LobbyConfig carries the wagering rules of the game lobby.
type LobbyConfig struct {
	MinStake        int64         `envconfig:"GTLOBBY_MIN_STAKE" default:"100"`
	StartingBalance int64         `envconfig:"GTLOBBY_STARTING_BALANCE" default:"1000"`
	GameTimeout     time.Duration `envconfig:"GTLOBBY_GAME_TIMEOUT" default:"30m"`
	SweepInterval   time.Duration `envconfig:"GTLOBBY_SWEEP_INTERVAL" default:"5m"`
	MaxPlayers      int           `envconfig:"GTLOBBY_MAX_PLAYERS" default:"2"`
	ExchangeRate    string        `envconfig:"GTLOBBY_EXCHANGE_RATE" default:"1"`
}

func (l LobbyConfig) validate() error {
	if l.MinStake <= 0 {
		return fmt.Errorf("min stake must be positive")
	}
	if l.GameTimeout <= 0 {
		return fmt.Errorf("game timeout must be positive")
	}
	if l.MaxPlayers != 2 {
		return fmt.Errorf("only two-player sessions are supported")
	}
	rate, err := l.Rate()
	if err != nil {
		return err
	}
	if !rate.IsPositive() {
		return fmt.Errorf("exchange rate must be positive")
	}
	return nil
}

// Rate returns the TAIL->GT exchange rate as a decimal.
func (l LobbyConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(l.ExchangeRate)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing exchange rate %q: %w", l.ExchangeRate, err)
	}
	return rate, nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GTLOBBY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GTLOBBY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
