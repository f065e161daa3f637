package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API and migrate processes.
// Values come from env; a .env file in the working directory is loaded first if present
// and never overrides variables already set by the process runner.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Analysis AnalysisConfig
}

type AppConfig struct {
	Env  string
	Port int
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	// Driver is postgres (default) or sqlite (local development only).
	Driver string

	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// Path is the SQLite database file, used when Driver is sqlite.
	Path string

	AutoMigrate bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	BcryptCost int
	// AdminEmails get the admin role at signup. Compared case-insensitively.
	AdminEmails []string
}

type AnalysisConfig struct {
	BaseURL string
	APIKey  string
	Model   string

	// Timeout bounds the whole analysis call, retries included.
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// MaxInFlight caps concurrent analyses per user. Zero disables the cap.
	MaxInFlight int
}

func Load() (Config, error) {
	_ = godotenv.Load() // missing .env is fine

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = optionalInt(parseErrs, "APP_PORT", 8080)

	c.DB, parseErrs = loadDB(parseErrs)

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = optionalInt(parseErrs, "REDIS_PORT", 6379)
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.DB, parseErrs = optionalInt(parseErrs, "REDIS_DB", 0)

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL, parseErrs = optionalDuration(parseErrs, "JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL, parseErrs = optionalDuration(parseErrs, "JWT_REFRESH_TTL")
	c.Auth.BcryptCost, parseErrs = optionalInt(parseErrs, "BCRYPT_COST", 0)
	c.Auth.AdminEmails = splitList(os.Getenv("ADMIN_EMAILS"))

	c.Analysis.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("ANALYSIS_BASE_URL")), "/")
	c.Analysis.APIKey = os.Getenv("ANALYSIS_API_KEY")
	c.Analysis.Model = strings.TrimSpace(os.Getenv("ANALYSIS_MODEL"))
	c.Analysis.Timeout, parseErrs = optionalDuration(parseErrs, "ANALYSIS_TIMEOUT")
	c.Analysis.MaxRetries, parseErrs = optionalInt(parseErrs, "ANALYSIS_MAX_RETRIES", 0)
	c.Analysis.RetryBackoff, parseErrs = optionalDuration(parseErrs, "ANALYSIS_RETRY_BACKOFF")
	c.Analysis.MaxInFlight, parseErrs = optionalInt(parseErrs, "ANALYSIS_MAX_INFLIGHT", 0)

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadDB reads only the database section. Used by cmd/migrate, which must not
// require auth or analysis settings.
func LoadDB() (DBConfig, error) {
	_ = godotenv.Load()

	db, errs := loadDB(nil)
	if err := joinErrors(errs); err != nil {
		return DBConfig{}, err
	}
	errs = db.validate(false)
	if err := joinErrors(errs); err != nil {
		return DBConfig{}, err
	}
	return db, nil
}

func loadDB(parseErrs []error) (DBConfig, []error) {
	var db DBConfig
	db.Driver = strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER")))
	db.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	db.Port, parseErrs = optionalInt(parseErrs, "DB_PORT", 5432)
	db.User = strings.TrimSpace(os.Getenv("DB_USER"))
	db.Password = os.Getenv("DB_PASSWORD")
	db.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	db.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	db.Path = strings.TrimSpace(os.Getenv("DB_PATH"))
	db.AutoMigrate, parseErrs = optionalBool(parseErrs, "DB_AUTO_MIGRATE")
	return db, parseErrs
}

// Validate checks required values and fills env-dependent defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	errs = append(errs, c.DB.validate(c.IsProduction())...)

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Redis.DB < 0 || c.Redis.DB > 15 {
		errs = append(errs, fmt.Errorf("REDIS_DB must be between 0 and 15, got %d", c.Redis.DB))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}
	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}

	if c.Analysis.BaseURL == "" {
		c.Analysis.BaseURL = "https://api.openai.com/v1"
	}
	if c.Analysis.Model == "" {
		c.Analysis.Model = "gpt-4o-mini"
	}
	if c.Analysis.APIKey == "" {
		errs = append(errs, errors.New("ANALYSIS_API_KEY is required"))
	}
	if c.Analysis.Timeout <= 0 {
		c.Analysis.Timeout = 60 * time.Second
	}
	if c.Analysis.RetryBackoff <= 0 {
		c.Analysis.RetryBackoff = time.Second
	}
	if c.Analysis.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("ANALYSIS_MAX_RETRIES must be >= 0, got %d", c.Analysis.MaxRetries))
	}
	if c.Analysis.MaxInFlight < 0 {
		errs = append(errs, fmt.Errorf("ANALYSIS_MAX_INFLIGHT must be >= 0, got %d", c.Analysis.MaxInFlight))
	}
	if c.Analysis.MaxInFlight > 0 && c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required when ANALYSIS_MAX_INFLIGHT is set"))
	}

	return joinErrors(errs)
}

func (d *DBConfig) validate(production bool) []error {
	var errs []error

	if d.Driver == "" {
		d.Driver = DriverPostgres
	}
	switch d.Driver {
	case DriverPostgres:
		if d.Host == "" {
			errs = append(errs, errors.New("DB_HOST is required"))
		}
		if d.Port <= 0 || d.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", d.Port))
		}
		if d.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if d.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required"))
		}
		if d.SSLMode == "" {
			if production {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				d.SSLMode = "disable"
			}
		}
		if d.SSLMode != "" && !isValidSSLMode(d.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", d.SSLMode))
		}
	case DriverSQLite:
		if production {
			errs = append(errs, errors.New("DB_DRIVER=sqlite is not allowed in production"))
		}
		if d.Path == "" {
			d.Path = "callnotes.db"
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be one of postgres, sqlite, got %q", d.Driver))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// DSN returns the driver-specific data source name.
// Avoid logging this string; it contains secrets.
func (d DBConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return d.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func optionalInt(errs []error, key string, def int) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func optionalDuration(errs []error, key string) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration, got %q", key, v))
	}
	return d, errs
}

func optionalBool(errs []error, key string) (bool, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, errs
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, append(errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
	}
	return b, errs
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
