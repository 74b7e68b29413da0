package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment variable name, e.g.
// LOREMGATE_HTTP_ADDR.
const EnvPrefix = "LOREMGATE"

// dotEnvFile is read, if present, before the environment is processed.
// Variables already set in the process environment win over the file.
var dotEnvFile = ".env"

// envConfig lists the variables parseEnv understands. Fields are seeded
// from the current Config, so unset variables change nothing. envconfig also
// falls back to the unprefixed name (LOG_LEVEL) when the prefixed one is unset.
type envConfig struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT"`

	LogLevel  string `envconfig:"LOG_LEVEL"`
	LogFormat string `envconfig:"LOG_FORMAT"`

	StoreBackend   string `envconfig:"STORE_BACKEND"`
	StorePath      string `envconfig:"STORE_PATH"`
	DatabaseDSN    string `envconfig:"DATABASE_DSN"`
	DocumentName   string `envconfig:"DOCUMENT_NAME"`
	S3RootUser     string `envconfig:"S3_ROOT_USER"`
	S3RootPassword string `envconfig:"S3_ROOT_PASSWORD"`
	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3Region       string `envconfig:"S3_REGION"`
	S3BaseEndpoint string `envconfig:"S3_BASE_ENDPOINT"`
	S3ObjectKey    string `envconfig:"S3_OBJECT_KEY"`

	MasterKey        string `envconfig:"MASTER_KEY"`
	MasterIV         string `envconfig:"MASTER_IV"`
	MasterPassphrase string `envconfig:"MASTER_PASSPHRASE"`
	MasterSalt       string `envconfig:"MASTER_SALT"`
	EncKey           string `envconfig:"ENC_KEY"`
	EncIV            string `envconfig:"ENC_IV"`

	SessionSecret string        `envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL"`

	RegistrationTTL   time.Duration `envconfig:"REGISTRATION_TTL"`
	DefaultDailyUnits int           `envconfig:"DEFAULT_DAILY_UNITS"`
	HistoryLimit      int           `envconfig:"HISTORY_LIMIT"`

	CORSOrigins       []string `envconfig:"CORS_ORIGINS"`
	RegistrationRate  float64  `envconfig:"REGISTRATION_RATE"`
	RegistrationBurst int      `envconfig:"REGISTRATION_BURST"`
}

// parseEnv overlays LOREMGATE_* variables, loading .env first when one
// exists. Malformed values panic, like the other layers.
func parseEnv(c *Config) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	e := envConfig{
		HTTPAddr:          c.HTTPAddr,
		ReadTimeout:       c.ReadTimeout,
		WriteTimeout:      c.WriteTimeout,
		ShutdownTimeout:   c.ShutdownTimeout,
		LogLevel:          c.LogLevel,
		LogFormat:         c.LogFormat,
		StoreBackend:      c.StoreBackend,
		StorePath:         c.StorePath,
		DatabaseDSN:       c.DatabaseDSN,
		DocumentName:      c.DocumentName,
		S3RootUser:        c.S3RootUser,
		S3RootPassword:    c.S3RootPassword,
		S3Bucket:          c.S3Bucket,
		S3Region:          c.S3Region,
		S3BaseEndpoint:    c.S3BaseEndpoint,
		S3ObjectKey:       c.S3ObjectKey,
		MasterKey:         c.MasterKey,
		MasterIV:          c.MasterIV,
		MasterPassphrase:  c.MasterPassphrase,
		MasterSalt:        c.MasterSalt,
		EncKey:            c.EncKey,
		EncIV:             c.EncIV,
		SessionSecret:     c.SessionSecret,
		SessionTTL:        c.SessionTTL,
		RegistrationTTL:   c.RegistrationTTL,
		DefaultDailyUnits: c.DefaultDailyUnits,
		HistoryLimit:      c.HistoryLimit,
		CORSOrigins:       c.CORSOrigins,
		RegistrationRate:  c.RegistrationRate,
		RegistrationBurst: c.RegistrationBurst,
	}

	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		panic(err)
	}

	c.HTTPAddr = e.HTTPAddr
	c.ReadTimeout = e.ReadTimeout
	c.WriteTimeout = e.WriteTimeout
	c.ShutdownTimeout = e.ShutdownTimeout
	c.LogLevel = e.LogLevel
	c.LogFormat = e.LogFormat
	c.StoreBackend = e.StoreBackend
	c.StorePath = e.StorePath
	c.DatabaseDSN = e.DatabaseDSN
	c.DocumentName = e.DocumentName
	c.S3RootUser = e.S3RootUser
	c.S3RootPassword = e.S3RootPassword
	c.S3Bucket = e.S3Bucket
	c.S3Region = e.S3Region
	c.S3BaseEndpoint = e.S3BaseEndpoint
	c.S3ObjectKey = e.S3ObjectKey
	c.MasterKey = e.MasterKey
	c.MasterIV = e.MasterIV
	c.MasterPassphrase = e.MasterPassphrase
	c.MasterSalt = e.MasterSalt
	c.EncKey = e.EncKey
	c.EncIV = e.EncIV
	c.SessionSecret = e.SessionSecret
	c.SessionTTL = e.SessionTTL
	c.RegistrationTTL = e.RegistrationTTL
	c.DefaultDailyUnits = e.DefaultDailyUnits
	c.HistoryLimit = e.HistoryLimit
	c.CORSOrigins = e.CORSOrigins
	c.RegistrationRate = e.RegistrationRate
	c.RegistrationBurst = e.RegistrationBurst
}
