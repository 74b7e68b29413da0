package config

import (
	"encoding/json"
	"os"
)

// EncSection is the wrapped deployment secret as it appears in the JSON
// document: both halves encrypted under the master pair.
type EncSection struct {
	Key string `json:"key"`
	IV  string `json:"iv"`
}

// JsonConfig mirrors Config for JSON files. It is seeded from the current
// Config before decoding, so keys missing from the file keep their earlier
// value. The file may be the same document the file backend writes client
// data to; unknown keys such as Clients are ignored here.
type JsonConfig struct {
	HTTPAddr        string   `json:"http_addr"`
	ReadTimeout     Duration `json:"read_timeout"`
	WriteTimeout    Duration `json:"write_timeout"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	StoreBackend   string `json:"store_backend"`
	StorePath      string `json:"store_path"`
	DatabaseDSN    string `json:"database_dsn"`
	DocumentName   string `json:"document_name"`
	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3ObjectKey    string `json:"s3_object_key"`

	MasterKey        string     `json:"master_key"`
	MasterIV         string     `json:"master_iv"`
	MasterPassphrase string     `json:"master_passphrase"`
	MasterSalt       string     `json:"master_salt"`
	Enc              EncSection `json:"Enc"`

	SessionSecret string   `json:"session_secret"`
	SessionTTL    Duration `json:"session_ttl"`

	RegistrationTTL   Duration `json:"registration_ttl"`
	DefaultDailyUnits int      `json:"default_daily_units"`
	HistoryLimit      int      `json:"history_limit"`

	CORSOrigins       []string `json:"cors_origins"`
	RegistrationRate  float64  `json:"registration_rate"`
	RegistrationBurst int      `json:"registration_burst"`
}

func jsonFromConfig(c *Config) *JsonConfig {
	return &JsonConfig{
		HTTPAddr:          c.HTTPAddr,
		ReadTimeout:       Duration{c.ReadTimeout},
		WriteTimeout:      Duration{c.WriteTimeout},
		ShutdownTimeout:   Duration{c.ShutdownTimeout},
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
		Enc:               EncSection{Key: c.EncKey, IV: c.EncIV},
		SessionSecret:     c.SessionSecret,
		SessionTTL:        Duration{c.SessionTTL},
		RegistrationTTL:   Duration{c.RegistrationTTL},
		DefaultDailyUnits: c.DefaultDailyUnits,
		HistoryLimit:      c.HistoryLimit,
		CORSOrigins:       c.CORSOrigins,
		RegistrationRate:  c.RegistrationRate,
		RegistrationBurst: c.RegistrationBurst,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.HTTPAddr = j.HTTPAddr
	c.ReadTimeout = j.ReadTimeout.Duration
	c.WriteTimeout = j.WriteTimeout.Duration
	c.ShutdownTimeout = j.ShutdownTimeout.Duration
	c.LogLevel = j.LogLevel
	c.LogFormat = j.LogFormat
	c.StoreBackend = j.StoreBackend
	c.StorePath = j.StorePath
	c.DatabaseDSN = j.DatabaseDSN
	c.DocumentName = j.DocumentName
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.S3ObjectKey = j.S3ObjectKey
	c.MasterKey = j.MasterKey
	c.MasterIV = j.MasterIV
	c.MasterPassphrase = j.MasterPassphrase
	c.MasterSalt = j.MasterSalt
	c.EncKey = j.Enc.Key
	c.EncIV = j.Enc.IV
	c.SessionSecret = j.SessionSecret
	c.SessionTTL = j.SessionTTL.Duration
	c.RegistrationTTL = j.RegistrationTTL.Duration
	c.DefaultDailyUnits = j.DefaultDailyUnits
	c.HistoryLimit = j.HistoryLimit
	c.CORSOrigins = j.CORSOrigins
	c.RegistrationRate = j.RegistrationRate
	c.RegistrationBurst = j.RegistrationBurst
}

// parseJson overlays values from the JSON file named by -c/-config.
//
// If no file is named nothing happens. If the file cannot be read or is not
// valid JSON the function panics: a half-applied config is worse than none.
func parseJson(config *Config) {
	path := configFileFromArgs(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := jsonFromConfig(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}
	c.apply(config)
}
