package config

import (
	"flag"
	"os"
	"time"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-l string   log level (debug, info, warn, error)
//	-m string   store backend (memory, file, postgres, s3)
//	-f string   snapshot file path for the file backend
//	-d string   PostgreSQL DSN
//	-s string   session token HMAC secret
//	-t int      session token validity, minutes
//	-r int      registration code validity, minutes
//	-q int      default daily units for new clients
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//
// Arguments are filtered first so -c/-config and unknown flags are ignored.
func parseFlags(config *Config) {
	args := filterArgs(os.Args[1:], []string{
		"-a", "-l", "-m", "-f", "-d", "-s", "-t", "-r", "-q", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.StoreBackend, "m", config.StoreBackend, "store backend")
	fs.StringVar(&config.StorePath, "f", config.StorePath, "snapshot file path")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SessionSecret, "s", config.SessionSecret, "session secret")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session_ttl (in minutes)")
	registrationTTL := fs.Int("r", int(config.RegistrationTTL.Minutes()), "registration_ttl (in minutes)")

	fs.IntVar(&config.DefaultDailyUnits, "q", config.DefaultDailyUnits, "default daily units")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
	config.RegistrationTTL = time.Duration(*registrationTTL) * time.Minute
}
