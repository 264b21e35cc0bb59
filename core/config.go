package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

// Config holds all process-wide settings of the console client.
// The backend base URL is the only value most deployments need to set.
type Config struct {
	Debug    bool
	TestMode bool
	Env      string
	AppName  string
	Build    string

	BaseURL        string
	AdminEmail     string
	AdminSecret    string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	SessionFile    string

	RollbarToken string
}

func init() {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Subdesk")
	conf.SetDefault("build", "dev")
	conf.SetDefault("baseURL", "http://localhost:8000")
	conf.SetDefault("adminEmail", "admin@school.edu")
	conf.SetDefault("adminSecret", "google-oauth-placeholder")
	conf.SetDefault("pollInterval", 60*time.Second)
	conf.SetDefault("requestTimeout", 15*time.Second)
	conf.SetDefault("sessionFile", defaultSessionFile())
	conf.SetDefault("rollbarToken", "")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case strings.ToUpper("TEST"):
		testMode = true
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf("config.godotenv: %v", err)
		}
	}
	conf.AutomaticEnv()

	Conf = &Config{
		Debug:          conf.GetBool("debug"),
		TestMode:       testMode,
		Env:            env,
		AppName:        conf.GetString("appName"),
		Build:          conf.GetString("build"),
		BaseURL:        strings.TrimRight(conf.GetString("baseURL"), "/"),
		AdminEmail:     conf.GetString("adminEmail"),
		AdminSecret:    conf.GetString("adminSecret"),
		PollInterval:   conf.GetDuration("pollInterval"),
		RequestTimeout: conf.GetDuration("requestTimeout"),
		SessionFile:    conf.GetString("sessionFile"),
		RollbarToken:   conf.GetString("rollbarToken"),
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".subdesk-session"
	}
	return filepath.Join(dir, "subdesk", "session")
}
