package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"cricket-stream-scraper/pkg/types"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	DefaultFirebaseURL = "https://cricket-stream-portal-default-rtdb.firebaseio.com"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
)

type Config struct {
	Firebase FirebaseConfig `yaml:"firebase"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type FirebaseConfig struct {
	URL     string `yaml:"url"`
	Auth    string `yaml:"auth"`
	Timeout int    `yaml:"timeout"`
}

type ScraperConfig struct {
	Variant             string         `yaml:"variant"`
	ConcurrentWorkers   int            `yaml:"concurrent_workers"`
	DelayBetweenStreams int            `yaml:"delay_between_streams"`
	ResultsFile         string         `yaml:"results_file"`
	StreamsFile         string         `yaml:"streams_file"`
	MetricsFile         string         `yaml:"metrics_file"`
	UserAgent           string         `yaml:"user_agent"`
	Headless            *bool          `yaml:"headless"`
	ChromePath          string         `yaml:"chrome_path"`
	Timings             TimingsConfig  `yaml:"timings"`
	Selenium            SeleniumConfig `yaml:"selenium"`
}

// TimingsConfig overrides the per-variant waits, in seconds. Zero keeps the variant default.
type TimingsConfig struct {
	PageTimeout  int `yaml:"page_timeout"`
	InitialWait  int `yaml:"initial_wait"`
	ClickTimeout int `yaml:"click_timeout"`
	ClickPause   int `yaml:"click_pause"`
	StreamWait   int `yaml:"stream_wait"`
	PollInterval int `yaml:"poll_interval"`
}

type SeleniumConfig struct {
	DriverPath string `yaml:"driver_path"`
	Port       int    `yaml:"port"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Firebase: FirebaseConfig{
			URL:     DefaultFirebaseURL,
			Timeout: 10,
		},
		Scraper: ScraperConfig{
			Variant:             "aggressive",
			ConcurrentWorkers:   1,
			DelayBetweenStreams: 5,
			ResultsFile:         "scrape_results.json",
			StreamsFile:         "configs/streams.yaml",
			MetricsFile:         "data/metrics.json",
			UserAgent:           DefaultUserAgent,
			Selenium: SeleniumConfig{
				DriverPath: "chromedriver",
			},
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			Name:    "cricket_streams",
			User:    "postgres",
			SSLMode: "disable",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultStreams is the built-in stream list.
func DefaultStreams() []types.StreamConfig {
	return []types.StreamConfig{
		{
			URL:   "https://crichdplayer.com/willow-cricket-extra-live-stream-play-01",
			Name:  "Willow Cricket Extra",
			Title: "Watch Stream Live Cricket on Willow Tv - CricHD",
		},
	}
}

func Load(configFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		switch {
		case os.IsNotExist(err):
			// env-only runs are supported
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyEnv(config)

	if config.Scraper.ConcurrentWorkers < 1 {
		config.Scraper.ConcurrentWorkers = 1
	}
	if config.Scraper.DelayBetweenStreams < 0 {
		config.Scraper.DelayBetweenStreams = 0
	}
	if config.Firebase.URL == "" {
		return nil, fmt.Errorf("firebase url is required")
	}

	return config, nil
}

func applyEnv(config *Config) {
	if v := os.Getenv("FIREBASE_URL"); v != "" {
		config.Firebase.URL = v
	}
	if v := os.Getenv("FIREBASE_AUTH"); v != "" {
		config.Firebase.Auth = v
	}
	if v := os.Getenv("SCRAPER_VARIANT"); v != "" {
		config.Scraper.Variant = v
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		config.Scraper.ChromePath = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		config.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Database.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		config.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		config.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		config.Database.Name = v
	}
	if v := os.Getenv("DB_SSL_MODE"); v != "" {
		config.Database.SSLMode = v
	}
}

// IsHeadless defaults to true when unset.
func (s ScraperConfig) IsHeadless() bool {
	return s.Headless == nil || *s.Headless
}

// LoadStreams reads the streams file, falling back to DefaultStreams when it
// is missing, then appends any streams from the STREAM_URLS_JSON env var.
// A malformed STREAM_URLS_JSON is reported through warn and ignored.
func LoadStreams(streamsFile string, warn func(format string, args ...interface{})) ([]types.StreamConfig, error) {
	streams := DefaultStreams()

	if streamsFile != "" {
		data, err := os.ReadFile(streamsFile)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read streams file: %w", err)
		default:
			var file struct {
				Streams []types.StreamConfig `yaml:"streams"`
			}
			if err := yaml.Unmarshal(data, &file); err != nil {
				return nil, fmt.Errorf("failed to parse streams file: %w", err)
			}
			if len(file.Streams) > 0 {
				streams = file.Streams
			}
		}
	}

	if custom := os.Getenv("STREAM_URLS_JSON"); custom != "" {
		var extra []types.StreamConfig
		if err := json.Unmarshal([]byte(custom), &extra); err != nil {
			if warn != nil {
				warn("Ignoring malformed STREAM_URLS_JSON: %v", err)
			}
		} else {
			streams = append(streams, extra...)
		}
	}

	var valid []types.StreamConfig
	for _, s := range streams {
		if s.URL == "" {
			if warn != nil {
				warn("Skipping stream %q without url", s.Name)
			}
			continue
		}
		valid = append(valid, s)
	}
	return valid, nil
}
