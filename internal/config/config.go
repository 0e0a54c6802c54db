package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port     int
	LogLevel string
	Env      string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis config
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Screen event channel on Redis pub/sub
	ScreenEventChannel string

	// SQS config for business event ingestion
	SQSRegion   string
	SQSQueueURL string

	// AWS Services
	AWSRegion   string
	SESFromName string
	SESFrom     string
	SNSTopicARN string

	// Collaborator base URLs
	CaseAPIURL      string
	TaskAPIURL      string
	DocumentAPIURL  string
	DirectoryAPIURL string
	SearchAPIURL    string

	// Due-date scan
	ScanHour         int  // local hour the nightly scan fires
	ScanEnabled      bool // disable to drive scans via the internal endpoint
	SignalMaxAgeDays int  // retention for dashboard signals

	// Rate limiting
	RateLimitRequests int // requests per window, 0 disables
	RateLimitWindow   int // window in seconds
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Port:     8080,
		LogLevel: "info",
		Env:      "development",

		// Local postgres defaults
		DBHost:     "localhost",
		DBPort:     5432,
		DBUser:     "casewatch",
		DBPassword: "",
		DBName:     "casewatch",
		DBSSLMode:  "disable",

		// Redis defaults
		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,

		AWSRegion:   "eu-west-1",
		SESFromName: "Casewatch",
		SESFrom:     "noreply@casewatch.local",

		ScanHour:         2,
		ScanEnabled:      true,
		SignalMaxAgeDays: 30,

		RateLimitRequests: 100,
		RateLimitWindow:   60,
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = p
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if env := os.Getenv("ENV"); env != "" {
		cfg.Env = env
	}

	// Database config
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DBHost = host
	}

	if port := os.Getenv("DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.DBPort = p
	}

	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DBUser = user
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DBPassword = password
	}

	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}

	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.DBSSLMode = sslmode
	}

	// Redis config
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.RedisHost = host
	}

	if port := os.Getenv("REDIS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
		}
		cfg.RedisPort = p
	}

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		d, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = d
	}

	if channel := os.Getenv("SCREEN_EVENT_CHANNEL"); channel != "" {
		cfg.ScreenEventChannel = channel
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.AWSRegion = region
	}

	if name := os.Getenv("SES_FROM_NAME"); name != "" {
		cfg.SESFromName = name
	}

	if from := os.Getenv("SES_FROM_EMAIL"); from != "" {
		cfg.SESFrom = from
	}

	if arn := os.Getenv("SNS_TOPIC_ARN"); arn != "" {
		cfg.SNSTopicARN = arn
	}

	// SQS config
	if region := os.Getenv("SQS_REGION"); region != "" {
		cfg.SQSRegion = region
	} else {
		cfg.SQSRegion = cfg.AWSRegion
	}

	if url := os.Getenv("SQS_QUEUE_URL"); url != "" {
		cfg.SQSQueueURL = url
	}

	// Collaborator APIs
	if url := os.Getenv("CASE_API_URL"); url != "" {
		cfg.CaseAPIURL = url
	}
	if url := os.Getenv("TASK_API_URL"); url != "" {
		cfg.TaskAPIURL = url
	}
	if url := os.Getenv("DOCUMENT_API_URL"); url != "" {
		cfg.DocumentAPIURL = url
	}
	if url := os.Getenv("DIRECTORY_API_URL"); url != "" {
		cfg.DirectoryAPIURL = url
	}
	if url := os.Getenv("SEARCH_API_URL"); url != "" {
		cfg.SearchAPIURL = url
	}

	// Scan config
	if hour := os.Getenv("SCAN_HOUR"); hour != "" {
		h, err := strconv.Atoi(hour)
		if err != nil || h < 0 || h > 23 {
			return nil, fmt.Errorf("invalid SCAN_HOUR: %q", hour)
		}
		cfg.ScanHour = h
	}

	if enabled := os.Getenv("SCAN_ENABLED"); enabled != "" {
		e, err := strconv.ParseBool(enabled)
		if err != nil {
			return nil, fmt.Errorf("invalid SCAN_ENABLED: %w", err)
		}
		cfg.ScanEnabled = e
	}

	if days := os.Getenv("SIGNAL_MAX_AGE_DAYS"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SIGNAL_MAX_AGE_DAYS: %q", days)
		}
		cfg.SignalMaxAgeDays = d
	}

	// Rate limiting
	if requests := os.Getenv("RATE_LIMIT_REQUESTS"); requests != "" {
		n, err := strconv.Atoi(requests)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_REQUESTS: %q", requests)
		}
		cfg.RateLimitRequests = n
	}

	if window := os.Getenv("RATE_LIMIT_WINDOW"); window != "" {
		n, err := strconv.Atoi(window)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %q", window)
		}
		cfg.RateLimitWindow = n
	}

	return cfg, nil
}
