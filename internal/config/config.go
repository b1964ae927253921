package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	ReferenceDataset  string
	ReferenceIDColumn string
	ReferenceSheet    string

	ReferenceURL          string
	ReferenceAPIToken     string
	ReferenceTimeoutMs    int
	ReferenceRateLimitRPS int

	IdentifierPrefix    string
	IdentifierMinDigits int
	IdentifierMaxDigits int

	MatchThreshold       int
	MatchIndexMinRecords int

	HTTPAddr        string
	HTTPMaxUploadMB int

	OCRLanguage string
	OCRPSM      int
	OCRContrast float64
	OCRSharpen  float64

	InboxDir         string
	InboxDoneDir     string
	InboxIntervalSec int

	MailProvider string
	MailLabel    string
	MailFetchMax int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		ReferenceDataset:  getEnv("REFERENCE_DATASET", ""),
		ReferenceIDColumn: getEnv("REFERENCE_ID_COLUMN", "DL_NO"),
		ReferenceSheet:    getEnv("REFERENCE_SHEET", ""),

		ReferenceURL:          getEnv("REFERENCE_URL", ""),
		ReferenceAPIToken:     getEnv("REFERENCE_API_TOKEN", ""),
		ReferenceTimeoutMs:    getEnvInt("REFERENCE_TIMEOUT_MS", 15000),
		ReferenceRateLimitRPS: getEnvInt("REFERENCE_RATE_LIMIT_RPS", 2),

		IdentifierPrefix:    getEnv("IDENTIFIER_PREFIX", "MH"),
		IdentifierMinDigits: getEnvInt("IDENTIFIER_MIN_DIGITS", 10),
		IdentifierMaxDigits: getEnvInt("IDENTIFIER_MAX_DIGITS", 15),

		MatchThreshold:       getEnvInt("MATCH_THRESHOLD", 90),
		MatchIndexMinRecords: getEnvInt("MATCH_INDEX_MIN_RECORDS", 5000),

		HTTPAddr:        getEnv("HTTP_ADDR", ":5000"),
		HTTPMaxUploadMB: getEnvInt("HTTP_MAX_UPLOAD_MB", 10),

		OCRLanguage: getEnv("OCR_LANGUAGE", "eng"),
		OCRPSM:      getEnvInt("OCR_PSM", 6),
		OCRContrast: getEnvFloat("OCR_CONTRAST", 2.0),
		OCRSharpen:  getEnvFloat("OCR_SHARPEN", 1.0),

		InboxDir:         getEnv("INBOX_DIR", filepath.Join(cwd, "data", "inbox")),
		InboxDoneDir:     getEnv("INBOX_DONE_DIR", filepath.Join(cwd, "data", "inbox", "done")),
		InboxIntervalSec: getEnvInt("INBOX_INTERVAL_SEC", 30),

		MailProvider: getEnv("MAIL_PROVIDER", ""),
		MailLabel:    getEnv("MAIL_LABEL", "INBOX"),
		MailFetchMax: getEnvInt("MAIL_FETCH_MAX", 20),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.IdentifierPrefix) == "" {
		return fmt.Errorf("IDENTIFIER_PREFIX must not be empty")
	}
	if c.IdentifierMinDigits < 1 || c.IdentifierMaxDigits < c.IdentifierMinDigits {
		return fmt.Errorf("invalid identifier digit range %d..%d", c.IdentifierMinDigits, c.IdentifierMaxDigits)
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 100 {
		return fmt.Errorf("MATCH_THRESHOLD must be within 0..100, got %d", c.MatchThreshold)
	}
	switch strings.ToLower(strings.TrimSpace(c.MailProvider)) {
	case "", "gmail", "imap":
	default:
		return fmt.Errorf("unsupported MAIL_PROVIDER: %s", c.MailProvider)
	}
	return nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
