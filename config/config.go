package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL string
	WSBaseURL  string
	RedisAddr  string
	Token      string

	// MaxSkips is the skip budget for one respond session; finishing is
	// withheld while the skip count exceeds it.
	MaxSkips int
	// MinPolls is the smallest poll count a Qwirl needs before it can be
	// responded to at all.
	MinPolls int
	// RevealDuration is how long the wavelength counter sweep runs.
	RevealDuration time.Duration
}

func Load() *Config {
	// Best effort; a missing .env just means plain env vars.
	_ = godotenv.Load()

	token := os.Getenv("QWIRL_TOKEN")
	if token == "" {
		token = readTokenFile()
	}

	return &Config{
		APIBaseURL:     getEnv("QWIRL_API_URL", "https://api.qwirl.app/v1"),
		WSBaseURL:      getEnv("QWIRL_WS_URL", "wss://api.qwirl.app/v1"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		Token:          token,
		MaxSkips:       getEnvInt("QWIRL_MAX_SKIPS", 3),
		MinPolls:       getEnvInt("QWIRL_MIN_POLLS", 3),
		RevealDuration: time.Duration(getEnvInt("QWIRL_REVEAL_MS", 1600)) * time.Millisecond,
	}
}

// TokenPath is where `qwirl login` stores the bearer token.
func TokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".qwirl-token"
	}
	return filepath.Join(home, ".qwirl", "token")
}

func readTokenFile() string {
	data, err := os.ReadFile(TokenPath())
	if err != nil {
		return ""
	}
	return string(trimNewline(data))
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
