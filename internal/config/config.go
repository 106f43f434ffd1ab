// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Rate Limit（このサービス自身のAPIに対する制限。req/min単位）
	RateLimitGeneral int
	RateLimitIngest  int

	// Capture
	ExportMaxRecords  int
	ListDefaultLimit  int
	SessionStaleAfter time.Duration

	// Worker
	WorkerInterval time.Duration

	// Server
	ServerPort string

	// CORS（拡張機能のオリジンを指定する）
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 240)
	cfg.RateLimitIngest = getEnvInt("RATE_LIMIT_INGEST", 600)
	cfg.ExportMaxRecords = getEnvInt("EXPORT_MAX_RECORDS", 10000)
	cfg.ListDefaultLimit = getEnvInt("LIST_DEFAULT_LIMIT", 100)
	cfg.SessionStaleAfter = getEnvDuration("SESSION_STALE_AFTER", 24*time.Hour)
	cfg.WorkerInterval = getEnvDuration("WORKER_INTERVAL", 1*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
