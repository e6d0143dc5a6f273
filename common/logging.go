package common

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// Log levels for hierarchical logging
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var logLevels = map[string]int{
	"debug": LevelDebug,
	"info":  LevelInfo,
	"warn":  LevelWarn,
	"error": LevelError,
	"fatal": LevelFatal,
}

// shouldLog determines if a message at the given level should be logged
func shouldLog(level string) bool {
	currentLevel := Env("DBCLONE_LOG_LEVEL", "info")

	currentLevelNum, ok1 := logLevels[strings.ToLower(currentLevel)]
	targetLevelNum, ok2 := logLevels[strings.ToLower(level)]

	if !ok1 || !ok2 {
		return true // unknown level, log it
	}

	return targetLevelNum >= currentLevelNum
}

// logOutput handles both text and JSON output based on DBCLONE_LOG_FORMAT
func logOutput(level string, format string, args ...interface{}) {
	message := sanitizeForLogging(fmt.Sprintf(format, args...))

	if Env("DBCLONE_LOG_FORMAT", "text") == "json" {
		entry := map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"level":     strings.ToLower(level),
			"message":   message,
		}
		if jsonBytes, err := json.Marshal(entry); err == nil {
			fmt.Println(string(jsonBytes))
		} else {
			fmt.Printf("%s: %s\n", level, message)
		}
	} else {
		fmt.Printf("%s/%s %s: %s\n",
			time.Now().Format("2006/01/02"),
			time.Now().Format("15:04:05"),
			level, message)
	}
}

// DebugLog logs debug messages only if log level allows it
func DebugLog(format string, args ...interface{}) {
	if shouldLog("debug") {
		logOutput("DEBUG", format, args...)
	}
}

// InfoLog logs info messages only if log level allows it
func InfoLog(format string, args ...interface{}) {
	if shouldLog("info") {
		logOutput("INFO", format, args...)
	}
}

// WarnLog logs warning messages only if log level allows it
func WarnLog(format string, args ...interface{}) {
	if shouldLog("warn") {
		logOutput("WARN", format, args...)
	}
}

// ErrorLog logs error messages only if log level allows it
func ErrorLog(format string, args ...interface{}) {
	if shouldLog("error") {
		logOutput("ERROR", format, args...)
	}
}

// FatalLog logs fatal messages and exits (always shown)
func FatalLog(format string, args ...interface{}) {
	if Env("DBCLONE_LOG_FORMAT", "text") == "json" {
		message := sanitizeForLogging(fmt.Sprintf(format, args...))
		entry := map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"level":     "fatal",
			"message":   message,
		}
		if jsonBytes, err := json.Marshal(entry); err == nil {
			fmt.Println(string(jsonBytes))
		}
		os.Exit(1)
	}
	log.Fatalf("FATAL: "+format, args...)
}

// sanitizeForLogging masks values of protected environment variables so SQL
// and session credentials never land in the log stream.
func sanitizeForLogging(line string) string {
	protectedEnvVars := []string{
		"DBCLONE_DB_PASS",
		"DBCLONE_OIDC_CLIENT_SECRET",
		"DBCLONE_SESSION_SECRET",
		"DBCLONE_SQL_PASSWORD",
	}
	for _, name := range protectedEnvVars {
		if v := os.Getenv(name); v != "" && strings.Contains(line, v) {
			line = strings.ReplaceAll(line, v, "***REDACTED***")
		}
	}
	return line
}
