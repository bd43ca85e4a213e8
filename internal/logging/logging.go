// Package logging configures the global zerolog logger and provides the
// maskers that keep session identifiers and contact details out of log files.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init initializes the global logger with dual sinks: os.Stderr and a
// rotating file under LOGS_FOLDER (or ./logs next to the binary).
func Init(verbose bool) {
	// Load .env from the binary directory so LOGS_FOLDER is available even
	// when Init runs before config loading.
	exePath, err := os.Executable()
	if err == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exePath), ".env"))
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal,
	}

	logDir := os.Getenv("LOGS_FOLDER")
	if logDir == "" {
		if err == nil {
			logDir = filepath.Join(filepath.Dir(exePath), "logs")
		} else {
			logDir = "logs"
		}
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create log directory %q: %v\n", logDir, err)
		os.Exit(1)
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "triyaj.log"),
		MaxSize:    16, // megabytes
		MaxBackups: 32,
		MaxAge:     365, // days
		Compress:   true,
	}

	multi := zerolog.MultiLevelWriter(io.Writer(consoleWriter), fileWriter)
	log.Logger = zerolog.New(multi).
		With().
		Timestamp().
		Logger()
}

// MaskID shortens a session or device identifier for log lines: the first
// four characters survive, everything else is starred. Short values mask
// completely so the star count leaks no length.
func MaskID(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return "(empty)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

// MaskEmail keeps two leading characters of the local part and the domain.
func MaskEmail(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return "(empty)"
	}
	local, domain, found := strings.Cut(s, "@")
	if !found {
		if len(s) > 2 {
			return s[:2] + "***"
		}
		return "***"
	}
	maskedLocal := "***"
	if len(local) > 2 {
		maskedLocal = local[:2] + "***"
	}
	maskedDomain := "***"
	if len(domain) > 2 {
		maskedDomain = domain[:2] + "***"
	}
	return maskedLocal + "@" + maskedDomain
}

// Mask hides a generic sensitive value, keeping at most the last four
// characters of long values.
func Mask(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return "(empty)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return "***" + s[len(s)-4:]
}
