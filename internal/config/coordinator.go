package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/vshulcz/metrika/internal/misc"
)

const (
	defaultListenAddr      = ":8080"
	defaultFlushTimeoutSec = 30
	defaultExpectedWorkers = 0
	defaultCSVPath         = ""
	defaultDSN             = ""
)

// CoordinatorConfig configures the aggregating process: where it listens,
// how long it waits for straggler workers, and which sinks it drives.
type CoordinatorConfig struct {
	Address         string
	Key             string
	DSN             string
	CSVPath         string
	FlushTimeout    time.Duration
	ExpectedWorkers int
}

// LoadCoordinatorConfig resolves the coordinator configuration:
// ENV > CLI > defaults.
func LoadCoordinatorConfig(args []string, out io.Writer) (CoordinatorConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("coordinator", flag.ContinueOnError)
	fs.SetOutput(out)

	var addrOpt string
	var keyOpt string
	var dsnOpt string
	var csvOpt string
	var flushOpt int
	var workersOpt int

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("HTTP listen address, default: %s", defaultListenAddr))
	fs.StringVar(&keyOpt, "k", "", "secret key for HashSHA256 verification")
	fs.StringVar(&dsnOpt, "d", "", "DATABASE_DSN for the Postgres sink (empty disables it)")
	fs.StringVar(&csvOpt, "c", "", "CSV_PATH for the CSV sink (empty disables it)")
	fs.IntVar(&flushOpt, "f", 0, fmt.Sprintf("FLUSH_TIMEOUT seconds, default: %d", defaultFlushTimeoutSec))
	fs.IntVar(&workersOpt, "w", 0, "EXPECTED_WORKERS per tick (0 - flush on timeout only)")

	if err := fs.Parse(args); err != nil {
		return CoordinatorConfig{}, err
	}

	addr := FromEnvOrFlag("ADDRESS", addrOpt, defaultListenAddr)
	addr = normalizeListenAddr(addr)
	if _, port, err := net.SplitHostPort(addr); err != nil || port == "" {
		return CoordinatorConfig{}, fmt.Errorf("invalid listen address: %q", addr)
	}

	flush := FromEnvOrFlagDuration("FLUSH_TIMEOUT", flushOpt, 0, defaultFlushTimeoutSec)
	if flush <= 0 {
		return CoordinatorConfig{}, fmt.Errorf("flush timeout must be > 0, got %v", flush)
	}

	return CoordinatorConfig{
		Address:         addr,
		Key:             strings.TrimSpace(misc.Getenv("KEY", keyOpt)),
		DSN:             FromEnvOrFlag("DATABASE_DSN", dsnOpt, defaultDSN),
		CSVPath:         FromEnvOrFlag("CSV_PATH", csvOpt, defaultCSVPath),
		FlushTimeout:    flush,
		ExpectedWorkers: FromEnvOrFlagInt("EXPECTED_WORKERS", workersOpt, defaultExpectedWorkers, 0),
	}, nil
}

func normalizeListenAddr(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultListenAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			return u.Host
		}
	}
	if !strings.Contains(s, ":") {
		return ":" + s
	}
	return s
}
