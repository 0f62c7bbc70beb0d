package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/vshulcz/metrika/internal/misc"
)

const (
	defaultCoordinatorURL  = "http://localhost:8080"
	defaultReportInterval  = 10
	defaultMinReportSec    = 60
	defaultPollInterval    = 2
	flagDurationUnsetValue = 0
)

// WorkerConfig configures a worker process: where to forward reports, how
// often to report and how the reporter dedups.
type WorkerConfig struct {
	CoordinatorURL      string
	Worker              string
	Key                 string
	ReportInterval      time.Duration
	MinReportingTimeout time.Duration
	PollInterval        time.Duration
	Tags                map[string]string
}

// LoadWorkerConfig resolves the worker configuration: ENV > CLI > defaults.
func LoadWorkerConfig(args []string, out io.Writer) (WorkerConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	fs.SetOutput(out)

	var addrOpt string
	var nameOpt string
	var keyOpt string
	var tagsOpt string
	var reportOpt int
	var minOpt int
	var pollOpt int

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("coordinator address (host:port or URL), default: %s", defaultCoordinatorURL))
	fs.StringVar(&nameOpt, "n", "", "worker name, default: hostname")
	fs.StringVar(&keyOpt, "k", "", "secret key for HashSHA256 header")
	fs.StringVar(&tagsOpt, "t", "", "common tags as k=v,k2=v2")
	fs.IntVar(&reportOpt, "r", flagDurationUnsetValue, fmt.Sprintf("report interval in seconds, default: %d", defaultReportInterval))
	fs.IntVar(&minOpt, "m", flagDurationUnsetValue, fmt.Sprintf("min reporting timeout in seconds, default: %d", defaultMinReportSec))
	fs.IntVar(&pollOpt, "p", flagDurationUnsetValue, fmt.Sprintf("poll interval in seconds, default: %d", defaultPollInterval))

	if err := fs.Parse(args); err != nil {
		return WorkerConfig{}, err
	}

	addr := FromEnvOrFlag("ADDRESS", addrOpt, defaultCoordinatorURL)
	addr = normalizeCoordinatorURL(addr)
	if _, err := url.ParseRequestURI(addr); err != nil {
		return WorkerConfig{}, fmt.Errorf("invalid coordinator address: %q", addr)
	}

	name := FromEnvOrFlag("WORKER_NAME", nameOpt, "")
	if name == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "worker"
		}
		name = fmt.Sprintf("%s-%d", host, os.Getpid())
	}

	report := FromEnvOrFlagDuration("REPORT_INTERVAL", reportOpt, flagDurationUnsetValue, defaultReportInterval)
	if report <= 0 {
		return WorkerConfig{}, fmt.Errorf("report interval must be > 0, got %v", report)
	}
	minTimeout := FromEnvOrFlagDuration("MIN_REPORT_TIMEOUT", minOpt, flagDurationUnsetValue, defaultMinReportSec)
	if minTimeout <= 0 {
		return WorkerConfig{}, fmt.Errorf("min reporting timeout must be > 0, got %v", minTimeout)
	}
	poll := FromEnvOrFlagDuration("POLL_INTERVAL", pollOpt, flagDurationUnsetValue, defaultPollInterval)
	if poll <= 0 {
		return WorkerConfig{}, fmt.Errorf("poll interval must be > 0, got %v", poll)
	}

	return WorkerConfig{
		CoordinatorURL:      addr,
		Worker:              name,
		Key:                 strings.TrimSpace(misc.Getenv("KEY", keyOpt)),
		ReportInterval:      report,
		MinReportingTimeout: minTimeout,
		PollInterval:        poll,
		Tags:                ParseTags(misc.Getenv("TAGS", tagsOpt)),
	}, nil
}

func normalizeCoordinatorURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultCoordinatorURL
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	if strings.HasPrefix(s, ":") {
		return "http://localhost" + s
	}
	return "http://" + s
}
