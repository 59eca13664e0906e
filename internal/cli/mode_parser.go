package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeGateway = "gateway-service"
	ModeTracker = "tracker-service"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeGateway, "gateway", "g":
		return ModeGateway, true
	case ModeTracker, "tracker", "t":
		return ModeTracker, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `tracker-service --tourist-id=...`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./safetrail --mode=<service> [flags]

Services (modes):
  gateway-service    Websocket gateway, zone API, and authority alert fan-out
  tracker-service    Tourist-side tracker: geofencing, scoring, and alerts

Examples:
  ./safetrail --mode=gateway-service --max-concurrent=150 --prefetch=8
  ./safetrail --mode=tracker-service --tourist-id=tourist-1 --lat=28.6139 --lng=77.2090`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./safetrail --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
