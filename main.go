package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	gatewayservice "safetrail/cmd/gateway_service"
	trackerservice "safetrail/cmd/tracker_service"
	"safetrail/internal/cli"
	"syscall"
	"time"
)

func main() {
	// quick path for global help
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse mode and collect the remaining args for that mode
	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// run the service specified by the mode flag
	switch mode {

	case cli.ModeGateway:
		fs := flag.NewFlagSet(cli.ModeGateway, flag.ContinueOnError)
		maxConc := fs.Int("max-concurrent", 100, "Maximum number of concurrent HTTP requests to process")
		prefetch := fs.Int("prefetch", 8, "RabbitMQ prefetch count for consumer channels")
		cli.AttachUsage(fs, cli.ModeGateway)

		if err := fs.Parse(svcArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		if *maxConc < 1 {
			fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be >= 1")
			fs.Usage()
			os.Exit(2)
		}
		if *prefetch <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --prefetch must be > 0")
			fs.Usage()
			os.Exit(2)
		}
		if err := gatewayservice.Run(ctx, *maxConc, *prefetch); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeTracker:
		fs := flag.NewFlagSet(cli.ModeTracker, flag.ContinueOnError)
		touristID := fs.String("tourist-id", "", "Tourist identifier for registration and JWT subject")
		lat := fs.Float64("lat", 28.6139, "Initial latitude")
		lng := fs.Float64("lng", 77.2090, "Initial longitude")
		sampleSec := fs.Int("sample-seconds", 30, "Seconds between safety evaluations")
		cli.AttachUsage(fs, cli.ModeTracker)

		if err := fs.Parse(svcArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		if *touristID == "" {
			fmt.Fprintln(os.Stderr, "Error: --tourist-id is required")
			fs.Usage()
			os.Exit(2)
		}
		if *sampleSec < 1 {
			fmt.Fprintln(os.Stderr, "Error: --sample-seconds must be >= 1")
			fs.Usage()
			os.Exit(2)
		}
		if err := trackerservice.Run(ctx, *touristID, *lat, *lng, time.Duration(*sampleSec)*time.Second); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	default:
		// should not happen because ParseMode validates known modes
		fmt.Fprintln(os.Stderr, "Error: unknown mode")
		os.Exit(2)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}
