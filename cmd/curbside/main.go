package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"curbside/internal/checkout"
	checkoutcore "curbside/internal/checkout/app/core"
	"curbside/internal/mylogger"
	"curbside/internal/notsub"
	"curbside/internal/ops"
	opscore "curbside/internal/ops/app/core"
	"curbside/internal/tracking"
	trackingcore "curbside/internal/tracking/app/core"
)

var errUnknownMode = errors.New("unknown service, write --help command to see valid services")

func main() {
	mylog, err := mylogger.New("DEBUG")
	if err != nil {
		log.Fatalf("log error: %v", err)
	}

	mylog.Action("dispatch_engine_started").Info("Successfully started")

	fs := flag.NewFlagSet("main", flag.ExitOnError)
	mode := fs.String("mode", "", "service to run: checkout-service | operations-service | tracking-service | notification-subscriber")

	// Only parse args up to --mode; everything after it belongs to the service.
	args := os.Args[1:]
	modeArgs := []string{}
	for i, arg := range args {
		if strings.HasPrefix(arg, "--mode") || strings.HasPrefix(arg, "-mode") {
			modeArgs = args[:i+1]
			break
		}
	}

	if err := fs.Parse(modeArgs); err != nil {
		mylog.Action("dispatch_engine_failed").Error("Failed to parse flags", err)
		help(fs)
		return
	}

	if *mode == "" {
		mylog.Action("dispatch_engine_failed").Error("Failed to start dispatch engine", errors.New("mode flag is required"))
		help(fs)
		return
	}

	remainingArgs := args[len(modeArgs):]

	ctx := context.Background()
	switch *mode {
	case "checkout-service", "cs":
		l := mylog.With("service", "checkout-service")
		l.Action("checkout_service_started").Info("Successfully started")
		if err := checkout.Execute(ctx, l, remainingArgs); err != nil {
			l.Action("checkout_service_failed").Error("Error in checkout-service", err)
			if !errors.Is(err, checkoutcore.ErrHelp) {
				log.Fatalf("failed to execute checkout-service: %s", err)
			}
		}
		l.Action("checkout_service_completed").Info("Successfully completed")

	case "operations-service", "ops":
		l := mylog.With("service", "operations-service")
		l.Action("operations_service_started").Info("Successfully started")
		if err := ops.Execute(ctx, l, remainingArgs); err != nil {
			l.Action("operations_service_failed").Error("Error in operations-service", err)
			if !errors.Is(err, opscore.ErrHelp) {
				log.Fatalf("failed to execute operations-service: %s", err)
			}
		}
		l.Action("operations_service_completed").Info("Successfully completed")

	case "tracking-service", "ts":
		l := mylog.With("service", "tracking-service")
		l.Action("tracking_service_started").Info("Successfully started")
		if err := tracking.Execute(ctx, l, remainingArgs); err != nil {
			l.Action("tracking_service_failed").Error("Error in tracking-service", err)
			if !errors.Is(err, trackingcore.ErrHelp) {
				log.Fatalf("failed to execute tracking-service: %s", err)
			}
		}
		l.Action("tracking_service_completed").Info("Successfully completed")

	case "notification-subscriber", "ns":
		l := mylog.With("service", "notification-subscriber")
		l.Action("notification_subscriber_started").Info("Successfully started")
		if err := notsub.Execute(ctx, l, remainingArgs); err != nil {
			l.Action("notification_subscriber_failed").Error("Error in notification-subscriber", err)
			log.Fatalf("failed to execute notification-subscriber: %s", err)
		}
		l.Action("notification_subscriber_completed").Info("Successfully completed")

	default:
		mylog.Action("dispatch_engine_failed").Error("Failed to start dispatch engine", errUnknownMode)
		help(fs)
	}
}

func help(fs *flag.FlagSet) {
	fmt.Println("\nUsage:")
	fs.PrintDefaults()
	fmt.Println("\nExample:")
	fmt.Println("  ./curbside --mode=checkout-service --port=3000")
	fmt.Println("  ./curbside --mode=operations-service --port=3001")
	fmt.Println("  ./curbside --mode=tracking-service --port=3002")
	fmt.Println("  ./curbside --mode=notification-subscriber")
}
