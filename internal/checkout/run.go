package checkout

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	checkouthttp "curbside/internal/checkout/api/http"
	"curbside/internal/checkout/app/core"
	"curbside/internal/config"
	"curbside/internal/mylogger"
)

type params struct {
	checkoutParams *core.CheckoutParams
	configPath     string
	cfg            *config.Config
}

// Execute starts the checkout service.
func Execute(ctx context.Context, mylog mylogger.Logger, args []string) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	params, err := parseParams(args)
	if err != nil {
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}
	if err = validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}
	mylog.Action("command_validation_completed").Info("Successfully validated params")

	server := checkouthttp.NewServer(newCtx, context.Background(), params.cfg, params.checkoutParams, mylog)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return server.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, checkouthttp.ErrServerClosed) {
			mylog.Action("checkout_service_failed").Error("Server failed unexpectedly", err)
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return nil
	}
}

// parseParams parses service flags.
func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("checkout-service", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	port := fs.Int("port", 3000, "Port to run the checkout service")

	if err := fs.Parse(args); err != nil {
		return nil, errors.New("cannot parse arguments")
	}

	if *showHelp {
		fs.Usage()
		return nil, core.ErrHelp
	}

	return &params{
		checkoutParams: &core.CheckoutParams{Port: *port},
		configPath:     *configPath,
	}, nil
}

func validateParams(params *params) error {
	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		// No yaml file: run on environment variables and local defaults.
		cfg = config.LoadDotEnv()
	}
	params.cfg = cfg

	if p := params.checkoutParams.Port; p <= 0 || p >= 65536 {
		return fmt.Errorf("port must be in [1: 65,535]: %d", p)
	}
	return nil
}
