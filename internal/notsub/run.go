package notsub

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"curbside/internal/config"
	"curbside/internal/mylogger"
	"curbside/internal/notsub/consumer"
)

var errHelp = errors.New("help requested")

// Execute starts the owner notification subscriber.
func Execute(ctx context.Context, mylog mylogger.Logger, args []string) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := parseParams(args)
	if err != nil {
		if errors.Is(err, errHelp) {
			return nil
		}
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}

	sub := consumer.NewSubscriber(newCtx, context.Background(), cfg, mylog)

	g, gCtx := errgroup.WithContext(newCtx)
	g.Go(sub.Run)
	g.Go(func() error {
		<-gCtx.Done()
		return sub.Stop(context.Background())
	})

	if err := g.Wait(); err != nil {
		mylog.Action("notification_subscriber_failed").Error("Subscriber failed unexpectedly", err)
		return err
	}
	mylog.Action("subscriber_stopped").Info("Subscriber exited normally")
	return nil
}

func parseParams(args []string) (*config.Config, error) {
	fs := flag.NewFlagSet("notification-subscriber", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")

	if err := fs.Parse(args); err != nil {
		return nil, errors.New("cannot parse arguments")
	}

	if *showHelp {
		fs.Usage()
		return nil, errHelp
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = config.LoadDotEnv()
	}
	return cfg, nil
}
