package cli

import (
	"context"
	"flag"
	"time"

	"github.com/platinummonkey/protorules/pkg/api"
	"github.com/platinummonkey/protorules/pkg/observability"
)

func newServeCommand(streams Streams) *Command {
	cmd := &Command{
		Name:        "serve",
		Description: "Serve schema compilation and validation over HTTP",
		Flags:       flag.NewFlagSet("serve", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(streams.Err)

	var cf compilerFlags
	cf.register(cmd.Flags)
	addr := cmd.Flags.String("addr", ":8080", "Address to listen on")
	maxBody := cmd.Flags.Int64("max-body-bytes", api.DefaultMaxBodyBytes, "Largest accepted request body")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		cfg, err := cf.load(cmd.Flags)
		if err != nil {
			return err
		}

		svc, err := newService(ctx, cfg, streams)
		if err != nil {
			return err
		}
		defer svc.close(ctx)

		handler := api.NewServer(svc.cache,
			api.WithLogger(svc.logger),
			api.WithMetricsRegistry(svc.registry),
			api.WithMaxBodyBytes(*maxBody),
		)
		server, bound, err := svc.listen(*addr, "api", handler)
		if err != nil {
			return err
		}
		svc.log.Infof("Serving API on %s", bound)

		<-ctx.Done()

		shutdown := observability.NewShutdownManager(svc.logger, server, 10*time.Second)
		if err := shutdown.Shutdown(ctx); err != nil {
			svc.log.WithError(err).Warn("Shutdown incomplete")
		}
		svc.log.Info("Server stopped")
		return nil
	}

	return cmd
}
