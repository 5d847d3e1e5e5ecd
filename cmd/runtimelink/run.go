package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/runtimelink"
	"github.com/vango-dev/runtimelink/internal/config"
	"github.com/vango-dev/runtimelink/internal/errors"
)

type runFlags struct {
	address      string
	listen       string
	recordBucket string
	recordDir    string
	keepAlive    bool
}

func runCmd(g *globalFlags) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the Runtime and serve the status API",
		Long: `Connect to the Runtime and keep the connection up until interrupted.

The status API is served on status.listen (default 127.0.0.1:8080):
GET /status, GET /events (WebSocket), GET /metrics, and POST /connect,
/close, /run-mode, /start-pos.

Examples:
  runtimelink run
  runtimelink run --address 192.168.0.10
  runtimelink run --listen :9090 --record-bucket robot-sessions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runConsole(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&f.address, "address", "a", "", "Runtime address (default from runtimelink.json)")
	cmd.Flags().StringVarP(&f.listen, "listen", "l", "", "Status server address (default from runtimelink.json)")
	cmd.Flags().StringVar(&f.recordBucket, "record-bucket", "", "Record the session to this S3 bucket")
	cmd.Flags().StringVar(&f.recordDir, "record-dir", "", "Record the session to this directory")
	cmd.Flags().BoolVar(&f.keepAlive, "keep-alive", false, "Periodically re-send the keep-alive run mode")

	return cmd
}

// apply overrides cfg with the flags that were set, then revalidates.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if f.address != "" {
		cfg.Runtime.Address = f.address
	}
	if f.listen != "" {
		cfg.Status.Listen = f.listen
		cfg.Status.Disabled = false
	}
	if f.recordBucket != "" {
		cfg.Record.Bucket = f.recordBucket
		cfg.Record.Dir = ""
	}
	if f.recordDir != "" {
		cfg.Record.Dir = f.recordDir
		cfg.Record.Bucket = ""
	}
	if cmd.Flags().Changed("keep-alive") {
		cfg.Runtime.KeepAlive.Enabled = f.keepAlive
	}
	return cfg.Validate()
}

func runConsole(ctx context.Context, cfg *config.Config) error {
	logger := cfg.Logger(os.Stderr)

	ccfg, err := runtimelink.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	console, err := runtimelink.New(ccfg)
	if err != nil {
		return err
	}

	success("Connecting to %s", cfg.Runtime.Address)
	if ccfg.Listen != "" {
		info("Status API on http://%s", ccfg.Listen)
	}
	if cfg.Record.Enabled() {
		info("Recording to %s", recordTarget(cfg))
	}

	if err := console.Run(ctx); err != nil {
		return errors.New("E062").Wrap(err)
	}
	return nil
}

func recordTarget(cfg *config.Config) string {
	if cfg.Record.Bucket != "" {
		return "s3://" + cfg.Record.Bucket + "/" + cfg.Record.Prefix
	}
	return cfg.Record.Dir
}
