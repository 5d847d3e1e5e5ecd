package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/runtimelink/internal/config"
	"github.com/vango-dev/runtimelink/internal/errors"
	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/runtimeconn"
)

type sendFlags struct {
	address string
	timeout time.Duration
}

func sendCmd(g *globalFlags) *cobra.Command {
	var f sendFlags

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a single message to the Runtime",
		Long: `Connect to the Runtime, wait until the link is ready, send one
message and exit.

Examples:
  runtimelink send run-mode teleop
  runtimelink send start-pos left --address 192.168.0.10
  runtimelink send latency`,
	}

	cmd.PersistentFlags().StringVarP(&f.address, "address", "a", "", "Runtime address (default from runtimelink.json)")
	cmd.PersistentFlags().DurationVarP(&f.timeout, "timeout", "t", 15*time.Second, "How long to wait for the connection")

	cmd.AddCommand(
		&cobra.Command{
			Use:       "run-mode <idle|auto|teleop|estop|challenge>",
			Short:     "Switch the robot's run mode",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"idle", "auto", "teleop", "estop", "challenge"},
			RunE: func(cmd *cobra.Command, args []string) error {
				mode, err := payload.ParseMode(args[0])
				if err != nil {
					return errors.New("E060").Wrap(err).
						WithExample("runtimelink send run-mode teleop")
				}
				return sendOne(cmd.Context(), g, &f, func(m *runtimeconn.Manager) error {
					if err := m.SendRunMode(mode); err != nil {
						return err
					}
					success("Run mode %s sent", mode)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:       "start-pos <left|right>",
			Short:     "Set the robot's starting side",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"left", "right"},
			RunE: func(cmd *cobra.Command, args []string) error {
				pos, err := payload.ParsePos(args[0])
				if err != nil {
					return errors.New("E061").Wrap(err).
						WithExample("runtimelink send start-pos left")
				}
				return sendOne(cmd.Context(), g, &f, func(m *runtimeconn.Manager) error {
					if err := m.SendStartPos(pos); err != nil {
						return err
					}
					success("Start position %s sent", pos)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "latency",
			Short: "Measure the link latency",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return measureLatency(cmd.Context(), g, &f)
			},
		},
	)
	return cmd
}

// waiter turns manager events into channel signals.
type waiter struct {
	ready   chan struct{}
	latency chan time.Duration
}

func newWaiter() *waiter {
	return &waiter{
		ready:   make(chan struct{}, 1),
		latency: make(chan time.Duration, 1),
	}
}

func (w *waiter) OnEvent(ev runtimeconn.Event) {
	switch ev.Type {
	case runtimeconn.EventState:
		if ev.Status.State == runtimeconn.StateReady {
			select {
			case w.ready <- struct{}{}:
			default:
			}
		}
	case runtimeconn.EventLatency:
		select {
		case w.latency <- ev.Latency:
		default:
		}
	}
}

// dial starts a manager and waits until it is ready or timeout passes.
func dial(ctx context.Context, cfg *config.Config, f *sendFlags, w *waiter) (*runtimeconn.Manager, error) {
	address := cfg.Runtime.Address
	if f.address != "" {
		address = f.address
	}

	m, err := runtimeconn.New(runtimeconn.Config{
		Address:          address,
		DefaultPort:      cfg.Runtime.DefaultPort,
		PollInterval:     cfg.PollInterval(),
		HandshakeTimeout: cfg.HandshakeTimeout(),
		WriteTimeout:     cfg.WriteTimeout(),
		Observers:        []runtimeconn.Observer{w},
		Logger:           cfg.Logger(os.Stderr),
	})
	if err != nil {
		return nil, errors.FromError(err, "E001")
	}

	select {
	case <-w.ready:
		return m, nil
	case <-time.After(f.timeout):
		err = errors.New("E003").
			WithSuggestion("Check the address with --address or raise --timeout")
	case <-ctx.Done():
		err = ctx.Err()
	}
	shutdown(m)
	return nil, err
}

func shutdown(m *runtimeconn.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.Shutdown(ctx)
}

func sendOne(ctx context.Context, g *globalFlags, f *sendFlags, fn func(*runtimeconn.Manager) error) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	m, err := dial(ctx, cfg, f, newWaiter())
	if err != nil {
		return err
	}
	defer shutdown(m)

	if err := fn(m); err != nil {
		return errors.FromError(err, "E002")
	}
	return nil
}

func measureLatency(ctx context.Context, g *globalFlags, f *sendFlags) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	w := newWaiter()
	m, err := dial(ctx, cfg, f, w)
	if err != nil {
		return err
	}
	defer shutdown(m)

	if err := m.InitiateLatencyCheck(); err != nil {
		return errors.FromError(err, "E002")
	}
	select {
	case d := <-w.latency:
		success("Latency %s", d)
		return nil
	case <-time.After(f.timeout):
		return errors.New("E003").WithDetail("The Runtime did not echo the time stamp probe.")
	case <-ctx.Done():
		return ctx.Err()
	}
}
