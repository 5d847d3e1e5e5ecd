// Package runtimelink is the console side of the link to a robot's Runtime.
//
// The connection itself lives in pkg/runtimeconn. This package assembles a
// runnable console around it:
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    return err
//	}
//	ccfg, err := runtimelink.FromConfig(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	console, err := runtimelink.New(ccfg)
//	if err != nil {
//	    return err
//	}
//	return console.Run(ctx)
//
// The cmd/runtimelink binary does exactly this.
package runtimelink

import (
	"log/slog"

	"github.com/vango-dev/runtimelink/internal/config"
	"github.com/vango-dev/runtimelink/internal/errors"
	"github.com/vango-dev/runtimelink/pkg/record"
	"github.com/vango-dev/runtimelink/pkg/runtimeconn"
)

// FromConfig translates a loaded runtimelink.json into a Console Config.
// The recording sink is built here: S3 when record.bucket is set, a local
// directory when record.dir is set.
func FromConfig(fc *config.Config, logger *slog.Logger) (Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := Config{
		Runtime: runtimeconn.Config{
			Address:          fc.Runtime.Address,
			DefaultPort:      fc.Runtime.DefaultPort,
			PollInterval:     fc.PollInterval(),
			HandshakeTimeout: fc.HandshakeTimeout(),
			WriteTimeout:     fc.WriteTimeout(),
		},
		KeepAlive: KeepAliveConfig{
			Enabled:  fc.Runtime.KeepAlive.Enabled,
			Mode:     fc.KeepAliveMode(),
			Interval: fc.KeepAliveInterval(),
		},
		Record: record.Config{
			FlushInterval: fc.FlushInterval(),
			MaxBuffered:   fc.Record.MaxBuffered,
		},
		Logger: logger,
	}
	if !fc.Status.Disabled {
		cfg.Listen = fc.Status.Listen
	}

	switch {
	case fc.Record.Bucket != "":
		client := record.NewS3Client(fc.Record.Region, fc.Record.Endpoint)
		cfg.Record.Sink = record.NewS3Sink(client, fc.Record.Bucket, fc.Record.Prefix)
	case fc.Record.Dir != "":
		sink, err := record.NewDiskSink(fc.Record.Dir)
		if err != nil {
			return Config{}, errors.New("E081").
				WithDetail("The recording directory could not be created.").
				Wrap(err)
		}
		cfg.Record.Sink = sink
	}
	return cfg, nil
}
