// Command pmsvcd runs the power-management call bridge against an
// in-process peer model and serves calls on a Unix socket. SIGUSR1
// makes the peer raise a suspend-request callback, standing in for a
// power-button event.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"

	"github.com/hvkit/pmbridge/internal/gic"
	"github.com/hvkit/pmbridge/internal/ipi"
	"github.com/hvkit/pmbridge/internal/pmapi"
	"github.com/hvkit/pmbridge/internal/pmsvc"
	"github.com/hvkit/pmbridge/internal/pmufw"
	"github.com/hvkit/pmbridge/internal/sip"
	"github.com/hvkit/pmbridge/internal/smcproxy"
)

type envConfig struct {
	ConfigPath string `env:"PMSVCD_CONFIG"`
	SocketPath string `env:"PMSVCD_SOCKET" envDefault:"/tmp/pmsvcd.sock"`
	LogLevel   string `env:"PMSVCD_LOG_LEVEL" envDefault:"info"`
}

func run() error {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	configPath := flag.String("config", cfg.ConfigPath, "platform config file (yaml)")
	socketPath := flag.String("socket", cfg.SocketPath, "control socket path")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("bad log level %q: %w", *logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	fwOpts := []pmufw.Option{pmufw.WithLogger(logger)}
	if *configPath != "" {
		platform, err := loadPlatformConfig(*configPath)
		if err != nil {
			return err
		}
		if len(platform.Nodes) > 0 {
			fwOpts = append(fwOpts, pmufw.WithNodes(platform.nodeIDs()))
		}
		for _, reg := range platform.Registers {
			fwOpts = append(fwOpts, pmufw.WithRegister(reg.Address, reg.Value))
		}
	}

	firmware := pmufw.New(fwOpts...)
	transport := ipi.NewLoopback(firmware)
	firmware.SetCallbackSink(transport.Deliver)

	distributor := gic.NewDistributor(func(irq uint32) {
		logger.Info("callback interrupt raised", "irq", irq)
	})

	service := pmsvc.New(
		pmapi.NewClient(transport, logger),
		transport,
		distributor,
		pmsvc.WithLogger(logger),
	)
	if _, err := service.Setup(); err != nil {
		return fmt.Errorf("service setup: %w", err)
	}

	builder := sip.NewBuilder()
	if err := builder.Register("pm", sip.Range{First: uint32(pmapi.GetAPIVersion), Last: uint32(pmapi.MMIORead)}, service); err != nil {
		return err
	}
	if err := builder.Register("pm-internal", sip.Range{First: pmsvc.FuncInitCallback, Last: pmsvc.FuncGetCallbackData}, service); err != nil {
		return err
	}
	router, err := builder.Build(logger)
	if err != nil {
		return err
	}

	server, err := smcproxy.NewServer(*socketPath, router, logger)
	if err != nil {
		return err
	}

	events := make(chan os.Signal, 1)
	signal.Notify(events, syscall.SIGUSR1, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range events {
			if sig == syscall.SIGUSR1 {
				logger.Info("raising suspend request from peer")
				firmware.RaiseSuspendRequest(0, 0, 0, 0)
				continue
			}
			logger.Info("shutting down", "signal", sig.String())
			server.Close()
			return
		}
	}()

	logger.Info("serving power-management calls", "socket", *socketPath)
	return server.Serve()
}

func main() {
	if err := run(); err != nil {
		slog.Error("pmsvcd failed", "err", err)
		os.Exit(1)
	}
}
