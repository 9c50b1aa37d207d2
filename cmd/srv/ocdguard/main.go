package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/core-tools/hsu-ocdguard/pkg/capture"
	"github.com/core-tools/hsu-ocdguard/pkg/config"
	"github.com/core-tools/hsu-ocdguard/pkg/launch"
	"github.com/core-tools/hsu-ocdguard/pkg/logging"
	"github.com/core-tools/hsu-ocdguard/pkg/notice"
	"github.com/core-tools/hsu-ocdguard/pkg/process"
	"github.com/core-tools/hsu-ocdguard/pkg/reaper"
	"github.com/core-tools/hsu-ocdguard/pkg/supervisor"
)

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s , ", module)
}

func loadConfig(inv *invocation) (*config.GuardConfig, error) {
	cfg := config.DefaultConfig()
	if inv.ConfigFile != "" {
		var err error
		cfg, err = config.LoadConfigFromFile(inv.ConfigFile)
		if err != nil {
			return nil, err
		}
	}
	if inv.LogLevel != "" {
		cfg.Logging.Level = inv.LogLevel
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	inv, err := parseInvocation(os.Args[0], os.Args[1:])
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(inv)
	if err != nil {
		fmt.Printf("Configuration failed: %v\n", err)
		os.Exit(1)
	}

	logFuncs, syncLogger, err := logging.NewZapLogFuncs(cfg.Logging)
	if err != nil {
		fmt.Printf("Logger setup failed: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(logPrefix("ocdguard"), logFuncs)

	sink := notice.NewLogSink(logger, func(code int) {
		_ = syncLogger()
		os.Exit(code)
	})

	args := launch.BuildArgs(cfg.Daemon.Layout, inv.Mode, inv.Passthrough)
	logger.Infof("Starting, mode: %s, executable: %s, config file: '%s'",
		inv.Mode, cfg.Daemon.ExecutablePath, inv.ConfigFile)

	sup, err := supervisor.New(supervisor.Options{
		Args:            args,
		Mode:            inv.Mode,
		ProcessName:     cfg.Daemon.ProcessName,
		RestartCooldown: cfg.Supervisor.Cooldown(),
		LineBuffer:      cfg.Supervisor.LineBuffer,
	}, supervisor.Dependencies{
		Spawner: process.NewSpawner(cfg.Daemon.ExecutionConfig, logger),
		Reaper:  reaper.New(reaper.NewSystemProcessTable(), logger),
		Sink:    sink,
		Capture: capture.NewFileWriter(cfg.Supervisor.CaptureFile),
		Logger:  logger,
	})
	if err != nil {
		sink.Exit(notice.New("Could not create supervisor").WithCause(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	if runtime.GOOS == "windows" {
		signal.Notify(sig, os.Interrupt) // Unix signals not implemented on Windows
	} else {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	}
	go func() {
		select {
		case receivedSignal := <-sig:
			// A second signal gets the default handler and ends the process
			signal.Stop(sig)
			logger.Infof("Received signal: %v, stopping", receivedSignal)
			cancel()
		case <-ctx.Done():
		}
	}()

	err = sup.Run(ctx)
	if err == nil || stderrors.Is(err, context.Canceled) {
		logger.Infof("Stopped")
		_ = syncLogger()
		return
	}

	var n *notice.Notice
	if !stderrors.As(err, &n) {
		n = notice.New("Supervisor failed").WithCause(err)
	}
	sink.Exit(n)
}
