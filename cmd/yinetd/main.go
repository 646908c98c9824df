// Command yinetd is a thin driver around config and serve: it resolves
// a config path, builds a logger, and runs the readiness loop until a
// signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/yinetd/yinetd/config"
	"github.com/yinetd/yinetd/internal/errs"
	"github.com/yinetd/yinetd/internal/logging"
	"github.com/yinetd/yinetd/internal/metrics"
	"github.com/yinetd/yinetd/serve"
)

var defaultConfigPaths = []string{
	"~/.yinetd.conf",
	"/etc/yinetd.conf",
	"/usr/local/etc/yinetd.conf",
}

func main() {
	var (
		configPath = flag.String("c", "", "path to config file (default: search "+strings.Join(defaultConfigPaths, ", ")+")")
		verbose    = flag.Bool("v", false, "enable debug logging")
		quiet      = flag.Bool("q", false, "only log warnings and errors")
		check      = flag.Bool("check", false, "parse and validate the config, then exit")
	)
	flag.StringVar(configPath, "config", "", "same as -c")
	flag.Parse()

	log, err := newLogger(*verbose, *quiet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "yinetd: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	stdlog.SetOutput(logging.NewStdAdapter(log))

	if err := run(*configPath, *check, log); err != nil {
		if e, ok := err.(*errs.Error); ok {
			src := ""
			if e.Path != "" {
				if data, rerr := os.ReadFile(e.Path); rerr == nil {
					src = string(data)
				}
			}
			errs.Render(os.Stderr, e, src)
		} else {
			log.Error("fatal", zap.Error(err))
		}
		os.Exit(1)
	}
}

func newLogger(verbose, quiet bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch {
	case verbose:
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case quiet:
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log, nil
}

func run(configPath string, checkOnly bool, log *zap.Logger) error {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(path, log)
	if err != nil {
		return err
	}

	log.Info("config loaded", zap.String("path", path), zap.Int("services", len(cfg.Services())))
	if checkOnly {
		return nil
	}

	reg := prometheus.NewRegistry()
	mcol := metrics.NewCollector(reg)

	group := serve.NewGroup(cfg, log, mcol)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := group.Listen(ctx); err != nil {
		return err
	}

	log.Info("serving", zap.Int("services", len(cfg.Services())))

	serveErr := group.Serve(ctx)
	if stopErr := group.Stop(); stopErr != nil {
		log.Warn("error while closing listeners", zap.Error(stopErr))
	}
	return serveErr
}

// resolveConfigPath expands a leading "~" and, when explicit is empty,
// searches defaultConfigPaths in order for the first file that exists.
func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		return homedir.Expand(explicit)
	}

	for _, p := range defaultConfigPaths {
		expanded, err := homedir.Expand(p)
		if err != nil {
			continue
		}
		if _, err := os.Stat(expanded); err == nil {
			return expanded, nil
		}
	}

	return "", fmt.Errorf("no config file found in %s (use -c to specify one)", strings.Join(defaultConfigPaths, ", "))
}
