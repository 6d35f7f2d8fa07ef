// Command uartfs serves a directory and the local terminal to an HC800 over a
// serial line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"
	oklogrun "github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rfratto/uartfs/internal/cmdutil"
	"github.com/rfratto/uartfs/internal/config"
	"github.com/rfratto/uartfs/internal/terminal"
	"github.com/rfratto/uartfs/internal/transport"
	"github.com/rfratto/uartfs/internal/uart/server"
)

func main() {
	var (
		ll         cmdutil.LogLevel
		flags      config.Config
		configFile string
	)

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s [flags] [PATH]\n\nPATH is the directory to serve (default current directory).\n\n", os.Args[0])
		fs.PrintDefaults()
	}
	fs.Var(&ll, "log.level", "Level to display logs at")
	fs.Var(cmdutil.DebugFlag{Level: &ll}, "debug", "Print diagnostic messages (same as -log.level=debug)")
	fs.StringVar(&configFile, "config", config.DefaultFile, "Configuration file to read")
	fs.StringVar(&flags.Port, "port", "", "Serial device to use, or a tcp:// or unix:// address")
	fs.StringVar(&flags.MetricsAddr, "metrics.addr", "", "Address to expose Prometheus metrics on (disabled when empty)")
	fs.IntVar(&flags.BaudRate, "baud", 0, fmt.Sprintf("Baud rate of the serial device (default %d)", transport.DefaultOptions.BaudRate))

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing flags: %s\n", err.Error())
		os.Exit(1)
	}
	if fs.NArg() > 1 {
		fs.Usage()
		os.Exit(1)
	}
	flags.Path = fs.Arg(0)

	// Standard output is the client's console, so logs go to stderr.
	l := cmdutil.NewLogger(os.Stderr, ll, "uartfs")

	fileConfig, err := config.Load(configFile)
	if err != nil {
		level.Warn(l).Log("msg", "invalid configuration file", "err", err)
		fileConfig = config.Config{}
	}
	cfg := defaultConfig().Merge(fileConfig).Merge(flags)

	if err := run(l, cfg); err != nil {
		level.Error(l).Log("msg", "error during run", "err", err)
		os.Exit(1)
	}
}

func defaultConfig() config.Config {
	return config.Config{
		Path:     ".",
		BaudRate: transport.DefaultOptions.BaudRate,
	}
}

func run(l log.Logger, cfg config.Config) (err error) {
	if cfg.Port == "" {
		return fmt.Errorf("port not specified. Either use -port or define in configuration")
	}
	if fi, err := os.Stat(cfg.Path); err != nil {
		return fmt.Errorf("cannot serve %s: %w", cfg.Path, err)
	} else if !fi.IsDir() {
		return fmt.Errorf("cannot serve %s: not a directory", cfg.Path)
	}

	t, err := transport.Open(cfg.Port, transport.Options{BaudRate: cfg.BaudRate})
	if err != nil {
		return err
	}

	popts := server.PassthroughOptions{Root: cfg.Path, Console: os.Stdout}

	term, err := terminal.Open(l, os.Stdin)
	switch {
	case errors.Is(err, terminal.ErrNotTerminal):
		level.Info(l).Log("msg", "standard input is not a terminal, key requests will not be available")
	case err != nil:
		_ = t.Close()
		return err
	default:
		popts.Keys = term
		defer func() {
			if cerr := term.Close(); cerr != nil {
				err = multierror.Append(err, fmt.Errorf("restoring terminal: %w", cerr))
			}
		}()
	}

	var reg *prometheus.Registry
	if cfg.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
	}

	opts := server.Options{
		Transport:  t,
		Handler:    server.Passthrough(l, popts),
		Middleware: []server.Middleware{server.NewLoggingMiddleware(l)},
	}
	if reg != nil {
		opts.Registerer = reg
	}
	srv, err := server.New(l, opts)
	if err != nil {
		_ = t.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	var group oklogrun.Group

	// Information server worker
	if reg != nil {
		lis, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			_ = t.Close()
			return fmt.Errorf("failed to create listener for HTTP server: %w", err)
		}

		r := mux.NewRouter()
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		httpSrv := http.Server{Handler: r}

		group.Add(func() error {
			level.Debug(l).Log("msg", "listening for http traffic", "addr", lis.Addr())
			err := httpSrv.Serve(lis)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}, func(_ error) {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				_ = httpSrv.Close()
			}
		})
	}

	// uart worker
	{
		ctx, cancel := context.WithCancel(context.Background())

		group.Add(func() error {
			level.Info(l).Log("msg", "serving files", "port", cfg.Port, "path", cfg.Path)
			return srv.Serve(ctx)
		}, func(_ error) {
			cancel()
		})
	}

	// signal worker
	{
		ctx, cancel := context.WithCancel(context.Background())

		group.Add(func() error {
			ch := make(chan os.Signal, 2)
			signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(ch)

			select {
			case <-ch:
				level.Info(l).Log("msg", "received shutdown signal")
			case <-ctx.Done():
			}
			return nil
		}, func(_ error) {
			cancel()
		})
	}

	return group.Run()
}
