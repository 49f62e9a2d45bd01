package cmd

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"github.com/karasz/gtscale/gtudpd"
	"github.com/karasz/gtscale/timescale"
)

const defaultPort = ":4015"

// leapSources lists the candidate leap second tables for a daemon: the
// config directory's table, if any, and the compiled-in one.
func leapSources(cfg *gtudpd.Config) []timescale.Source {
	var srcs []timescale.Source
	if p, ok := cfg.LeapFile(); ok {
		srcs = append(srcs, timescale.FileSource(p))
	}
	return append(srcs, timescale.Builtin())
}

// conversionHandler answers protocol queries with conv.
func conversionHandler(conv *timescale.Converter) gtudpd.Handler {
	return func(ctx context.Context, req []byte, from *net.UDPAddr) []byte {
		reply := answer(conv, req)
		if reply != nil && reply[0] == 'x' {
			logctx.Infof(ctx, "unconvertible query from %v", from)
		}
		return reply
	}
}

// GTScaleDRun serves TAI/UTC conversions over UDP until interrupted.
func GTScaleDRun(args []string) int {
	var configDir string
	fs := flag.NewFlagSet("gtscaled", flag.ContinueOnError)
	fs.StringVar(&configDir, "d", "", "config directory path")
	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Println(err)
		return 111
	}

	log, err := zap.NewProduction()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 111
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logctx.NewContext(ctx, log)

	cfg := gtudpd.Config{DefaultPort: defaultPort, ConfigDir: configDir}
	reg, err := timescale.LoadRegistry(leapSources(&cfg), timescale.WithLogger(log))
	if err != nil {
		logctx.Error(ctx, "loading leap seconds", zap.Error(err))
		return 111
	}

	srv, err := gtudpd.NewServer(cfg, conversionHandler(timescale.NewConverter(reg)), log)
	if err != nil {
		logctx.Error(ctx, "starting server", zap.Error(err))
		return 111
	}
	defer func() { _ = srv.Close() }()

	logctx.Infof(ctx, "conversion server listening on %s", srv.Addr())
	if err := srv.Serve(ctx); err != nil {
		logctx.Error(ctx, "serving", zap.Error(err))
		return 111
	}
	return 0
}
