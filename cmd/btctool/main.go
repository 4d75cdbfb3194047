package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

const exitUsage = 2

type options struct {
	Network     string `long:"network" short:"n" env:"BTCTOOL_NETWORK" description:"network of addresses and keys (mainnet, testnet, regtest, signet)" default:"mainnet"`
	LogFormat   string `long:"log-format" env:"BTCTOOL_LOG_FORMAT" description:"logger preset" choice:"development" choice:"production" choice:"none" default:"production"`
	MetricsFile string `long:"metrics-file" env:"BTCTOOL_METRICS_FILE" description:"write prometheus metrics to this textfile on exit"`
	Workers     int    `long:"workers" env:"BTCTOOL_WORKERS" description:"concurrent workers for batch input" default:"4"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, executes the selected command and returns the exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{ctx: ctx, in: stdin, out: stdout}
	parser, err := newParser(a)
	if err != nil {
		fmt.Fprintln(stderr, "btctool:", err)
		return 1
	}

	if _, err := parser.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) {
			if ferr.Type == flags.ErrHelp {
				fmt.Fprintln(stdout, ferr.Message)
				return 0
			}
			fmt.Fprintln(stderr, "btctool:", ferr.Message)
			return exitUsage
		}
		if a.logger != nil {
			a.logger.Debug("command failed", zap.Error(err))
		}
		fmt.Fprintln(stderr, "btctool:", err)
		return model.ExitCode(err)
	}
	return 0
}

func newLogger(format string) (*zap.Logger, error) {
	switch format {
	case "development":
		return zap.NewDevelopment()
	case "none":
		return zap.NewNop(), nil
	default:
		return zap.NewProduction()
	}
}
