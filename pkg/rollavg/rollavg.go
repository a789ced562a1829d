package rollavg

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/mikesmitty/rollavg/pkg/source"
	"github.com/spf13/viper"
)

func setupLogging() {
	slogOpts := slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if viper.GetBool("debug") {
		slogOpts.Level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slogOpts))
	slog.SetDefault(log)
}

// signalContext is cancelled on SIGINT, SIGTERM or SIGQUIT.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancelFunc := context.WithCancel(context.Background())
	chanSignal := make(chan os.Signal, 1)
	signal.Notify(chanSignal, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
	go func() {
		defer signal.Stop(chanSignal)
		select {
		case <-ctx.Done():
		case sig := <-chanSignal:
			slog.Info("shutting down...", "signal", sig)
			cancelFunc()
		}
	}()
	return ctx, cancelFunc
}

// openSamples returns the configured sample source: the csv file named by
// "input", or the synthetic generator when no file is set.
func openSamples() (iter.Seq2[float64, error], func() error, error) {
	path := viper.GetString("input")
	if path == "" {
		n := viper.GetInt("generate")
		slog.Info("using generated samples", "count", n)
		return source.Infallible(source.Generate(n)), func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open samples: %w", err)
	}
	slog.Info("reading samples", "path", path)
	return source.CSV(f), f.Close, nil
}

func loadSamples() ([]float64, error) {
	samples, closeFn, err := openSamples()
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return slices.Collect(source.Valid(samples)), nil
}

func errChk(err error) {
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
