package rollavg

import (
	"context"
	"iter"
	"log/slog"
	"net/url"

	"github.com/mikesmitty/rollavg/pkg/mqtt"
	"github.com/mikesmitty/rollavg/pkg/router"
	"github.com/mikesmitty/rollavg/pkg/stats"
	"github.com/mikesmitty/rollavg/pkg/stream"
	"github.com/mikesmitty/rollavg/pkg/watchdog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func Stream() func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		setupLogging()
		period := viper.GetInt("period")
		size := viper.GetInt("buffer")

		ctx, cancelFunc := signalContext()
		defer cancelFunc()
		g, ctx := errgroup.WithContext(ctx)
		// done stops the source and watchdog once the stream ends; the fan keeps
		// ctx so it can flush what is left in averages.
		done, finished := context.WithCancel(ctx)
		defer finished()

		var mc *mqtt.Client
		if broker := viper.GetString("mqtt-broker"); broker != "" {
			mqttURL, err := url.Parse(broker)
			errChk(err)
			mc = mqtt.NewClient(mqttURL, viper.GetString("mqtt-client-id"), viper.GetInt("mqtt-publish-every"))
			errChk(mc.Connect())
			defer mc.Disconnect()
		}

		var samples iter.Seq2[float64, error]
		if topic := viper.GetString("mqtt-source-topic"); topic != "" {
			if mc == nil {
				errChk(errNoBroker)
			}
			ch, stop, err := mc.Source(topic, size)
			errChk(err)
			defer stop()
			go func() {
				<-done.Done()
				stop()
			}()
			samples = stream.Items(ch)
		} else {
			src, closeFn, err := openSamples()
			errChk(err)
			defer closeFn()
			samples = src
		}

		// Watchdog
		if timeout := viper.GetDuration("watchdog-timeout"); timeout > 0 {
			beat := make(chan struct{}, 1)
			samples = heartbeat(samples, beat)
			g.Go(func() error {
				return watchdog.New[struct{}](timeout, beat, cancelFunc)(done)
			})
		}

		averages := make(chan float64, size)
		avgFan := router.NewFan[float64]("averages", averages, size)

		trend := stats.NewTrend(viper.GetInt("trend-size"))
		trendCh, err := avgFan.Subscribe("trend")
		errChk(err)
		g.Go(func() error {
			for avg := range trendCh {
				trend.Add(avg)
			}
			return nil
		})

		if mc != nil {
			pubCh, err := avgFan.Subscribe("mqtt")
			errChk(err)
			g.Go(mc.GetPublisher(pubCh))
			errChk(mc.HomeAssistant())
		}
		g.Go(func() error {
			return avgFan.Run(ctx)
		})

		var result stream.Stats
		g.Go(func() error {
			defer close(averages)
			var err error
			result, err = stream.Run(ctx, samples, period, size, func(avg float64) error {
				select {
				case averages <- avg:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if errors.Is(err, context.Canceled) {
				slog.Info("stream stopped before the source was exhausted")
				err = nil
			}
			finished()
			return err
		})

		slog.Debug("waiting for goroutines to finish")
		errChk(g.Wait())

		slog.Info("stream finished",
			"period", period,
			"emitted", result.Emitted,
			"dropped", result.Dropped,
			"last", result.Last,
		)
		slog.Info("recent trend",
			"window", trend.Len(),
			"mean", trend.Mean(),
			"stddev", trend.StdDev(),
			"slope", trend.Slope(),
			"p95", trend.Quantile(0.95),
		)
	}
}

// heartbeat signals beat without blocking for every sample src yields.
func heartbeat[T any](src iter.Seq2[T, error], beat chan<- struct{}) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v, err := range src {
			select {
			case beat <- struct{}{}:
			default:
			}
			if !yield(v, err) {
				return
			}
		}
	}
}
