package rollavg

import (
	"log/slog"
	"time"

	"github.com/mikesmitty/rollavg/pkg/ingest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Ingest() func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		setupLogging()
		ctx, cancelFunc := signalContext()
		defer cancelFunc()

		cfg := ingest.Config{
			Producers:       viper.GetInt("producers"),
			PerProducer:     viper.GetInt("per-producer"),
			Period:          viper.GetInt("period"),
			ObserveInterval: viper.GetDuration("observe-interval"),
			ConsumeInterval: viper.GetDuration("consume-interval"),
		}
		start := time.Now()
		res, err := ingest.Run(ctx, cfg)
		errChk(err)

		for producer, n := range res.PerProducer {
			slog.Debug("producer total", "producer", producer, "measurements", n)
		}
		slog.Info("ingest finished",
			"producers", cfg.Producers,
			"measurements", res.Total,
			"observed", res.Observed,
			"averages", res.Averages,
			"last", res.Last,
			"elapsed", time.Since(start),
		)
	}
}
