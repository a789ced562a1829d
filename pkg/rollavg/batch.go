package rollavg

import (
	"log/slog"
	"time"

	"github.com/mikesmitty/rollavg/pkg/batch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Batch() func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		setupLogging()
		period := viper.GetInt("period")
		name := viper.GetString("strategy")

		strategy, err := batch.ByName[float64](name)
		errChk(err)

		beforeRead := time.Now()
		samples, err := loadSamples()
		errChk(err)
		afterRead := time.Now()

		averages, err := strategy(samples, period)
		errChk(err)
		afterCalc := time.Now()

		slog.Info("moving average computed",
			"strategy", name,
			"period", period,
			"samples", len(samples),
			"averages", len(averages),
			"last", averages[len(averages)-1],
			"load", afterRead.Sub(beforeRead),
			"calc", afterCalc.Sub(afterRead),
		)

		if !viper.GetBool("verify") {
			return
		}
		other := batch.NamePrefix
		if name != batch.NameNaive {
			other = batch.NameNaive
		}
		check, err := batch.ByName[float64](other)
		errChk(err)
		want, err := check(samples, period)
		errChk(err)
		if i, ok := Compare(averages, want, 1e-9); !ok {
			slog.Error("strategies disagree", "index", i, "strategy", name, "other", other, "len", len(averages), "otherLen", len(want))
			errChk(errMismatch)
		}
		slog.Info("strategies agree", "strategy", name, "other", other)
	}
}
