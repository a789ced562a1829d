/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/mikesmitty/rollavg/pkg/batch"
	"github.com/mikesmitty/rollavg/pkg/rollavg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rollavg",
	Short: "Sliding window moving averages over batches, streams and concurrent producers",
	Long: `rollavg computes fixed-period moving averages.

  batch   loads every sample, then runs the naive or prefix-difference strategy
  stream  feeds samples through a channel to a single O(period) accumulator
  ingest  fans measurements from several producers into one shared queue`,
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Compute moving averages over a fully loaded sample set",
	Run:   rollavg.Batch(),
}

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Compute moving averages while samples are read from a file, generator or MQTT topic",
	Run:   rollavg.Stream(),
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run concurrent producers against a shared measurement queue",
	Run:   rollavg.Ingest(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rollavg.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Int("period", 7, "number of samples averaged together")
	rootCmd.PersistentFlags().String("input", "", "csv file with one sample per row (default is generated samples)")
	rootCmd.PersistentFlags().Int("generate", 10_000_000, "number of generated samples when no input file is set")

	batchCmd.Flags().String("strategy", batch.NamePrefix, "batch strategy: naive or prefix")
	batchCmd.Flags().Bool("verify", false, "cross-check the result against the other strategy")

	streamCmd.Flags().Int("buffer", 64, "channel capacity between pipeline stages")
	streamCmd.Flags().Duration("watchdog-timeout", 0, "stop the stream when no sample arrives within this interval (0 disables)")
	streamCmd.Flags().Int("trend-size", 600, "number of recent averages summarized at the end of the stream")
	streamCmd.Flags().String("mqtt-broker", "", "mqtt broker url")
	streamCmd.Flags().String("mqtt-client-id", "", "mqtt client id (default is the hostname)")
	streamCmd.Flags().String("mqtt-source-topic", "", "read samples from this mqtt topic instead of a file")
	streamCmd.Flags().Int("mqtt-publish-every", 10, "publish one of every N averages")

	ingestCmd.Flags().Int("producers", 2, "number of producer goroutines")
	ingestCmd.Flags().Int("per-producer", 10000, "measurements appended by each producer")
	ingestCmd.Flags().Duration("observe-interval", 1*time.Millisecond, "observer polling interval")
	ingestCmd.Flags().Duration("consume-interval", 1*time.Millisecond, "consumer polling interval")

	rootCmd.AddCommand(batchCmd, streamCmd, ingestCmd)

	viper.BindPFlags(rootCmd.PersistentFlags())
	viper.BindPFlags(batchCmd.Flags())
	viper.BindPFlags(streamCmd.Flags())
	viper.BindPFlags(ingestCmd.Flags())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".rollavg" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rollavg")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
