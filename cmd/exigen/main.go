// Command exigen generates table driven EXI codecs from the ISO 15118 /
// DIN 70121 V2G schemas.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chargeport/exigen/config"
	"github.com/chargeport/exigen/emit"
)

const (
	exitOK            = 0
	exitMissingConfig = 1
	exitInvalidConfig = 2
)

func main() {
	configFile := ""

	rootCmd := &cobra.Command{
		Use:   "exigen",
		Short: "Generate EXI grammar codecs from V2G schemas",
		Long: `exigen analyzes the configured XML schemas, derives the EXI grammar
tables for every message type and hands the resulting generation units
to the template renderer.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(configFile)
		},
	}

	rootCmd.Flags().StringVar(&configFile, "config", "config.yaml",
		"generator configuration parameter file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)

		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			if cfgErr.Kind == config.ErrorMissing {
				os.Exit(exitMissingConfig)
			}
			os.Exit(exitInvalidConfig)
		}
		os.Exit(exitInvalidConfig)
	}
	os.Exit(exitOK)
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	log := logrus.New()
	if cfg.LogDir != "" && cfg.LogFileName != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return &config.Error{Kind: config.ErrorInvalid,
				Reason: "log directory is not writable", Err: err}
		}
		out, err := os.Create(filepath.Join(cfg.LogDir, cfg.LogFileName))
		if err != nil {
			return &config.Error{Kind: config.ErrorInvalid,
				Reason: "log file is not writable", Err: err}
		}
		defer out.Close()
		log.SetOutput(out)
		log.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
			DisableColors:    true,
		})
	}

	return emit.NewGenerator(cfg, nil, log).GenerateFiles()
}
