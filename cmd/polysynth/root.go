package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/polysynth/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "polysynth",
	Short: "Real-time polyphonic synthesizer",
	Long: `polysynth - a real-time polyphonic synthesizer.

Notes are read from an input source, turned into voices and mixed into a
continuous stream of audio periods for a sound device.

Configuration is layered, lowest first: built-in defaults, the YAML file
given with --config, POLYSYNTH_* environment variables, command-line flags.

Examples:
  # Type note names (4a, 3eb, 5c# 250ms), q to quit
  polysynth play

  # Play the built-in scale through PulseAudio in stereo with a pan sweep
  polysynth play --source demo --device pulse --channels 2 --pan

  # Stream to browsers and accept notes over HTTP
  polysynth play --device stream --source http --port 8080`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
}

// loadConfig reads defaults, the config file and the environment.
func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}
