package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/polysynth/internal/config"
	"github.com/satindergrewal/polysynth/internal/device"
	"github.com/satindergrewal/polysynth/internal/input"
	"github.com/satindergrewal/polysynth/internal/instrument"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "List output backends, MIDI ports and instrument kinds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		kinds := make([]string, 0, len(instrument.Kinds()))
		for _, k := range instrument.Kinds() {
			kinds = append(kinds, string(k))
		}
		ports := input.InPorts()
		if len(ports) == 0 {
			ports = []string{"(none)"}
		}
		fmt.Fprintln(cmd.OutOrStdout(), panel("polysynth "+version,
			kv("devices", strings.Join(append(device.Names(), config.DeviceStream), ", ")),
			kv("formats", "s16, s32, f32"),
			kv("instruments", strings.Join(kinds, ", ")),
			kv("sources", "lines, midi, score, demo, http"),
			kv("midi inputs", strings.Join(ports, ", ")),
			kv("config", fmt.Sprintf("%s %s %d Hz x%d, %s", cfg.Device, cfg.Format, cfg.Rate, cfg.Channels, cfg.Instrument)),
		))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
