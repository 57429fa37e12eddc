package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/polysynth/internal/audio"
	"github.com/satindergrewal/polysynth/internal/config"
	"github.com/satindergrewal/polysynth/internal/device"
	"github.com/satindergrewal/polysynth/internal/input"
	"github.com/satindergrewal/polysynth/internal/instrument"
	"github.com/satindergrewal/polysynth/internal/pcm"
	"github.com/satindergrewal/polysynth/internal/samplebank"
	"github.com/satindergrewal/polysynth/internal/stream"
	"github.com/satindergrewal/polysynth/internal/synth"
)

var playFlags struct {
	device, format, source, score, instrument, sample, midiPort, mix string
	rate, channels, port                                             int
	buffer, period, fadeIn, fadeOut, duration                        time.Duration
	pan                                                              bool
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a synthesis session",
	Long: `Start a synthesis session: negotiate the output device, then render
every note the input source produces until it ends or the process is
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyPlayFlags(cmd, &cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return play(ctx, cfg)
	},
}

func init() {
	f := playCmd.Flags()
	f.StringVarP(&playFlags.device, "device", "d", "", "output: oto, pulse, null or stream")
	f.StringVar(&playFlags.format, "format", "", "sample format: s16, s32 or f32")
	f.IntVar(&playFlags.rate, "rate", 0, "sample rate in Hz")
	f.IntVar(&playFlags.channels, "channels", 0, "output channels")
	f.DurationVar(&playFlags.buffer, "buffer", 0, "device buffer length")
	f.DurationVar(&playFlags.period, "period", 0, "period length")
	f.StringVar(&playFlags.mix, "mix", "", "mix policy: fixed or dynamic")
	f.StringVarP(&playFlags.instrument, "instrument", "i", "", "sine, wavetable, sample or chord")
	f.DurationVar(&playFlags.fadeIn, "fade-in", 0, "fade-in length")
	f.DurationVar(&playFlags.fadeOut, "fade-out", 0, "fade-out length")
	f.BoolVar(&playFlags.pan, "pan", false, "sweep each note across the stereo field")
	f.StringVar(&playFlags.sample, "sample", "", "raw s16 PCM file for the sample and wavetable instruments")
	f.StringVarP(&playFlags.source, "source", "s", "", "input: lines, midi, score, demo or http")
	f.StringVar(&playFlags.score, "score", "", "YAML score file")
	f.StringVar(&playFlags.midiPort, "midi-port", "", "MIDI input port name")
	f.DurationVar(&playFlags.duration, "note-duration", 0, "length of notes that do not set one")
	f.IntVarP(&playFlags.port, "port", "p", 0, "HTTP port for status, notes and streams")
	rootCmd.AddCommand(playCmd)
}

// applyPlayFlags overrides cfg with the flags given on the command line.
func applyPlayFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("device") {
		cfg.Device = playFlags.device
	}
	if changed("format") {
		cfg.Format = playFlags.format
	}
	if changed("rate") {
		cfg.Rate = playFlags.rate
	}
	if changed("channels") {
		cfg.Channels = playFlags.channels
	}
	if changed("buffer") {
		cfg.BufferTime = playFlags.buffer
	}
	if changed("period") {
		cfg.PeriodTime = playFlags.period
	}
	if changed("mix") {
		cfg.MixPolicy = playFlags.mix
	}
	if changed("instrument") {
		cfg.Instrument = playFlags.instrument
	}
	if changed("fade-in") {
		cfg.FadeIn = playFlags.fadeIn
	}
	if changed("fade-out") {
		cfg.FadeOut = playFlags.fadeOut
	}
	if changed("pan") {
		cfg.Pan = playFlags.pan
	}
	if changed("sample") {
		cfg.Sample = playFlags.sample
	}
	if changed("source") {
		cfg.Source = playFlags.source
	}
	if changed("score") {
		cfg.Score = playFlags.score
		if !changed("source") {
			cfg.Source = config.SourceScore
		}
	}
	if changed("midi-port") {
		cfg.MIDIPort = playFlags.midiPort
	}
	if changed("note-duration") {
		cfg.NoteDuration = playFlags.duration
	}
	if changed("port") {
		cfg.Port = playFlags.port
	}
}

// session is the format-independent view of a running pipeline.
type session interface {
	Stats() audio.Snapshot
	Params() (pcm.Params, bool)
	Running() bool
}

func play(ctx context.Context, cfg config.Config) error {
	format, _ := pcm.ParseFormat(cfg.Format)
	if cfg.Device == config.DeviceStream && format != pcm.S16LE {
		return fmt.Errorf("device stream plays s16 only, not %s", format)
	}

	inst, err := buildInstrument(cfg)
	if err != nil {
		return err
	}
	mixer, _ := cfg.Mixer()

	var notes *input.HTTP
	if cfg.Port != 0 {
		notes = input.NewHTTP(input.DefaultHTTPQueue)
		notes.Duration = cfg.NoteDuration
	}
	src, err := buildSource(cfg, notes)
	if err != nil {
		return err
	}

	var b *stream.Broadcaster
	if cfg.Device == config.DeviceStream {
		b = stream.NewBroadcaster()
	}

	switch format {
	case pcm.S32LE:
		return runSession[int32](ctx, cfg, inst, mixer, src, notes, b)
	case pcm.F32LE:
		return runSession[float32](ctx, cfg, inst, mixer, src, notes, b)
	default:
		return runSession[int16](ctx, cfg, inst, mixer, src, notes, b)
	}
}

func runSession[S pcm.Sample](ctx context.Context, cfg config.Config, inst *instrument.Instrument, mixer synth.Mixer, src input.Source, notes *input.HTTP, b *stream.Broadcaster) error {
	open, err := opener[S](ctx, cfg, b)
	if err != nil {
		return err
	}
	p, err := audio.NewPipeline(audio.Config[S]{
		Open:        open,
		Request:     cfg.Request(),
		Mixer:       mixer,
		VoiceBuffer: cfg.VoiceBuffer,
		Build:       inst.Build,
		Source:      src,
	})
	if err != nil {
		return err
	}

	var srv *server
	if cfg.Port != 0 {
		srv = newServer(cfg, p, notes, b)
		go srv.serve(ctx)
	}

	slog.Info("polysynth starting", "device", cfg.Device, "format", cfg.Format, "instrument", inst.Kind(), "source", cfg.Source, "mix", mixer)
	start := time.Now()
	runErr := p.Run(ctx)
	if srv != nil {
		srv.close()
	}

	params, _ := p.Params()
	st := p.Stats()
	fmt.Fprintln(os.Stderr, panel("session",
		kv("device", fmt.Sprintf("%s %s", cfg.Device, params)),
		kv("played", time.Since(start).Round(time.Millisecond)),
		kv("voices", st.VoicesAccepted),
		kv("rejected", st.EventsRejected),
		kv("periods", fmt.Sprintf("%d generated, %d written", st.PeriodsGenerated, st.PeriodsWritten)),
		kv("underruns", fmt.Sprintf("%d (%d recovered)", st.Underruns, st.Recoveries)),
	))
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// opener returns the device factory for the configured backend.
func opener[S pcm.Sample](ctx context.Context, cfg config.Config, b *stream.Broadcaster) (audio.OpenFunc[S], error) {
	if cfg.Device != config.DeviceStream {
		return func() (audio.Device[S], error) {
			return device.Open[S](cfg.Device, device.Options{})
		}, nil
	}
	return func() (audio.Device[S], error) {
		dev := stream.NewDevice(b)
		go b.Run(ctx, dev.Frames())
		d, ok := any(dev).(audio.Device[S])
		if !ok {
			dev.Close()
			return nil, fmt.Errorf("device stream plays s16 only")
		}
		return d, nil
	}, nil
}

func buildInstrument(cfg config.Config) (*instrument.Instrument, error) {
	kind, _ := instrument.ParseKind(cfg.Instrument)
	dir, _ := cfg.Direction()
	ic := instrument.Config{
		Kind:         kind,
		FadeIn:       cfg.FadeIn,
		FadeOut:      cfg.FadeOut,
		Pan:          cfg.Pan,
		PanMin:       cfg.PanMin,
		PanMax:       cfg.PanMax,
		PanDirection: dir,
	}
	if cfg.Sample != "" && (kind == instrument.KindSample || kind == instrument.KindWavetable) {
		order, _ := cfg.ByteOrder()
		rec, err := samplebank.LoadRawFile(cfg.Sample, cfg.SampleChannels, uint32(cfg.SampleRate), order)
		if err != nil {
			return nil, err
		}
		slog.Info("sample loaded", "path", cfg.Sample, "frames", rec.Frames(), "rate", rec.Rate)
		if kind == instrument.KindSample {
			ic.Recording = rec
		} else {
			table, err := samplebank.CapturePeriod(rec, cfg.CaptureSkip, cfg.CaptureFrames)
			if err != nil {
				return nil, err
			}
			ic.Table = table
		}
	}
	return instrument.New(ic)
}

func buildSource(cfg config.Config, notes *input.HTTP) (input.Source, error) {
	var src input.Source
	switch cfg.Source {
	case config.SourceMIDI:
		src = &input.MIDI{Port: cfg.MIDIPort, Duration: cfg.NoteDuration}
	case config.SourceScore, config.SourceDemo:
		score := input.DemoScore()
		if cfg.Source == config.SourceScore {
			var err error
			if score, err = input.LoadScore(cfg.Score); err != nil {
				return nil, err
			}
		}
		seq, err := score.Compile()
		if err != nil {
			return nil, err
		}
		slog.Info("score loaded", "name", seq.Name, "notes", len(seq.Steps), "length", seq.Length())
		src = seq
	case config.SourceHTTP:
		return notes, nil
	default:
		lines := input.Stdin()
		lines.Duration = cfg.NoteDuration
		src = lines
	}
	if notes != nil {
		return input.Merge(src, notes), nil
	}
	return src, nil
}
