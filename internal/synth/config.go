package synth

import "math"

// VoiceConfig parameterizes one channel of a voice.
type VoiceConfig struct {
	Frequency      float64 // Hz
	Phase          float64 // radians
	AmplitudeScale float64 // fraction of full scale, in [0, 1]
}

// NewVoiceConfig returns a config with the amplitude scale clamped to [0, 1].
func NewVoiceConfig(freq, phase, amplitudeScale float64) VoiceConfig {
	return VoiceConfig{
		Frequency:      freq,
		Phase:          phase,
		AmplitudeScale: clampScale(amplitudeScale),
	}
}

// Mono returns a single config used for every output channel.
func Mono(freq, amplitudeScale float64) []VoiceConfig {
	return []VoiceConfig{NewVoiceConfig(freq, 0, amplitudeScale)}
}

// configFor returns the config driving output channel ch. Channels beyond the
// configured ones reuse configs cyclically.
func configFor(configs []VoiceConfig, ch int) VoiceConfig {
	c := configs[ch%len(configs)]
	c.AmplitudeScale = clampScale(c.AmplitudeScale)
	return c
}

func clampScale(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return math.Min(math.Abs(s), 1)
}
