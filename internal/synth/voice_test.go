package synth

import (
	"math"
	"testing"
	"time"

	"github.com/satindergrewal/polysynth/internal/pcm"
)

var mono8k = pcm.Params{Channels: 1, Rate: 8000, PeriodSize: 64, BufferSize: 512, Format: pcm.S16LE}

func TestDurationToTicks(t *testing.T) {
	tests := []struct {
		d    time.Duration
		rate uint32
		want Ticks
	}{
		{time.Second, 8000, 8000},
		{1250 * time.Microsecond, 8000, 10},
		{time.Second / 3, 44100, 14699},
		{1500 * time.Millisecond, 48000, 72000},
		{time.Nanosecond, 44100, 0},
		{time.Second, 0, 0},
		{-time.Second, 8000, 0},
	}
	for _, tt := range tests {
		if got := DurationToTicks(tt.d, tt.rate); got != tt.want {
			t.Errorf("DurationToTicks(%v, %d) = %d, want %d", tt.d, tt.rate, got, tt.want)
		}
	}
	if got := TicksToDuration(8000, 8000); got != time.Second {
		t.Errorf("TicksToDuration(8000, 8000) = %v, want 1s", got)
	}
}

func TestVoiceConfigClamps(t *testing.T) {
	if got := NewVoiceConfig(440, 0, 1.5).AmplitudeScale; got != 1 {
		t.Errorf("scale 1.5 clamped to %v, want 1", got)
	}
	if got := NewVoiceConfig(440, 0, -0.5).AmplitudeScale; got != 0.5 {
		t.Errorf("scale -0.5 clamped to %v, want 0.5", got)
	}
	if got := NewVoiceConfig(440, 0, math.NaN()).AmplitudeScale; got != 0 {
		t.Errorf("scale NaN clamped to %v, want 0", got)
	}
}

func TestOscillatorScenario(t *testing.T) {
	phase := 0.3
	o, err := NewOscillator([]VoiceConfig{NewVoiceConfig(1000, phase, 0.5)}, time.Second, mono8k)
	if err != nil {
		t.Fatalf("NewOscillator: %v", err)
	}
	amp := 0.5 * math.MaxInt16
	if got, want := o.Generate(0), math.Sin(phase)*amp; got != want {
		t.Errorf("Generate at tick 0 = %v, want %v", got, want)
	}
	for i := 0; i < 8000; i++ {
		o.Tick()
	}
	if o.IsComplete() {
		t.Error("complete at tick 8000, want still playing")
	}
	o.Tick()
	if !o.IsComplete() {
		t.Error("not complete at tick 8001")
	}
}

func TestOscillatorBoundedAndPhaseWraps(t *testing.T) {
	p := mono8k
	p.Channels = 2
	configs := []VoiceConfig{NewVoiceConfig(3999, 0, 1), NewVoiceConfig(523.25, 6, 0.25)}
	o, err := NewOscillator(configs, time.Second, p)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20000; i++ {
		for ch := 0; ch < 2; ch++ {
			if v := o.Generate(ch); math.Abs(v) > o.Amplitude(ch) {
				t.Fatalf("tick %d ch %d: |%v| exceeds amplitude %v", i, ch, v, o.Amplitude(ch))
			}
		}
		o.Tick()
		for ch := 0; ch < 2; ch++ {
			if ph := o.Phase(ch); ph < 0 || ph >= 2*math.Pi {
				t.Fatalf("tick %d ch %d: phase %v outside [0, 2pi)", i, ch, ph)
			}
		}
	}
}

func TestOscillatorReusesConfigsCyclically(t *testing.T) {
	p := mono8k
	p.Channels = 3
	o, err := NewOscillator([]VoiceConfig{NewVoiceConfig(440, 1, 1), NewVoiceConfig(880, 2, 0.5)}, time.Second, p)
	if err != nil {
		t.Fatal(err)
	}
	if o.Generate(2) != o.Generate(0) {
		t.Errorf("channel 2 = %v, want channel 0 value %v", o.Generate(2), o.Generate(0))
	}
}

func TestOscillatorRejectsBadArgs(t *testing.T) {
	if _, err := NewOscillator(nil, time.Second, mono8k); err == nil {
		t.Error("no configs should fail")
	}
	if _, err := NewOscillator(Mono(440, 1), time.Second, pcm.Params{}); err == nil {
		t.Error("zero params should fail")
	}
}

func TestVoicesRejectUnplayableFrequencies(t *testing.T) {
	table := SineTable(DefaultTableFrames, 1)
	tests := []struct {
		name   string
		config VoiceConfig
	}{
		{"huge", NewVoiceConfig(1e300, 0, 1)},
		{"infinite", NewVoiceConfig(math.Inf(1), 0, 1)},
		{"nan", NewVoiceConfig(math.NaN(), 0, 1)},
		{"nyquist", NewVoiceConfig(4000, 0, 1)},
		{"negative", NewVoiceConfig(-440, 0, 1)},
		{"infinite phase", NewVoiceConfig(440, math.Inf(-1), 1)},
	}
	for _, tt := range tests {
		if _, err := NewOscillator([]VoiceConfig{tt.config}, time.Second, mono8k); err == nil {
			t.Errorf("%s: NewOscillator accepted %+v", tt.name, tt.config)
		}
		if _, err := NewWavetable(table, []VoiceConfig{tt.config}, time.Second, mono8k); err == nil {
			t.Errorf("%s: NewWavetable accepted %+v", tt.name, tt.config)
		}
	}
	if err := CheckFrequency(3999.9, 8000); err != nil {
		t.Errorf("CheckFrequency below Nyquist: %v", err)
	}
}

func TestTickBoundedNearNyquist(t *testing.T) {
	o, err := NewOscillator(Mono(3999.999, 1), time.Second, mono8k)
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWavetable(SineTable(DefaultTableFrames, 1), Mono(3999.999, 1), time.Second, mono8k)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 8000; i++ {
			o.Tick()
			w.Tick()
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Tick did not return")
	}
	if ph := o.Phase(0); ph < 0 || ph >= 2*math.Pi {
		t.Errorf("phase %v outside [0, 2pi)", ph)
	}
	if idx := w.Index(0); idx < 0 || idx >= DefaultTableFrames {
		t.Errorf("index %v outside table", idx)
	}
}

func TestWavetableExactAtIntegerIndex(t *testing.T) {
	table := SineTable(DefaultTableFrames, 1)
	// 8 Hz at 8000 Hz over 1000 frames steps exactly one frame per tick.
	w, err := NewWavetable(table, Mono(8, 1), time.Second, mono8k)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2500; i++ {
		idx := w.Index(0)
		if idx != math.Trunc(idx) {
			t.Fatalf("tick %d: index %v is not integral", i, idx)
		}
		want := table.At(int(idx), 0) * math.MaxInt16
		if got := w.Generate(0); got != want {
			t.Fatalf("tick %d: Generate = %v, want stored %v", i, got, want)
		}
		w.Tick()
	}
}

func TestWavetableInterpolates(t *testing.T) {
	table := &Table{Data: []float64{0, 1, 0, -1}, Channels: 1}
	p := pcm.Params{Channels: 1, Rate: 8, PeriodSize: 1, Format: pcm.F32LE}
	// step = 4 * 1 / 8 = half a frame
	w, err := NewWavetable(table, Mono(1, 1), time.Second, p)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.5, 1, 0.5, 0, -0.5, -1, -0.5, 0}
	for i, v := range want {
		if got := w.Generate(0); math.Abs(got-v) > 1e-12 {
			t.Errorf("tick %d: Generate = %v, want %v", i, got, v)
		}
		w.Tick()
	}
}

func TestWavetablePhaseOffset(t *testing.T) {
	table := SineTable(1000, 1)
	w, err := NewWavetable(table, []VoiceConfig{NewVoiceConfig(440, math.Pi, 1)}, time.Second, mono8k)
	if err != nil {
		t.Fatal(err)
	}
	if got := w.Index(0); got != 500 {
		t.Errorf("initial index = %v, want 500", got)
	}
	if _, err := NewWavetable(&Table{Channels: 1}, Mono(440, 1), time.Second, mono8k); err == nil {
		t.Error("empty table should fail")
	}
}

func TestSampleVoiceExhausts(t *testing.T) {
	rec := &Recording{Data: []float64{0.5, -0.5, 0.25, -0.25}, Channels: 2}
	p := mono8k
	p.Channels = 2
	s, err := NewSampleVoice(rec, 1, p)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Generate(1); got != -0.5*math.MaxInt16 {
		t.Errorf("frame 0 ch 1 = %v", got)
	}
	s.Tick()
	if s.IsComplete() {
		t.Fatal("complete after one of two frames")
	}
	if got := s.Generate(0); got != 0.25*math.MaxInt16 {
		t.Errorf("frame 1 ch 0 = %v", got)
	}
	s.Tick()
	if !s.IsComplete() {
		t.Fatal("not complete after last frame")
	}
	if got := s.Generate(0); got != 0 {
		t.Errorf("exhausted voice generated %v, want 0", got)
	}
}

func TestCompositeCompletesWithLastChild(t *testing.T) {
	short := &constVoice{value: 100, duration: 1}
	long := &constVoice{value: 100, duration: 3}
	c, err := NewComposite([]Voice{short, long})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Generate(0); got != 100 {
		t.Errorf("two children mix = %v, want 100", got)
	}
	c.Tick()
	c.Tick()
	if !short.IsComplete() || c.IsComplete() {
		t.Fatal("after two ticks only the short child should be complete")
	}
	if got := c.Generate(0); got != 50 {
		t.Errorf("one child under fixed cap 2 = %v, want 50", got)
	}
	c.Tick()
	c.Tick()
	if !c.IsComplete() {
		t.Error("composite not complete after all children finished")
	}
	if got := c.Generate(0); got != 0 {
		t.Errorf("complete composite generated %v", got)
	}

	dyn, _ := NewComposite([]Voice{&constVoice{value: 10}, &constVoice{value: 30, duration: 5}}, WithMixer(Dynamic()))
	dyn.Tick()
	if got := dyn.Generate(0); got != 30 {
		t.Errorf("dynamic mix of remaining child = %v, want 30", got)
	}

	if _, err := NewComposite(nil); err == nil {
		t.Error("empty composite should fail")
	}
}

// constVoice emits a fixed value until its duration elapses.
type constVoice struct {
	value    float64
	duration Ticks
	ticks    Ticks
}

func (*constVoice) voice() {}

func (v *constVoice) Generate(int) float64 { return v.value }

func (v *constVoice) Tick() { v.ticks++ }

func (v *constVoice) IsComplete() bool { return v.ticks > v.duration }
