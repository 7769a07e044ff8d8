package effects

import (
	"context"
	"math"
	"time"

	"github.com/faiface/beep"
	beepfx "github.com/faiface/beep/effects"
	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/audio"
)

// gain: "db" (default 0)
type gainKernel struct {
	feed audio.Feed
	gain beepfx.Gain
}

func newGainKernel() *gainKernel {
	k := &gainKernel{}
	k.gain.Streamer = &k.feed
	return k
}

func (k *gainKernel) setParams(params api.EffectParams) {
	db := clamp(param(params, "db", 0), -60, 24)
	k.gain.Gain = math.Pow(10, db/20) - 1
}

func (k *gainKernel) process(block [][2]float64) {
	k.feed.Block = block
	k.gain.Stream(block)
	k.feed.Block = nil
}

// pan: "pan" in [-1, 1] (default 0)
type panKernel struct {
	feed audio.Feed
	pan  beepfx.Pan
}

func newPanKernel() *panKernel {
	k := &panKernel{}
	k.pan.Streamer = &k.feed
	return k
}

func (k *panKernel) setParams(params api.EffectParams) {
	k.pan.Pan = clamp(param(params, "pan", 0), -1, 1)
}

func (k *panKernel) process(block [][2]float64) {
	k.feed.Block = block
	k.pan.Stream(block)
	k.feed.Block = nil
}

// lowpass: one-pole filter, "cutoff" in Hz (default 1000)
type lowpassKernel struct {
	sampleRate beep.SampleRate
	alpha      float64
	state      [2]float64
}

func newLowpassKernel(sr beep.SampleRate) *lowpassKernel {
	return &lowpassKernel{sampleRate: sr}
}

func (k *lowpassKernel) setParams(params api.EffectParams) {
	nyquist := float64(k.sampleRate) / 2
	cutoff := clamp(param(params, "cutoff", 1000), 20, nyquist)
	k.alpha = 1 - math.Exp(-2*math.Pi*cutoff/float64(k.sampleRate))
}

func (k *lowpassKernel) process(block [][2]float64) {
	for i := range block {
		for c := 0; c < 2; c++ {
			k.state[c] += k.alpha * (block[i][c] - k.state[c])
			block[i][c] = k.state[c]
		}
	}
}

const maxDelay = 2 * time.Second

// delay: "time" in seconds (default 0.25), "feedback" in [0, 0.95]
// (default 0.35)
type delayKernel struct {
	sampleRate beep.SampleRate
	buf        [][2]float64
	pos        int
	length     int
	feedback   float64
}

func newDelayKernel(sr beep.SampleRate) *delayKernel {
	return &delayKernel{
		sampleRate: sr,
		buf:        make([][2]float64, sr.N(maxDelay)+1),
	}
}

func (k *delayKernel) setParams(params api.EffectParams) {
	seconds := clamp(param(params, "time", 0.25), 0.001, maxDelay.Seconds())
	length := int(seconds * float64(k.sampleRate))
	if length < 1 {
		length = 1
	}
	if length > len(k.buf) {
		length = len(k.buf)
	}
	if length != k.length {
		k.length = length
		k.pos = 0
	}
	k.feedback = clamp(param(params, "feedback", 0.35), 0, 0.95)
}

func (k *delayKernel) process(block [][2]float64) {
	for i := range block {
		echo := k.buf[k.pos]
		for c := 0; c < 2; c++ {
			k.buf[k.pos][c] = block[i][c] + echo[c]*k.feedback
			block[i][c] += echo[c]
		}
		k.pos++
		if k.pos >= k.length {
			k.pos = 0
		}
	}
}

// Comb and allpass lengths of the classic Schroeder/Freeverb tuning at
// 44.1kHz, scaled to the running rate.
var (
	combTuning    = []int{1116, 1188, 1277, 1356}
	allpassTuning = []int{556, 441}
)

const stereoSpread = 23

type comb struct {
	buf   []float64
	pos   int
	store float64
}

func (c *comb) process(in, feedback, damp float64) float64 {
	out := c.buf[c.pos]
	c.store = out*(1-damp) + c.store*damp
	c.buf[c.pos] = in + c.store*feedback
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

type allpass struct {
	buf []float64
	pos int
}

func (a *allpass) process(in float64) float64 {
	delayed := a.buf[a.pos]
	out := delayed - in
	a.buf[a.pos] = in + delayed*0.5
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

// reverb: "room" in [0, 1] (default 0.5), "damp" in [0, 1] (default 0.5).
// Its delay lines are allocated by prepare.
type reverbKernel struct {
	sampleRate beep.SampleRate
	combs      [2][]comb
	allpasses  [2][]allpass
	feedback   float64
	damp       float64
}

func newReverbKernel(sr beep.SampleRate) *reverbKernel {
	return &reverbKernel{sampleRate: sr}
}

func (k *reverbKernel) prepare(ctx context.Context) error {
	scale := float64(k.sampleRate) / 44100
	size := func(n, channel int) int {
		l := int(float64(n+channel*stereoSpread) * scale)
		if l < 1 {
			l = 1
		}
		return l
	}
	for c := 0; c < 2; c++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		k.combs[c] = make([]comb, len(combTuning))
		for i, n := range combTuning {
			k.combs[c][i].buf = make([]float64, size(n, c))
		}
		k.allpasses[c] = make([]allpass, len(allpassTuning))
		for i, n := range allpassTuning {
			k.allpasses[c][i].buf = make([]float64, size(n, c))
		}
	}
	return ctx.Err()
}

func (k *reverbKernel) setParams(params api.EffectParams) {
	k.feedback = 0.7 + 0.28*clamp(param(params, "room", 0.5), 0, 1)
	k.damp = 0.4 * clamp(param(params, "damp", 0.5), 0, 1)
}

func (k *reverbKernel) process(block [][2]float64) {
	for i := range block {
		in := (block[i][0] + block[i][1]) * 0.015
		for c := 0; c < 2; c++ {
			var out float64
			for j := range k.combs[c] {
				out += k.combs[c][j].process(in, k.feedback, k.damp)
			}
			for j := range k.allpasses[c] {
				out = k.allpasses[c][j].process(out)
			}
			block[i][c] = out
		}
	}
}

// distortion: tanh waveshaper, "drive" in [1, 50] (default 4)
type distortionKernel struct {
	drive float64
	norm  float64
}

func newDistortionKernel() *distortionKernel {
	return &distortionKernel{}
}

func (k *distortionKernel) setParams(params api.EffectParams) {
	k.drive = clamp(param(params, "drive", 4), 1, 50)
	k.norm = 1 / math.Tanh(k.drive)
}

func (k *distortionKernel) process(block [][2]float64) {
	for i := range block {
		block[i][0] = math.Tanh(block[i][0]*k.drive) * k.norm
		block[i][1] = math.Tanh(block[i][1]*k.drive) * k.norm
	}
}
