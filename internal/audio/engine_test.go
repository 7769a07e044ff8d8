package audio

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/jscyril/multitrack/api"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

func constantAsset(n int, v float64) *Asset {
	data := make([][2]float64, n)
	for i := range data {
		data[i] = [2]float64{v, v}
	}
	return NewAsset("const", beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}, 2, data)
}

func indexAsset(n int) *Asset {
	data := make([][2]float64, n)
	for i := range data {
		v := float64(i+1) / 10000
		data[i] = [2]float64{v, v}
	}
	return NewAsset("index", beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}, 2, data)
}

// newRig wires one player through one strip into a fresh engine
func newRig(t *testing.T, asset *Asset) (*Engine, *Strip, Device) {
	t.Helper()
	engine := NewEngine(testRate)
	strip := NewStrip()
	engine.Attach(strip)
	dev, err := engine.NewDevice(asset)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	dev.Connect(strip)
	return engine, strip, dev
}

func TestNewEngine(t *testing.T) {
	engine := NewEngine(testRate)
	if engine.Now() != 0 {
		t.Errorf("Now() = %v, want 0", engine.Now())
	}
	if engine.Live() {
		t.Error("new engine should not be live")
	}
	engine.Advance(250 * time.Millisecond)
	if engine.Now() != 250*time.Millisecond {
		t.Errorf("Now() = %v, want 250ms", engine.Now())
	}
}

func TestPlayerOffsetAndDuration(t *testing.T) {
	asset := indexAsset(3000)
	engine, _, dev := newRig(t, asset)

	if err := dev.Start(engine.Now(), time.Second, time.Second); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if dev.State() != api.PlayerStarted {
		t.Fatalf("State() = %v, want started", dev.State())
	}

	out, err := engine.Render(context.Background(), 3000)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out[0] != asset.Frame(1000) {
		t.Errorf("first frame = %v, want %v", out[0], asset.Frame(1000))
	}
	if out[999] != asset.Frame(1999) {
		t.Errorf("last frame = %v, want %v", out[999], asset.Frame(1999))
	}
	if out[1000] != ([2]float64{}) {
		t.Errorf("frame after duration = %v, want silence", out[1000])
	}
	if dev.State() != api.PlayerStopped {
		t.Error("player should stop on its own after the duration")
	}

	select {
	case ev := <-engine.Events():
		if ev.Device != dev.ID() || ev.Run != 1 {
			t.Errorf("event = %+v, want device %d run 1", ev, dev.ID())
		}
	default:
		t.Error("expected an ended event")
	}
}

func TestPlayerScheduledInFuture(t *testing.T) {
	engine, _, dev := newRig(t, constantAsset(1000, 0.5))

	if err := dev.Start(500*time.Millisecond, 0, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := engine.Render(context.Background(), 1000)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out[499] != ([2]float64{}) {
		t.Errorf("frame before start = %v, want silence", out[499])
	}
	if out[500][0] != 0.5 {
		t.Errorf("frame at start = %v, want 0.5", out[500])
	}
}

func TestPlayerLoops(t *testing.T) {
	asset := indexAsset(1000)
	engine, _, dev := newRig(t, asset)

	dev.SetLoop(true, 100*time.Millisecond, 200*time.Millisecond)
	if err := dev.Start(0, 100*time.Millisecond, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, _ := engine.Render(context.Background(), 250)
	if out[100] != asset.Frame(100) {
		t.Errorf("frame 100 = %v, want wrap to %v", out[100], asset.Frame(100))
	}
	if out[249] != asset.Frame(149) {
		t.Errorf("frame 249 = %v, want %v", out[249], asset.Frame(149))
	}
	if dev.State() != api.PlayerStarted {
		t.Error("looping player should keep playing")
	}
}

func TestPlayerStopMustSettle(t *testing.T) {
	engine, _, dev := newRig(t, constantAsset(5000, 0.5))

	if err := dev.Start(0, 0, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	engine.Advance(100 * time.Millisecond)
	if err := dev.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := dev.Start(engine.Now(), 0, 0); !errors.Is(err, playerrors.ErrScheduleConflict) {
		t.Fatalf("Start before the stop settled: err = %v, want ErrScheduleConflict", err)
	}

	engine.Advance(200 * time.Millisecond)
	if err := dev.Start(engine.Now(), 0, 0); err != nil {
		t.Errorf("Start after the stop settled: %v", err)
	}
	if dev.Run() != 2 {
		t.Errorf("Run() = %d, want 2", dev.Run())
	}
}

func TestPlayerClosed(t *testing.T) {
	asset := constantAsset(100, 0.5)
	asset.Retain()
	_, strip, dev := newRig(t, asset)

	if asset.Refs() != 2 {
		t.Fatalf("Refs() = %d, want 2", asset.Refs())
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if asset.Refs() != 1 {
		t.Errorf("Refs() after Close = %d, want 1", asset.Refs())
	}
	if strip.Source() != nil {
		t.Error("closed player should leave its strip")
	}
	if err := dev.Start(0, 0, 0); !errors.Is(err, playerrors.ErrDeviceClosed) {
		t.Errorf("Start on closed device: err = %v, want ErrDeviceClosed", err)
	}
	if err := dev.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestStripMix(t *testing.T) {
	tests := []struct {
		name   string
		db     float64
		pan    float64
		silent bool
		left   float64
		right  float64
	}{
		{"unity", 0, 0, false, 0.5, 0.5},
		{"muted", 0, 0, true, 0, 0},
		{"minus 6dB", -20 * math.Log10(2), 0, false, 0.25, 0.25},
		{"hard left", 0, -1, false, 0.5, 0},
		{"pan clamped right", 0, 3, false, 0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, strip, dev := newRig(t, constantAsset(1000, 0.5))
			strip.SetMix(tt.db, tt.pan, tt.silent)
			if err := dev.Start(0, 0, 0); err != nil {
				t.Fatalf("Start: %v", err)
			}
			out, _ := engine.Render(context.Background(), 10)
			if math.Abs(out[5][0]-tt.left) > 1e-9 || math.Abs(out[5][1]-tt.right) > 1e-9 {
				t.Errorf("frame = %v, want [%v %v]", out[5], tt.left, tt.right)
			}
		})
	}
}

type halve struct{}

func (halve) Process(block [][2]float64) {
	for i := range block {
		block[i][0] /= 2
		block[i][1] /= 2
	}
}

func TestStripChainAndClose(t *testing.T) {
	engine, strip, dev := newRig(t, constantAsset(2000, 0.8))
	strip.SetChain([]Processor{halve{}, halve{}})
	if err := dev.Start(0, 0, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}

	out, _ := engine.Render(context.Background(), 10)
	if math.Abs(out[0][0]-0.2) > 1e-9 {
		t.Errorf("frame = %v, want 0.2", out[0])
	}

	strip.Close()
	out, _ = engine.Render(context.Background(), 10)
	if out[0] != ([2]float64{}) {
		t.Errorf("closed strip should be silent, got %v", out[0])
	}
}

type countTap struct{ frames int }

func (c *countTap) Capture(block [][2]float64) { c.frames += len(block) }

func TestEngineTaps(t *testing.T) {
	engine := NewEngine(testRate)
	tap := &countTap{}
	engine.AddTap(tap)
	engine.Advance(time.Second)
	engine.RemoveTap(tap)
	engine.Advance(time.Second)
	if tap.frames != 1000 {
		t.Errorf("tap saw %d frames, want 1000", tap.frames)
	}
}

func TestPlayerWindowChangesWhilePlaying(t *testing.T) {
	asset := indexAsset(2000)
	engine, _, dev := newRig(t, asset)

	dev.SetLoop(false, 0, time.Second)
	if err := dev.Start(0, 0, time.Second); err != nil {
		t.Fatalf("Start: %v", err)
	}
	engine.Advance(500 * time.Millisecond)

	// loop the first half second instead of stopping at 1s
	dev.SetLoop(true, 0, 500*time.Millisecond)
	out, _ := engine.Render(context.Background(), 1000)
	if out[0] != asset.Frame(0) || out[999] != asset.Frame(499) {
		t.Errorf("frames = %v, %v, want the loop to wrap", out[0], out[999])
	}

	// turning the loop off lets the player finish at the window end
	dev.SetLoop(false, 0, 500*time.Millisecond)
	engine.Advance(time.Second)
	if dev.State() != api.PlayerStopped {
		t.Error("player should stop at the window end once the loop is off")
	}
}

func TestPlayerWindowGrowsWhilePlaying(t *testing.T) {
	asset := indexAsset(3000)
	engine, _, dev := newRig(t, asset)

	dev.SetLoop(false, 0, time.Second)
	if err := dev.Start(0, 0, time.Second); err != nil {
		t.Fatalf("Start: %v", err)
	}
	engine.Advance(500 * time.Millisecond)

	dev.SetLoop(false, 0, 2*time.Second)
	out, _ := engine.Render(context.Background(), 1000)
	if out[999] != asset.Frame(1499) {
		t.Errorf("frame = %v, want playback past the old window end", out[999])
	}
	if dev.State() != api.PlayerStarted {
		t.Error("player stopped at the old window end")
	}
	engine.Advance(600 * time.Millisecond)
	if dev.State() != api.PlayerStopped {
		t.Error("player should stop at the new window end")
	}
}

func TestEngineCountsLostCompletions(t *testing.T) {
	engine, _, dev := newRig(t, constantAsset(10, 0.5))
	for i := 0; i < 70; i++ {
		if err := dev.Start(engine.Now(), 0, 0); err != nil {
			t.Fatalf("Start #%d: %v", i, err)
		}
		engine.Advance(20 * time.Millisecond)
	}
	if got := len(engine.Events()); got != 64 {
		t.Errorf("queued %d completions, want 64", got)
	}
	if got := engine.LostEvents(); got != 6 {
		t.Errorf("LostEvents() = %d, want 6", got)
	}
}
