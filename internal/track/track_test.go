package track

import (
	"errors"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/audio"
	"github.com/jscyril/multitrack/internal/timeline"
)

const rate = beep.SampleRate(1000)

func silentAsset(d time.Duration) *audio.Asset {
	data := make([][2]float64, rate.N(d))
	return audio.NewAsset("silence", beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}, 1, data)
}

func TestNewTrack(t *testing.T) {
	tr := New("t1", "Drums")
	if tr.Strip == nil {
		t.Fatal("track needs a strip")
	}
	if tr.Sync != api.SyncUnsynced {
		t.Errorf("Sync = %v, want unsynced", tr.Sync)
	}
	if tr.Duration() != 0 || tr.Playing() {
		t.Error("empty track should have no duration and not play")
	}
}

func TestWindowFollowsSelection(t *testing.T) {
	tr := New("t1", "Drums")
	tr.Asset = silentAsset(5 * time.Second)
	tr.Selection = &api.Selection{Start: time.Second, End: 4 * time.Second}

	w := tr.Window()
	if d, ok := w.Duration(); !ok || d != 3*time.Second {
		t.Errorf("window duration = %v, %v, want 3s", d, ok)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	tr := New("t1", "Keys")
	tr.Asset = silentAsset(2 * time.Second)
	tr.Selection = &api.Selection{Start: 500 * time.Millisecond}
	tr.Effects = []api.EffectDescriptor{{ID: "e", Type: api.EffectGain, Params: api.EffectParams{"db": -3}}}

	s := tr.Snapshot(0)
	s.Selection.Start = 0
	s.Effects[0].Params["db"] = 0

	if tr.Selection.Start != 500*time.Millisecond {
		t.Error("snapshot shares the selection")
	}
	if tr.Effects[0].Params["db"] != -3 {
		t.Error("snapshot shares effect params")
	}
	if s.SampleRate != 1000 || s.Channels != 1 || !s.HasAsset {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestPlayheadFollowsClock(t *testing.T) {
	tr := New("t1", "Bass")
	tr.Asset = silentAsset(4 * time.Second)
	tr.Playhead = time.Second
	if got := tr.PlayheadAt(10 * time.Second); got != time.Second {
		t.Errorf("stopped PlayheadAt = %v, want 1s", got)
	}

	tr.Clock = timeline.NewClock(10*time.Second, time.Second, tr.Window(), false)
	if got := tr.PlayheadAt(12 * time.Second); got != 3*time.Second {
		t.Errorf("PlayheadAt = %v, want 3s", got)
	}
	if got := tr.PlayheadAt(20 * time.Second); got != 4*time.Second {
		t.Errorf("PlayheadAt past the end = %v, want clamped to 4s", got)
	}
}

func TestAudible(t *testing.T) {
	tests := []struct {
		name       string
		mute, solo bool
		anySolo    bool
		want       bool
	}{
		{"plain", false, false, false, true},
		{"muted", true, false, false, false},
		{"others soloed", false, false, true, false},
		{"soloed", false, true, true, true},
		{"muted but soloed", true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New("t", "t")
			tr.Mute, tr.Solo = tt.mute, tt.solo
			if got := tr.Audible(tt.anySolo); got != tt.want {
				t.Errorf("Audible(%v) = %v, want %v", tt.anySolo, got, tt.want)
			}
		})
	}
}

func TestPool(t *testing.T) {
	engine := audio.NewEngine(rate)
	asset := silentAsset(time.Second).Retain()

	pool, err := NewPool(engine, asset, 3)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if pool.Len() != 3 || asset.Refs() != 4 {
		t.Fatalf("Len() = %d, Refs() = %d, want 3 and 4", pool.Len(), asset.Refs())
	}

	dev, err := pool.Take()
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if pool.Len() != 3 {
		t.Errorf("pool not replenished: Len() = %d", pool.Len())
	}
	if dev.Asset() != asset {
		t.Error("pooled player bound to the wrong asset")
	}

	dev.Close()
	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if asset.Refs() != 1 {
		t.Errorf("Refs() after closing everything = %d, want 1", asset.Refs())
	}
}

var errNoDevice = errors.New("no device")

// limitedFactory builds at most left players once left is set
type limitedFactory struct {
	*audio.Engine
	left int // negative: unlimited
}

func (f *limitedFactory) NewDevice(asset *audio.Asset) (audio.Device, error) {
	if f.left == 0 {
		return nil, errNoDevice
	}
	if f.left > 0 {
		f.left--
	}
	return f.Engine.NewDevice(asset)
}

func TestPoolTakeAfterPartialRefill(t *testing.T) {
	factory := &limitedFactory{Engine: audio.NewEngine(rate), left: -1}
	pool, err := NewPool(factory, silentAsset(time.Second), 2)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	factory.left = 0
	for i := 0; i < 2; i++ {
		dev, err := pool.Take()
		if dev == nil || !errors.Is(err, errNoDevice) {
			t.Fatalf("Take #%d = %v, %v, want a player and a refill error", i, dev, err)
		}
		dev.Close()
	}
	if pool.Len() != 0 {
		t.Fatalf("Len() = %d, want an empty pool", pool.Len())
	}

	factory.left = 1
	dev, err := pool.Take()
	if dev == nil {
		t.Fatalf("Take returned no player, error %v", err)
	}
	defer dev.Close()
	if !errors.Is(err, errNoDevice) {
		t.Errorf("Take error = %v, want the refill error", err)
	}

	factory.left = 0
	if dev, err := pool.Take(); dev != nil || !errors.Is(err, errNoDevice) {
		t.Errorf("Take from an exhausted pool = %v, %v", dev, err)
	}
}

func TestPoolDefaultSize(t *testing.T) {
	pool, err := NewPool(audio.NewEngine(rate), silentAsset(time.Second), 0)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()
	if pool.Size() != DefaultPoolSize {
		t.Errorf("Size() = %d, want %d", pool.Size(), DefaultPoolSize)
	}
}
