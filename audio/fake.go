package audio

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext is an in-memory backend for tests and headless mode.
// PCM is played back once per Start, followed by silence.
type FakeContext struct {
	Names        []string
	PCM          []byte
	FailRates    []uint32 // sample rates NewCapture rejects
	EnumerateErr error
}

func NewFakeContext(names ...string) *FakeContext {
	return &FakeContext{Names: names}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	if f.EnumerateErr != nil {
		return nil, f.EnumerateErr
	}
	devices := make([]DeviceInfo, len(f.Names))
	for i, name := range f.Names {
		devices[i] = DeviceInfo{ID: fmt.Sprintf("fake-%d", i), Name: name}
	}
	return devices, nil
}

func (f *FakeContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	if slices.Contains(f.FailRates, config.SampleRate) {
		return nil, fmt.Errorf("fake: rate %d unsupported", config.SampleRate)
	}
	rate := config.SampleRate
	if rate == 0 {
		rate = defaultSampleRate
	}
	name := "fake"
	if device != nil {
		name = device.Name
	}
	return &FakeCapture{pcm: f.PCM, sampleRate: rate, name: name}, nil
}

func (f *FakeContext) Close() {}

type FakeCapture struct {
	pcm        []byte
	sampleRate uint32
	name       string

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) SampleRate() uint32 { return f.sampleRate }

func (f *FakeCapture) DeviceName() string { return f.name }

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	stop, done := f.stopCh, f.feedDone
	f.mu.Unlock()

	chunkBytes := fakeFrameSize * fakeBytesPerFrame

	go func() {
		defer close(done)
		pos := 0
		silence := make([]byte, chunkBytes)
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
			}

			f.mu.Lock()
			cb := f.cb
			f.mu.Unlock()
			if cb == nil {
				continue
			}

			if pos < len(f.pcm) {
				end := min(pos+chunkBytes, len(f.pcm))
				chunk := make([]byte, end-pos)
				copy(chunk, f.pcm[pos:end])
				cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
				pos = end
			} else {
				cb(silence, fakeFrameSize)
			}
		}
	}()

	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stop, done := f.stopCh, f.feedDone
	f.mu.Unlock()
	if stop == nil {
		return
	}
	select {
	case <-stop:
	default:
		close(stop)
	}
	<-done
}

func (f *FakeCapture) Close() { f.Stop() }
