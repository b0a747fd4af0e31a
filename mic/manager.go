// Package mic owns the microphone: enumeration, ranking, exclusive
// acquisition and sample-rate fallback when opening a stream.
package mic

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aliftffd/speech-recognition-withOLLAMA/audio"
)

// ErrBusy means the microphone is already held by an in-flight
// acquisition. Callers surface it instead of waiting.
var ErrBusy = errors.New("microphone busy")

// ErrNoDevices means enumeration returned nothing to select from.
var ErrNoDevices = errors.New("no capture devices available")

// DeviceError is terminal for one acquisition attempt: every
// sample-rate candidate failed to open.
type DeviceError struct {
	Index int
	Err   error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %d unusable: %v", e.Index, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Device is one enumerated capture device. The list is rebuilt on
// every Enumerate call; entries are never mutated.
type Device struct {
	Index    int
	Name     string
	IsAnalog bool
	IsHDMI   bool
}

// ShortName trims the card prefix some backends prepend ("HDA Intel: ALC294 Analog").
func (d Device) ShortName() string {
	if i := strings.LastIndex(d.Name, ":"); i >= 0 {
		return strings.TrimSpace(d.Name[i+1:])
	}
	return d.Name
}

var analogPatterns = []string{"alc294", "analog"}

func classify(name string) (isAnalog, isHDMI bool) {
	lower := strings.ToLower(name)
	for _, p := range analogPatterns {
		if strings.Contains(lower, p) {
			isAnalog = true
			break
		}
	}
	isHDMI = strings.Contains(lower, "hdmi")
	return
}

// Candidate sample rates tried in order when opening a stream; 0 lets
// the backend pick.
var sampleRateCandidates = []uint32{44100, 48000, 16000, 0}

type Manager struct {
	ctx audio.Context
	mu  sync.Mutex // exclusive microphone lock, TryLock only
}

func NewManager(ctx audio.Context) *Manager {
	return &Manager{ctx: ctx}
}

// Enumerate rebuilds the device list. It never fails fatally; backend
// errors yield an empty list.
func (m *Manager) Enumerate() []Device {
	infos, err := m.ctx.Devices()
	if err != nil {
		return nil
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		analog, hdmi := classify(info.Name)
		devices[i] = Device{Index: i, Name: info.Name, IsAnalog: analog, IsHDMI: hdmi}
	}
	return devices
}

// SelectBest ranks devices: HDMI outputs are excluded unless also
// analog, analog devices win, otherwise the first non-excluded device.
// When everything is excluded the first device of the raw list is
// returned rather than failing. The second return is false only for an
// empty list.
func SelectBest(devices []Device) (int, bool) {
	if len(devices) == 0 {
		return 0, false
	}
	first := -1
	for _, d := range devices {
		if d.IsHDMI && !d.IsAnalog {
			continue
		}
		if d.IsAnalog {
			return d.Index, true
		}
		if first < 0 {
			first = d.Index
		}
	}
	if first >= 0 {
		return first, true
	}
	return devices[0].Index, true
}

// Cycle returns the next device index, wrapping past the end. A
// single-device list cycles to itself.
func Cycle(devices []Device, current int) int {
	if len(devices) == 0 {
		return current
	}
	pos := 0
	for i, d := range devices {
		if d.Index == current {
			pos = i
			break
		}
	}
	return devices[(pos+1)%len(devices)].Index
}

// Handle represents exclusive ownership of the microphone. Release is
// idempotent.
type Handle struct {
	m    *Manager
	once sync.Once
}

func (h *Handle) Release() {
	h.once.Do(func() { h.m.mu.Unlock() })
}

// Acquire takes the exclusive microphone lock, failing fast with
// ErrBusy when another holder is active.
func (m *Manager) Acquire() (*Handle, error) {
	if !m.mu.TryLock() {
		return nil, ErrBusy
	}
	return &Handle{m: m}, nil
}

// InitializeWithFallback opens a capture stream on the device at index,
// trying each sample-rate candidate in order. Exhausting all candidates
// is a DeviceError for this acquisition.
func (m *Manager) InitializeWithFallback(index int) (audio.CaptureDevice, error) {
	infos, err := m.ctx.Devices()
	if err != nil {
		return nil, &DeviceError{Index: index, Err: err}
	}
	if len(infos) == 0 {
		return nil, &DeviceError{Index: index, Err: ErrNoDevices}
	}
	var info *audio.DeviceInfo
	if index >= 0 && index < len(infos) {
		info = &infos[index]
	}

	var lastErr error
	for _, rate := range sampleRateCandidates {
		stream, err := m.ctx.NewCapture(info, audio.CaptureConfig{
			SampleRate: rate,
			Channels:   1,
		})
		if err == nil {
			return stream, nil
		}
		lastErr = err
	}
	return nil, &DeviceError{Index: index, Err: lastErr}
}
