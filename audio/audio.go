// Package audio abstracts the capture backend so the rest of the app
// only sees devices, streams and PCM callbacks.
package audio

// DataCallback receives signed 16-bit little-endian mono PCM.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32 // 0 lets the backend pick
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	SampleRate() uint32
	DeviceName() string
}
