// SPDX-License-Identifier: MIT
package audio

import "time"

// Device describes one PortAudio device independently of the C bindings.
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	HighInputLatency  time.Duration
}

// Type reports whether the device captures, plays, or both.
func (d Device) Type() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return "Unavailable"
	}
}

// Duplex reports whether the device can run the engine on its own.
func (d Device) Duplex() bool {
	return d.MaxInputChannels > 0 && d.MaxOutputChannels > 0
}

// HostDevices returns every device PortAudio knows about. PortAudio must
// be initialized.
func HostDevices() ([]Device, error) {
	infos, err := paDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowInputLatency:   info.DefaultLowInputLatency,
			HighInputLatency:  info.DefaultHighInputLatency,
		}
		if info.HostApi != nil {
			devices[i].HostAPI = info.HostApi.Name
		}
	}

	return devices, nil
}
