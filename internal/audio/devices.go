// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"

	"sonify/internal/config"

	"github.com/gordonklaus/portaudio"
)

// PortAudio entry points, replaced in tests.
var (
	paLibInitialize              = portaudio.Initialize
	paLibTerminate               = portaudio.Terminate
	paLibDevicesFunc             = portaudio.Devices
	paLibDefaultInputDeviceFunc  = portaudio.DefaultInputDevice
	paLibDefaultOutputDeviceFunc = portaudio.DefaultOutputDevice
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice retrieves the capture device for deviceID. MinDeviceID (-1)
// selects the system default.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	return lookupDevice(deviceID, "input", paLibDefaultInputDeviceFunc, func(d *portaudio.DeviceInfo) int {
		return d.MaxInputChannels
	})
}

// OutputDevice retrieves the playback device for deviceID. MinDeviceID (-1)
// selects the system default.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	return lookupDevice(deviceID, "output", paLibDefaultOutputDeviceFunc, func(d *portaudio.DeviceInfo) int {
		return d.MaxOutputChannels
	})
}

func lookupDevice(
	deviceID int,
	direction string,
	defaultDevice func() (*portaudio.DeviceInfo, error),
	channels func(*portaudio.DeviceInfo) int,
) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		device, err := defaultDevice()
		if err != nil {
			return nil, fmt.Errorf("no default %s device: %w", direction, err)
		}
		return device, nil
	}

	devices, err := paDevices()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}

	device := devices[deviceID]
	if channels(device) == 0 {
		return nil, fmt.Errorf("device %d (%s) does not support %s", deviceID, device.Name, direction)
	}
	return device, nil
}

// ListDevices writes a human-readable table of every device to w.
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for _, device := range devices {
		fmt.Fprintf(w, "[%d] %s (%s)\n", device.ID, device.Name, device.Type())
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			device.LowInputLatency.Seconds()*1000,
			device.HighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}

	return nil
}

// paDevices returns all PortAudio devices, never a nil slice on success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
