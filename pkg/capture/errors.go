package capture

import "errors"

// ErrDeviceUnavailable indicates that no input audio device could be found.
// Fatal at startup; no retry is attempted.
var ErrDeviceUnavailable = errors.New("capture: no input device available")

// ErrStreamStart indicates that a device was present but the stream could not
// be configured or started. Fatal at startup; no retry is attempted.
var ErrStreamStart = errors.New("capture: stream start failed")
