package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonI2SConfig   ReasonCode = "i2s_config"
	ReasonI2SBound    ReasonCode = "i2s_already_bound"
	ReasonI2SBusy     ReasonCode = "i2s_direction_busy"
	ReasonI2SEnable   ReasonCode = "i2s_enable"
	ReasonI2STimeout  ReasonCode = "i2s_timeout"
	ReasonI2SHardware ReasonCode = "i2s_hardware"

	ReasonCaptureInvalidDuration ReasonCode = "capture_invalid_duration"
	ReasonCaptureTimeout         ReasonCode = "capture_timeout"
	ReasonCaptureHardware        ReasonCode = "capture_hardware"
	ReasonCaptureConfig          ReasonCode = "capture_config"

	ReasonPlaybackInvalidBuffer ReasonCode = "playback_invalid_buffer"
	ReasonPlaybackTimeout       ReasonCode = "playback_timeout"
	ReasonPlaybackHardware      ReasonCode = "playback_hardware"
	ReasonPlaybackConfig        ReasonCode = "playback_config"

	ReasonSessionBoot       ReasonCode = "session_boot"
	ReasonSessionTransition ReasonCode = "session_transition"
	ReasonDisplayRender     ReasonCode = "display_render"
	ReasonTriggerWait       ReasonCode = "trigger_wait"

	ReasonTransportDial ReasonCode = "transport_dial"
	ReasonTransportSend ReasonCode = "transport_send"
)
