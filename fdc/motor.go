package fdc

// EmulatedFramesPerSecond is the frame rate FrameEnd is expected to be
// driven at; the SAM Coupe runs its display at 50 fields/second.
const EmulatedFramesPerSecond = 50

// MotorActiveFrames is how long the motor stays switched on after the
// last command: 10 revolutions at 300 rpm, expressed in frame ticks.
const MotorActiveFrames = (10 / (300 / 60)) * EmulatedFramesPerSecond

// MotorState is a down-counter, in frame units, modelling the drive
// motor's inertia: any command refreshes it to MotorActiveFrames, and
// FrameEnd ticks it down once per emulated frame. Non-zero means the
// motor is spinning.
type MotorState struct {
	framesLeft int
}

// Refresh is called whenever a command touches the drive, keeping the
// motor spinning for another MotorActiveFrames ticks.
func (m *MotorState) Refresh() {
	m.framesLeft = MotorActiveFrames
}

// On reports whether the motor is currently spinning.
func (m *MotorState) On() bool {
	return m.framesLeft > 0
}

// FrameEnd decrements the motor timer once per emulated frame, called
// by the host's frame driver regardless of which drive is selected.
func (m *MotorState) FrameEnd() {
	if m.framesLeft > 0 {
		m.framesLeft--
	}
}
