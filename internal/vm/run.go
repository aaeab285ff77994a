package vm

import "log/slog"

// HAL is the host side of the machine: input, display, audio and pacing.
type HAL interface {
	ReadInput(keyDown func(Key), keyUp func(Key)) error
	Draw(gfx Display) error
	SetTone(on bool) error
	WaitForNextFrame() error
}

type RunConfig struct {
	TicksPerFrame int // instructions executed per timer tick
}

const DefaultTicksPerFrame = 10

// Run drives the machine frame by frame until the HAL or the machine
// returns an error.
func (m *Machine) Run(hal HAL, cfg RunConfig) error {
	ticks := cfg.TicksPerFrame
	if ticks <= 0 {
		ticks = DefaultTicksPerFrame
	}

	slog.Debug("run", "ticks_per_frame", ticks)

	tone := false
	for {
		if err := m.runFrame(hal, ticks, &tone); err != nil {
			return err
		}
	}
}

func (m *Machine) runFrame(hal HAL, ticks int, tone *bool) error {
	if err := hal.ReadInput(m.keyDown, m.keyUp); err != nil {
		return err
	}

	for range ticks {
		if err := m.Step(); err != nil {
			return err
		}
	}

	m.TickTimers()

	if on := m.soundTimer > 0; on != *tone {
		if err := hal.SetTone(on); err != nil {
			return err
		}
		*tone = on
	}

	if m.DisplayChanged() {
		if err := hal.Draw(m.gfx); err != nil {
			return err
		}
	}

	return hal.WaitForNextFrame()
}
