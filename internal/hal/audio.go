package hal

import (
	"fmt"
	"log/slog"

	"github.com/veandco/go-sdl2/sdl"
)

const (
	sampleRate = 44100
	toneFreq   = 440
	// Longest tone a sound timer can request is 255/60 s.
	toneSeconds = 5
	amplitude   = 24
)

type tone struct {
	device sdl.AudioDeviceID
	wave   []byte
	on     bool
}

func openTone() (*tone, error) {
	spec := &sdl.AudioSpec{
		Freq:     sampleRate,
		Format:   sdl.AUDIO_S8,
		Channels: 1,
		Samples:  512,
	}

	device, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open sdl audio device: %w", err)
	}
	slog.Debug("hal: open audio", "device", device)

	return &tone{
		device: device,
		wave:   squareWave(sampleRate, toneFreq, sampleRate*toneSeconds),
	}, nil
}

// squareWave renders n signed 8-bit samples of a square wave.
func squareWave(rate, freq, n int) []byte {
	period := rate / freq
	wave := make([]byte, n)
	for i := range wave {
		v := int8(amplitude)
		if i%period >= period/2 {
			v = -amplitude
		}
		wave[i] = byte(v)
	}
	return wave
}

func (t *tone) set(on bool) error {
	if on == t.on {
		return nil
	}
	t.on = on

	sdl.ClearQueuedAudio(t.device)
	if !on {
		sdl.PauseAudioDevice(t.device, true)
		return nil
	}

	if err := sdl.QueueAudio(t.device, t.wave); err != nil {
		return fmt.Errorf("failed to queue sdl audio: %w", err)
	}
	sdl.PauseAudioDevice(t.device, false)
	return nil
}

func (t *tone) close() {
	sdl.CloseAudioDevice(t.device)
}
