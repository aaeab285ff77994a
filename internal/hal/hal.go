package hal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"github.com/kapitanov/chip8emu/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

type Config struct {
	Scale      int    // window pixels per CHIP-8 pixel
	FrameRate  int    // frames per second
	Foreground uint32 // ARGB
	Background uint32 // ARGB
	Mute       bool
}

func DefaultConfig() Config {
	return Config{
		Scale:      16,
		FrameRate:  60,
		Foreground: 0xbea700,
		Background: 0x000000,
	}
}

type HAL struct {
	cfg Config

	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	backBuffer      []uint32
	backBufferPitch int

	audio *tone

	frameDuration time.Duration
	nextFrame     time.Time
}

var (
	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")
)

// Compile-time check to ensure HAL implements vm.HAL.
var _ vm.HAL = (*HAL)(nil)

func New(cfg Config) (*HAL, error) {
	if cfg.Scale <= 0 || cfg.FrameRate <= 0 {
		return nil, fmt.Errorf("invalid hal config: scale=%d frame rate=%d", cfg.Scale, cfg.FrameRate)
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	width, height := int32(vm.ScreenWidth*cfg.Scale), int32(vm.ScreenHeight*cfg.Scale)

	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, width, height, sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl window: %w", err)
	}
	slog.Debug("hal: create window", "width", width, "height", height)

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	err = renderer.SetLogicalSize(width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl texture: %w", err)
	}
	slog.Debug("hal: create texture")

	h := &HAL{
		cfg:             cfg,
		window:          window,
		renderer:        renderer,
		texture:         texture,
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: int(vm.ScreenWidth) * int(unsafe.Sizeof(uint32(0))),
		frameDuration:   time.Second / time.Duration(cfg.FrameRate),
		nextFrame:       time.Now(),
	}

	if !cfg.Mute {
		h.audio, err = openTone()
		if err != nil {
			slog.Warn("hal: audio unavailable", "err", err)
		}
	}

	return h, nil
}

func (hal *HAL) Shutdown() {
	if hal.audio != nil {
		hal.audio.close()
	}

	if err := hal.texture.Destroy(); err != nil {
		slog.Error("failed to destroy sdl texture", "err", err)
	}

	if err := hal.renderer.Destroy(); err != nil {
		slog.Error("failed to destroy sdl renderer", "err", err)
	}

	if err := hal.window.Destroy(); err != nil {
		slog.Error("failed to destroy sdl window", "err", err)
	}

	sdl.Quit()
}

func (hal *HAL) ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e.GetType() {
		case sdl.QUIT:
			slog.Debug("hal: exit requested")
			return ErrQuit

		case sdl.KEYDOWN:
			ke := e.(*sdl.KeyboardEvent)
			if ke.Repeat != 0 {
				continue
			}
			if err := processKeyDown(ke, keyDown); err != nil {
				return err
			}

		case sdl.KEYUP:
			processKeyUp(e.(*sdl.KeyboardEvent), keyUp)
		}
	}

	return nil
}

func processKeyDown(e *sdl.KeyboardEvent, callback func(vm.Key)) error {
	switch e.Keysym.Scancode {
	case sdl.SCANCODE_BACKSPACE:
		slog.Debug("hal: reboot requested")
		return ErrReboot
	case sdl.SCANCODE_ESCAPE:
		slog.Debug("hal: exit requested")
		return ErrQuit
	}

	key, ok := keyMap(e.Keysym.Scancode)
	if ok {
		callback(key)
	}

	return nil
}

func processKeyUp(e *sdl.KeyboardEvent, callback func(vm.Key)) {
	key, ok := keyMap(e.Keysym.Scancode)
	if ok {
		callback(key)
	}
}

func keyMap(scancode sdl.Scancode) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	switch scancode {
	case sdl.SCANCODE_X:
		return vm.Key0, true
	case sdl.SCANCODE_1:
		return vm.Key1, true
	case sdl.SCANCODE_2:
		return vm.Key2, true
	case sdl.SCANCODE_3:
		return vm.Key3, true
	case sdl.SCANCODE_Q:
		return vm.Key4, true
	case sdl.SCANCODE_W:
		return vm.Key5, true
	case sdl.SCANCODE_E:
		return vm.Key6, true
	case sdl.SCANCODE_A:
		return vm.Key7, true
	case sdl.SCANCODE_S:
		return vm.Key8, true
	case sdl.SCANCODE_D:
		return vm.Key9, true
	case sdl.SCANCODE_Z:
		return vm.KeyA, true
	case sdl.SCANCODE_C:
		return vm.KeyB, true
	case sdl.SCANCODE_4:
		return vm.KeyC, true
	case sdl.SCANCODE_R:
		return vm.KeyD, true
	case sdl.SCANCODE_F:
		return vm.KeyE, true
	case sdl.SCANCODE_V:
		return vm.KeyF, true
	default:
		return 0, false
	}
}

// rasterize converts the bitmap into ARGB pixels.
func rasterize(dst []uint32, gfx *vm.Display, fg, bg uint32) {
	for i, on := range gfx {
		if on {
			dst[i] = fg
		} else {
			dst[i] = bg
		}
	}
}

func (hal *HAL) Draw(gfx vm.Display) error {
	rasterize(hal.backBuffer, &gfx, hal.cfg.Foreground, hal.cfg.Background)

	backBufferPtr := unsafe.Pointer(&hal.backBuffer[0])
	if err := hal.texture.Update(nil, backBufferPtr, hal.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := hal.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := hal.renderer.Copy(hal.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	hal.renderer.Present()
	return nil
}

func (hal *HAL) SetTone(on bool) error {
	if hal.audio == nil {
		return nil
	}
	return hal.audio.set(on)
}

func (hal *HAL) WaitForNextFrame() error {
	hal.nextFrame = nextDeadline(hal.nextFrame, time.Now(), hal.frameDuration)
	time.Sleep(time.Until(hal.nextFrame))
	return nil
}

// nextDeadline advances the frame deadline by one period. A host that fell
// behind by more than a frame resynchronizes instead of bursting.
func nextDeadline(prev, now time.Time, period time.Duration) time.Time {
	next := prev.Add(period)
	if next.Before(now) {
		return now
	}
	return next
}
