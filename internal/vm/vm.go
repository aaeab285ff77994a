package vm

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	ProgramStart    = uint16(0x200)
	MaxProgramSize  = MemorySize - int(ProgramStart)
	InstructionSize = 2

	flagRegister = 0x0F
)

// Display is the 64x32 monochrome bitmap, row-major.
type Display [ScreenWidth * ScreenHeight]bool

// Pixel reports whether the pixel at (x, y) is on. Coordinates wrap.
func (d *Display) Pixel(x, y int) bool {
	return d[screenAddr(uint16(x), uint16(y))]
}

type Machine struct {
	memory    [MemorySize]uint8    // Memory (4k)
	registers [RegisterCount]uint8 // V registers (V0-VF)

	stack [StackSize]uint16 // Stack
	sp    uint8             // Stack pointer

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer uint8 // Delay timer
	soundTimer uint8 // Sound timer

	gfx      Display        // Graphics buffer
	keypad   [KeyCount]bool // Keypad
	drawFlag bool           // Indicates a draw has occurred

	awaitingKey bool   // FX0A is stalled waiting for a key
	awaitReg    uint8  // Register FX0A stores the key into
	opAddr      uint16 // Address of the instruction being executed

	fault error

	seed uint64
	rand *rand.Rand
}

type Option func(*Machine)

// WithSeed makes the random number source deterministic.
func WithSeed(seed uint64) Option {
	return func(m *Machine) {
		m.seed = seed
	}
}

func New(opts ...Option) *Machine {
	m := &Machine{
		seed: rand.Uint64(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.Reset()
	return m
}

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// Reset restores the just-constructed state: memory cleared with the font
// re-copied, registers, stack, timers, keypad and display zeroed, PC at 0x200.
func (m *Machine) Reset() {
	m.pc = ProgramStart
	m.index = 0
	m.sp = 0
	m.opAddr = 0

	// Clear the display
	clear(m.gfx[:])
	m.drawFlag = true

	// Clear the stack, keypad, and V registers
	clear(m.stack[:])
	clear(m.keypad[:])
	clear(m.registers[:])
	m.awaitingKey = false
	m.awaitReg = 0

	// Clear memory
	clear(m.memory[:])

	// Load font set into memory
	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", FontStart), "n", len(chip8Font))
	copy(m.memory[FontStart:], chip8Font[:])

	// Reset timers
	m.delayTimer = 0
	m.soundTimer = 0

	m.fault = nil
	m.rand = rand.New(rand.NewPCG(m.seed, m.seed^0x9e3779b97f4a7c15))
}

// Load copies a raw CHIP-8 program into memory at 0x200.
func (m *Machine) Load(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, at most %d fit", ErrProgramTooLarge, len(program), MaxProgramSize)
	}

	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(program))
	copy(m.memory[ProgramStart:], program)
	return nil
}

// SetKey records the pressed state of a keypad key.
func (m *Machine) SetKey(key Key, pressed bool) error {
	if int(key) >= KeyCount {
		return fmt.Errorf("%w: 0x%02x", ErrInvalidKey, uint8(key))
	}

	m.keypad[key] = pressed
	return nil
}

func (m *Machine) keyDown(key Key) {
	if err := m.SetKey(key, true); err != nil {
		slog.Warn("ignore key", "err", err)
	}
}

func (m *Machine) keyUp(key Key) {
	if err := m.SetKey(key, false); err != nil {
		slog.Warn("ignore key", "err", err)
	}
}

// TickTimers decrements the delay and sound timers once each, stopping at zero.
func (m *Machine) TickTimers() {
	if m.delayTimer > 0 {
		m.delayTimer--
	}

	if m.soundTimer > 0 {
		m.soundTimer--
	}
}

// Step executes exactly one instruction. A returned error faults the machine
// and every later Step returns ErrFaulted until Reset.
func (m *Machine) Step() error {
	if m.fault != nil {
		return fmt.Errorf("%w: %w", ErrFaulted, m.fault)
	}

	if m.awaitingKey {
		m.pollKey()
		return nil
	}

	opcode, err := m.fetchOpcode()
	if err == nil {
		if err = m.executeOpcode(opcode); err != nil {
			// Leave PC on the faulting instruction.
			m.pc = m.opAddr
		}
	}

	if err != nil {
		m.fault = err
		return err
	}

	return nil
}

func (m *Machine) fetchOpcode() (uint16, error) {
	if int(m.pc)+1 >= MemorySize {
		return 0, fmt.Errorf("%w: fetch at pc=0x%04x", ErrAddressOutOfRange, m.pc)
	}

	hi := m.memory[m.pc]
	lo := m.memory[m.pc+1]

	m.opAddr = m.pc
	m.pc += InstructionSize

	opcode := uint16(hi)<<8 | uint16(lo) // Op code is two bytes
	return opcode, nil
}

func (m *Machine) PC() uint16 {
	return m.pc
}

func (m *Machine) Index() uint16 {
	return m.index
}

func (m *Machine) SP() uint8 {
	return m.sp
}

func (m *Machine) Register(i int) uint8 {
	return m.registers[i&0x0F]
}

func (m *Machine) Memory(addr uint16) uint8 {
	return m.memory[int(addr)%MemorySize]
}

func (m *Machine) DelayTimer() uint8 {
	return m.delayTimer
}

// SoundTimer returns the sound timer; a tone plays while it is non-zero.
func (m *Machine) SoundTimer() uint8 {
	return m.soundTimer
}

// Display returns a copy of the bitmap.
func (m *Machine) Display() Display {
	return m.gfx
}

// DisplayChanged reports whether the bitmap changed since the last call.
func (m *Machine) DisplayChanged() bool {
	changed := m.drawFlag
	m.drawFlag = false
	return changed
}

func (m *Machine) AwaitingKey() bool {
	return m.awaitingKey
}

func (m *Machine) Fault() error {
	return m.fault
}
