package vm

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func exec(t *testing.T, m *Machine, i Instruction) {
	t.Helper()
	assert.NoError(t, m.execute(i))
}

func TestAddWithCarry(t *testing.T) {
	m := New()
	for x := 0; x < 256; x++ {
		for y := 0; y < 256; y++ {
			m.registers[1], m.registers[2] = uint8(x), uint8(y)
			exec(t, m, Instruction{Op: OpAddV, X: 1, Y: 2})

			carry := uint8(0)
			if x+y > 255 {
				carry = 1
			}
			if m.registers[1] != uint8(x+y) || m.registers[0xF] != carry {
				t.Fatalf("add %d+%d: got v1=%d vf=%d", x, y, m.registers[1], m.registers[0xF])
			}
		}
	}
}

func TestSubWithBorrow(t *testing.T) {
	m := New()
	for x := 0; x < 256; x++ {
		for y := 0; y < 256; y++ {
			m.registers[3], m.registers[4] = uint8(x), uint8(y)
			exec(t, m, Instruction{Op: OpSub, X: 3, Y: 4})

			noBorrow := uint8(0)
			if x >= y {
				noBorrow = 1
			}
			if m.registers[3] != uint8(x-y) || m.registers[0xF] != noBorrow {
				t.Fatalf("sub %d-%d: got v3=%d vf=%d", x, y, m.registers[3], m.registers[0xF])
			}

			m.registers[3], m.registers[4] = uint8(x), uint8(y)
			exec(t, m, Instruction{Op: OpRsb, X: 3, Y: 4})

			noBorrow = 0
			if y >= x {
				noBorrow = 1
			}
			if m.registers[3] != uint8(y-x) || m.registers[0xF] != noBorrow {
				t.Fatalf("rsb %d-%d: got v3=%d vf=%d", y, x, m.registers[3], m.registers[0xF])
			}
		}
	}
}

func TestShift(t *testing.T) {
	m := New()
	for v := 0; v < 256; v++ {
		m.registers[5] = uint8(v)
		exec(t, m, Instruction{Op: OpShr, X: 5})
		if m.registers[5] != uint8(v)>>1 || m.registers[0xF] != uint8(v)&1 {
			t.Fatalf("shr 0x%02x: got v5=0x%02x vf=%d", v, m.registers[5], m.registers[0xF])
		}

		m.registers[5] = uint8(v)
		exec(t, m, Instruction{Op: OpShl, X: 5})
		if m.registers[5] != uint8(v)<<1 || m.registers[0xF] != uint8(v)>>7 {
			t.Fatalf("shl 0x%02x: got v5=0x%02x vf=%d", v, m.registers[5], m.registers[0xF])
		}
	}
}

func TestFlagRegisterAsDestination(t *testing.T) {
	m := New()
	m.registers[0xF] = 0xFF
	m.registers[1] = 0x01
	exec(t, m, Instruction{Op: OpAddV, X: 0xF, Y: 1})
	expectReg(t, m, 0xF, 1)

	m.registers[0xF] = 0x02
	exec(t, m, Instruction{Op: OpShr, X: 0xF})
	expectReg(t, m, 0xF, 0)
}

func TestLogic(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		expected uint8
	}{
		{"mov", OpMovV, 0x0F},
		{"or", OpOr, 0x3F},
		{"and", OpAnd, 0x0C},
		{"xor", OpXor, 0x33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.registers[0], m.registers[1] = 0x3C, 0x0F
			m.registers[0xF] = 0x42
			exec(t, m, Instruction{Op: tt.op, X: 0, Y: 1})
			expectReg(t, m, 0, tt.expected)
			expectReg(t, m, 0xF, 0x42)
		})
	}
}

func TestAddImmediateWraps(t *testing.T) {
	m := newMachine(t,
		0x60, 0xFF, // mov v0, 255
		0x70, 0x02, // add v0, 2
	)
	stepMachine(t, m, 2)

	expectReg(t, m, 0, 1)
	expectReg(t, m, 0xF, 0)
}

func TestSkip(t *testing.T) {
	tests := []struct {
		name string
		word uint16
		skip bool
	}{
		{"skeq k taken", 0x3007, true},
		{"skeq k not taken", 0x3008, false},
		{"skne k taken", 0x4008, true},
		{"skne k not taken", 0x4007, false},
		{"skeq v taken", 0x5010, true},
		{"skeq v not taken", 0x5020, false},
		{"skne v taken", 0x9020, true},
		{"skne v not taken", 0x9010, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t, uint8(tt.word>>8), uint8(tt.word))
			m.registers[0], m.registers[1], m.registers[2] = 7, 7, 9
			stepMachine(t, m, 1)

			if tt.skip {
				expectPC(t, m, 0x204)
			} else {
				expectPC(t, m, 0x202)
			}
		})
	}
}

func TestCallReturn(t *testing.T) {
	m := newMachine(t,
		0x22, 0x06, // jsr 0x206
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0xEE, // rts
	)

	stepMachine(t, m, 1)
	expectPC(t, m, 0x206)
	assert.Equal(t, uint8(1), m.SP())
	assert.Equal(t, uint16(0x202), m.stack[0])

	stepMachine(t, m, 1)
	expectPC(t, m, 0x202)
	assert.Equal(t, uint8(0), m.SP())
}

func TestStackOverflow(t *testing.T) {
	m := newMachine(t, 0x22, 0x00) // jsr 0x200
	stepMachine(t, m, StackSize)

	err := m.Step()
	assert.True(t, errors.Is(err, ErrStackOverflow))
	assert.Equal(t, uint8(StackSize), m.SP())
	expectPC(t, m, 0x200)
}

func TestStackUnderflow(t *testing.T) {
	m := newMachine(t, 0x00, 0xEE)

	err := m.Step()
	assert.True(t, errors.Is(err, ErrStackUnderflow))
}

func TestJump(t *testing.T) {
	m := newMachine(t, 0x13, 0x45)
	stepMachine(t, m, 1)
	expectPC(t, m, 0x345)

	m = newMachine(t,
		0x60, 0x04, // mov v0, 4
		0xB3, 0x00, // jmi 0x300
	)
	stepMachine(t, m, 2)
	expectPC(t, m, 0x304)
}

func TestRand(t *testing.T) {
	program := []byte{
		0xC0, 0x00, // rand v0, 0
		0xC1, 0x0F, // rand v1, 15
		0xC2, 0xFF, // rand v2, 255
	}

	m := newMachine(t, program...)
	m.registers[0] = 0xAA
	stepMachine(t, m, 3)

	expectReg(t, m, 0, 0)
	assert.True(t, m.Register(1) <= 0x0F)

	other := newMachine(t, program...)
	stepMachine(t, other, 3)
	assert.Equal(t, m.Register(2), other.Register(2))
}

func litPixels(m *Machine) int {
	n := 0
	for _, on := range m.gfx {
		if on {
			n++
		}
	}
	return n
}

func TestSpriteSelfInverse(t *testing.T) {
	m := newMachine(t,
		0x60, 0x0A, // mov v0, 10
		0x61, 0x03, // mov v1, 3
		0xF0, 0x29, // font v0
		0xD0, 0x15, // sprite v0, v1, 5
		0xD0, 0x15, // sprite v0, v1, 5
	)

	stepMachine(t, m, 4)
	expectReg(t, m, 0xF, 0)
	drawn := m.Display()
	assert.True(t, drawn.Pixel(10, 3)) // top row of "A" is 0xF0
	assert.True(t, drawn.Pixel(13, 3))
	assert.False(t, drawn.Pixel(14, 3))

	stepMachine(t, m, 1)
	expectReg(t, m, 0xF, 1)
	assert.Equal(t, 0, litPixels(m))
}

func TestSpriteWraps(t *testing.T) {
	m := New()
	m.memory[0x300] = 0xFF
	m.index = 0x300
	m.registers[0], m.registers[1] = 60, 31

	exec(t, m, Instruction{Op: OpSprite, X: 0, Y: 1, N: 1})

	for _, x := range []int{60, 61, 62, 63, 0, 1, 2, 3} {
		assert.True(t, m.gfx[31*ScreenWidth+x], "column not lit")
	}
	assert.Equal(t, 8, litPixels(m))

	m.memory[0x301] = 0x80
	exec(t, m, Instruction{Op: OpSprite, X: 0, Y: 1, N: 2})
	// Second row wraps to the top line.
	assert.True(t, m.gfx[60])
	assert.Equal(t, uint8(1), m.registers[0xF])
}

func TestSpriteCollisionOnlyOnClear(t *testing.T) {
	m := New()
	m.memory[0x300] = 0xF0
	m.memory[0x301] = 0x0F
	m.index = 0x300

	exec(t, m, Instruction{Op: OpSprite, N: 1})
	m.index = 0x301
	exec(t, m, Instruction{Op: OpSprite, N: 1})
	expectReg(t, m, 0xF, 0)
	assert.Equal(t, 8, litPixels(m))
}

func TestSpriteOutOfRange(t *testing.T) {
	m := New()
	m.index = MemorySize - 2

	err := m.execute(Instruction{Op: OpSprite, N: 3})
	assert.True(t, errors.Is(err, ErrAddressOutOfRange))
	assert.Equal(t, 0, litPixels(m))
}

func TestCls(t *testing.T) {
	m := New()
	m.gfx[100] = true
	m.drawFlag = false

	exec(t, m, Instruction{Op: OpCls})
	assert.Equal(t, 0, litPixels(m))
	assert.True(t, m.drawFlag)
}

func TestKeySkip(t *testing.T) {
	m := newMachine(t,
		0xE0, 0x9E, // skpr v0
		0x00, 0x00,
		0xE0, 0xA1, // skup v0
	)
	m.registers[0] = 0xB
	assert.NoError(t, m.SetKey(KeyB, true))

	stepMachine(t, m, 1)
	expectPC(t, m, 0x204)

	stepMachine(t, m, 1)
	expectPC(t, m, 0x206)

	m.pc = 0x204
	assert.NoError(t, m.SetKey(KeyB, false))
	stepMachine(t, m, 1)
	expectPC(t, m, 0x208)
}

func TestKeySkipInvalidKey(t *testing.T) {
	m := newMachine(t, 0xE0, 0x9E)
	m.registers[0] = 0x10

	err := m.Step()
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestWaitForKey(t *testing.T) {
	m := newMachine(t, 0xF3, 0x0A) // key v3

	for i := 0; i < 5; i++ {
		stepMachine(t, m, 1)
		expectPC(t, m, 0x200)
		assert.True(t, m.AwaitingKey())
	}

	assert.NoError(t, m.SetKey(Key9, true))
	assert.NoError(t, m.SetKey(Key5, true))
	stepMachine(t, m, 1)

	expectPC(t, m, 0x202)
	expectReg(t, m, 3, 5)
	assert.False(t, m.AwaitingKey())
}

func TestWaitForKeyAlreadyPressed(t *testing.T) {
	m := newMachine(t, 0xF3, 0x0A)
	assert.NoError(t, m.SetKey(KeyE, true))

	stepMachine(t, m, 1)
	expectPC(t, m, 0x202)
	expectReg(t, m, 3, 0xE)
}

func TestTimerRegisters(t *testing.T) {
	m := newMachine(t,
		0x60, 0x30, // mov v0, 48
		0xF0, 0x15, // sdelay v0
		0xF0, 0x18, // ssound v0
		0xF1, 0x07, // gdelay v1
	)
	stepMachine(t, m, 3)
	m.TickTimers()
	stepMachine(t, m, 1)

	expectReg(t, m, 1, 47)
	assert.Equal(t, uint8(47), m.SoundTimer())
}

func TestIndex(t *testing.T) {
	m := New()
	m.registers[2] = 0x0B
	m.registers[0xF] = 0x42

	exec(t, m, Instruction{Op: OpMvi, NNN: 0x123})
	assert.Equal(t, uint16(0x123), m.Index())

	exec(t, m, Instruction{Op: OpFont, X: 2})
	assert.Equal(t, uint16(55), m.Index())

	m.index = 0xFFFF
	exec(t, m, Instruction{Op: OpAdi, X: 2})
	assert.Equal(t, uint16(0x000A), m.Index())
	expectReg(t, m, 0xF, 0x42)
}

func TestBcd(t *testing.T) {
	tests := []struct {
		value  uint8
		digits [3]uint8
	}{
		{157, [3]uint8{1, 5, 7}},
		{0, [3]uint8{0, 0, 0}},
		{255, [3]uint8{2, 5, 5}},
		{9, [3]uint8{0, 0, 9}},
	}

	for _, tt := range tests {
		m := New()
		m.index = 0x400
		m.registers[6] = tt.value
		exec(t, m, Instruction{Op: OpBcd, X: 6})

		for i, d := range tt.digits {
			expectMem(t, m, 0x400+uint16(i), d)
		}
		assert.Equal(t, uint16(0x400), m.Index())
	}

	m := New()
	m.index = MemorySize - 2
	err := m.execute(Instruction{Op: OpBcd})
	assert.True(t, errors.Is(err, ErrAddressOutOfRange))
}

func TestStoreLoadRegisters(t *testing.T) {
	m := New()
	for i := range m.registers {
		m.registers[i] = uint8(0x10 + i)
	}
	m.index = 0x500

	exec(t, m, Instruction{Op: OpStr, X: 3})
	for i := uint16(0); i < 4; i++ {
		expectMem(t, m, 0x500+i, uint8(0x10+i))
	}
	expectMem(t, m, 0x504, 0)
	assert.Equal(t, uint16(0x500), m.Index())

	clear(m.registers[:])
	exec(t, m, Instruction{Op: OpLdr, X: 2})
	expectReg(t, m, 0, 0x10)
	expectReg(t, m, 2, 0x12)
	expectReg(t, m, 3, 0)
	assert.Equal(t, uint16(0x500), m.Index())

	m.index = MemorySize - 1
	err := m.execute(Instruction{Op: OpStr, X: 1})
	assert.True(t, errors.Is(err, ErrAddressOutOfRange))
	err = m.execute(Instruction{Op: OpLdr, X: 1})
	assert.True(t, errors.Is(err, ErrAddressOutOfRange))
}
