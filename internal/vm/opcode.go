package vm

import (
	"context"
	"fmt"
	"log/slog"
)

func (m *Machine) executeOpcode(opcode uint16) error {
	instr, err := Decode(opcode)
	if err != nil {
		return fmt.Errorf("pc=0x%04x: %w", m.opAddr, err)
	}

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", m.opAddr),
			"opcode", fmt.Sprintf("0x%04x", opcode),
			"instr", instr.String(),
		)
	}

	if err := m.execute(instr); err != nil {
		return fmt.Errorf("pc=0x%04x %s: %w", m.opAddr, instr, err)
	}
	return nil
}

// execute applies a decoded instruction. PC already points past it.
func (m *Machine) execute(i Instruction) error {
	return handlers[i.Op](m, i)
}

type handler func(m *Machine, i Instruction) error

var handlers = [...]handler{
	OpNop:    func(*Machine, Instruction) error { return nil },
	OpCls:    cls,
	OpRts:    rts,
	OpJmp:    jmp,
	OpJsr:    jsr,
	OpSkeqK:  skeqK,
	OpSkneK:  skneK,
	OpSkeqV:  skeqV,
	OpMovK:   movK,
	OpAddK:   addK,
	OpMovV:   movV,
	OpOr:     or,
	OpAnd:    and,
	OpXor:    xor,
	OpAddV:   addV,
	OpSub:    sub,
	OpShr:    shr,
	OpRsb:    rsb,
	OpShl:    shl,
	OpSkneV:  skneV,
	OpMvi:    mvi,
	OpJmi:    jmi,
	OpRand:   random,
	OpSprite: sprite,
	OpSkpr:   skpr,
	OpSkup:   skup,
	OpGdelay: gdelay,
	OpKey:    key,
	OpSdelay: sdelay,
	OpSsound: ssound,
	OpAdi:    adi,
	OpFont:   font,
	OpBcd:    bcd,
	OpStr:    str,
	OpLdr:    ldr,
}

func (m *Machine) skipIf(cond bool) {
	if cond {
		m.pc += InstructionSize
	}
}

// checkRange fails if n bytes starting at addr do not fit in memory.
func checkRange(addr uint16, n int) error {
	if int(addr)+n > MemorySize {
		return fmt.Errorf("%w: 0x%04x+%d", ErrAddressOutOfRange, addr, n)
	}
	return nil
}

// 00E0	cls	Clear the screen
func cls(m *Machine, _ Instruction) error {
	clear(m.gfx[:])
	m.drawFlag = true
	return nil
}

// 00EE	rts	return from subroutine call
func rts(m *Machine, _ Instruction) error {
	if m.sp == 0 {
		return ErrStackUnderflow
	}
	m.sp--
	m.pc = m.stack[m.sp]
	return nil
}

// 1xxx	jmp xxx	jump to address xxx
func jmp(m *Machine, i Instruction) error {
	m.pc = i.NNN
	return nil
}

// 2xxx	jsr xxx	jump to subroutine at address xxx
func jsr(m *Machine, i Instruction) error {
	if int(m.sp) >= StackSize {
		return ErrStackOverflow
	}
	m.stack[m.sp] = m.pc
	m.sp++
	m.pc = i.NNN
	return nil
}

// 3rxx	skeq vr,xx	skip if register r = constant
func skeqK(m *Machine, i Instruction) error {
	m.skipIf(m.registers[i.X] == i.KK)
	return nil
}

// 4rxx	skne vr,xx	skip if register r <> constant
func skneK(m *Machine, i Instruction) error {
	m.skipIf(m.registers[i.X] != i.KK)
	return nil
}

// 5ry0	skeq vr,vy	skip if register r = register y
func skeqV(m *Machine, i Instruction) error {
	m.skipIf(m.registers[i.X] == m.registers[i.Y])
	return nil
}

// 6rxx	mov vr,xx	move constant to register r
func movK(m *Machine, i Instruction) error {
	m.registers[i.X] = i.KK
	return nil
}

// 7rxx	add vr,xx	add constant to register r	No carry generated
func addK(m *Machine, i Instruction) error {
	m.registers[i.X] += i.KK
	return nil
}

// 8ry0	mov vr,vy	move register vy into vr
func movV(m *Machine, i Instruction) error {
	m.registers[i.X] = m.registers[i.Y]
	return nil
}

// 8ry1	or rx,ry	or register vy into register vx
func or(m *Machine, i Instruction) error {
	m.registers[i.X] |= m.registers[i.Y]
	return nil
}

// 8ry2	and rx,ry	and register vy into register vx
func and(m *Machine, i Instruction) error {
	m.registers[i.X] &= m.registers[i.Y]
	return nil
}

// 8ry3	xor rx,ry	exclusive or register ry into register rx
func xor(m *Machine, i Instruction) error {
	m.registers[i.X] ^= m.registers[i.Y]
	return nil
}

// The flag is written last, so VF as a destination ends up holding the flag.
func (m *Machine) setWithFlag(x uint8, value uint8, flag bool) {
	m.registers[x] = value
	if flag {
		m.registers[flagRegister] = 1
	} else {
		m.registers[flagRegister] = 0
	}
}

// 8ry4	add vr,vy	add register vy to vr,carry in vf
func addV(m *Machine, i Instruction) error {
	sum := uint16(m.registers[i.X]) + uint16(m.registers[i.Y])
	m.setWithFlag(i.X, uint8(sum), sum > 0xFF)
	return nil
}

// 8ry5	sub vr,vy	subtract register vy from vr, vf set to 1 if no borrow
func sub(m *Machine, i Instruction) error {
	x, y := m.registers[i.X], m.registers[i.Y]
	m.setWithFlag(i.X, x-y, x >= y)
	return nil
}

// 8r06	shr vr	shift register vr right, bit 0 goes into register vf
func shr(m *Machine, i Instruction) error {
	x := m.registers[i.X]
	m.setWithFlag(i.X, x>>1, x&0x01 != 0)
	return nil
}

// 8ry7	rsb vr,vy	subtract register vr from register vy, result in vr, vf set to 1 if no borrow
func rsb(m *Machine, i Instruction) error {
	x, y := m.registers[i.X], m.registers[i.Y]
	m.setWithFlag(i.X, y-x, y >= x)
	return nil
}

// 8r0e	shl vr	shift register vr left, bit 7 goes into register vf
func shl(m *Machine, i Instruction) error {
	x := m.registers[i.X]
	m.setWithFlag(i.X, x<<1, x&0x80 != 0)
	return nil
}

// 9ry0	skne rx,ry	skip if register rx <> register ry
func skneV(m *Machine, i Instruction) error {
	m.skipIf(m.registers[i.X] != m.registers[i.Y])
	return nil
}

// axxx	mvi xxx	Load index register with constant xxx
func mvi(m *Machine, i Instruction) error {
	m.index = i.NNN
	return nil
}

// bxxx	jmi xxx	Jump to address xxx+register v0
func jmi(m *Machine, i Instruction) error {
	m.pc = i.NNN + uint16(m.registers[0])
	return nil
}

// crxx	rand vr,xx	vr = random byte masked by xx
func random(m *Machine, i Instruction) error {
	m.registers[i.X] = uint8(m.rand.Uint32()) & i.KK
	return nil
}

// sprite rx,ry,s	Draw sprite at screen location rx,ry height s
// Sprites stored in memory at location in index register, 8 bits wide.
// Wraps around the screen.
// If when drawn, clears a pixel, vf is set to 1 otherwise it is zero.
// All drawing is xor drawing (e.g. it toggles the screen pixels)
func sprite(m *Machine, i Instruction) error {
	height := int(i.N)
	if err := checkRange(m.index, height); err != nil {
		return err
	}

	xLocation, yLocation := uint16(m.registers[i.X]), uint16(m.registers[i.Y])

	collision := false
	for y := uint16(0); y < uint16(height); y++ {
		pixel := m.memory[m.index+y]

		const width = uint16(8)
		for x := uint16(0); x < width; x++ {
			mask := uint8(0x80 >> x)
			if pixel&mask == 0 {
				continue
			}

			addr := screenAddr(x+xLocation, y+yLocation)
			if m.gfx[addr] {
				collision = true
			}
			m.gfx[addr] = !m.gfx[addr]
		}
	}

	if collision {
		m.registers[flagRegister] = 1
	} else {
		m.registers[flagRegister] = 0
	}
	m.drawFlag = true
	return nil
}

func keyOf(m *Machine, i Instruction) (Key, error) {
	k := m.registers[i.X]
	if int(k) >= KeyCount {
		return 0, fmt.Errorf("%w: v%x=0x%02x", ErrInvalidKey, i.X, k)
	}
	return Key(k), nil
}

// ek9e	skpr k	skip if key (register rk) pressed
func skpr(m *Machine, i Instruction) error {
	k, err := keyOf(m, i)
	if err != nil {
		return err
	}
	m.skipIf(m.keypad[k])
	return nil
}

// eka1	skup k	skip if key (register rk) not pressed
func skup(m *Machine, i Instruction) error {
	k, err := keyOf(m, i)
	if err != nil {
		return err
	}
	m.skipIf(!m.keypad[k])
	return nil
}

// fr07	gdelay vr	get delay timer into vr
func gdelay(m *Machine, i Instruction) error {
	m.registers[i.X] = m.delayTimer
	return nil
}

// fr0a	key vr	wait for keypress, put key in register vr
func key(m *Machine, i Instruction) error {
	m.awaitingKey = true
	m.awaitReg = i.X
	// Park on this instruction until a key arrives.
	m.pc = m.opAddr
	m.pollKey()
	return nil
}

// pollKey completes a pending FX0A with the lowest pressed key, if any.
func (m *Machine) pollKey() {
	for k, pressed := range m.keypad {
		if pressed {
			m.registers[m.awaitReg] = uint8(k)
			m.awaitingKey = false
			m.pc = m.opAddr + InstructionSize
			return
		}
	}
}

// fr15	sdelay vr	set the delay timer to vr
func sdelay(m *Machine, i Instruction) error {
	m.delayTimer = m.registers[i.X]
	return nil
}

// fr18	ssound vr	set the sound timer to vr
func ssound(m *Machine, i Instruction) error {
	m.soundTimer = m.registers[i.X]
	return nil
}

// fr1e	adi vr	add register vr to the index register
func adi(m *Machine, i Instruction) error {
	m.index += uint16(m.registers[i.X])
	return nil
}

// fr29	font vr	point I to the sprite for hexadecimal character in vr	Sprite is 5 bytes high
func font(m *Machine, i Instruction) error {
	m.index = FontStart + uint16(m.registers[i.X])*GlyphHeight
	return nil
}

// fr33	bcd vr	store the bcd representation of register vr at location I,I+1,I+2	Doesn't change I
func bcd(m *Machine, i Instruction) error {
	if err := checkRange(m.index, 3); err != nil {
		return err
	}

	x := m.registers[i.X]
	m.memory[m.index] = x / 100
	m.memory[m.index+1] = (x / 10) % 10
	m.memory[m.index+2] = x % 10
	return nil
}

// fr55	str v0-vr	store registers v0-vr at location I onwards	Doesn't change I
func str(m *Machine, i Instruction) error {
	n := int(i.X) + 1
	if err := checkRange(m.index, n); err != nil {
		return err
	}

	copy(m.memory[m.index:int(m.index)+n], m.registers[:n])
	return nil
}

// fx65	ldr v0-vr	load registers v0-vr from location I onwards	Doesn't change I
func ldr(m *Machine, i Instruction) error {
	n := int(i.X) + 1
	if err := checkRange(m.index, n); err != nil {
		return err
	}

	copy(m.registers[:n], m.memory[m.index:int(m.index)+n])
	return nil
}

func screenAddr(x, y uint16) uint16 {
	x %= ScreenWidth
	y %= ScreenHeight

	return ScreenWidth*y + x
}
