package vm

import "fmt"

// Op identifies one CHIP-8 instruction variant.
type Op uint8

const (
	OpNop    Op = iota // 0000
	OpCls              // 00E0
	OpRts              // 00EE
	OpJmp              // 1NNN
	OpJsr              // 2NNN
	OpSkeqK            // 3XKK
	OpSkneK            // 4XKK
	OpSkeqV            // 5XY0
	OpMovK             // 6XKK
	OpAddK             // 7XKK
	OpMovV             // 8XY0
	OpOr               // 8XY1
	OpAnd              // 8XY2
	OpXor              // 8XY3
	OpAddV             // 8XY4
	OpSub              // 8XY5
	OpShr              // 8X_6
	OpRsb              // 8XY7
	OpShl              // 8X_E
	OpSkneV            // 9XY0
	OpMvi              // ANNN
	OpJmi              // BNNN
	OpRand             // CXKK
	OpSprite           // DXYN
	OpSkpr             // EX9E
	OpSkup             // EXA1
	OpGdelay           // FX07
	OpKey              // FX0A
	OpSdelay           // FX15
	OpSsound           // FX18
	OpAdi              // FX1E
	OpFont             // FX29
	OpBcd              // FX33
	OpStr              // FX55
	OpLdr              // FX65
)

var opNames = [...]string{
	OpNop:    "nop",
	OpCls:    "cls",
	OpRts:    "rts",
	OpJmp:    "jmp",
	OpJsr:    "jsr",
	OpSkeqK:  "skeq",
	OpSkneK:  "skne",
	OpSkeqV:  "skeq",
	OpMovK:   "mov",
	OpAddK:   "add",
	OpMovV:   "mov",
	OpOr:     "or",
	OpAnd:    "and",
	OpXor:    "xor",
	OpAddV:   "add",
	OpSub:    "sub",
	OpShr:    "shr",
	OpRsb:    "rsb",
	OpShl:    "shl",
	OpSkneV:  "skne",
	OpMvi:    "mvi",
	OpJmi:    "jmi",
	OpRand:   "rand",
	OpSprite: "sprite",
	OpSkpr:   "skpr",
	OpSkup:   "skup",
	OpGdelay: "gdelay",
	OpKey:    "key",
	OpSdelay: "sdelay",
	OpSsound: "ssound",
	OpAdi:    "adi",
	OpFont:   "font",
	OpBcd:    "bcd",
	OpStr:    "str",
	OpLdr:    "ldr",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Instruction is a decoded instruction word. Only the fields the variant
// uses are meaningful.
type Instruction struct {
	Op  Op
	X   uint8  // second nibble
	Y   uint8  // third nibble
	N   uint8  // fourth nibble
	KK  uint8  // low byte
	NNN uint16 // low 12 bits
}

// Decode parses an instruction word into its variant.
func Decode(opcode uint16) (Instruction, error) {
	instr := Instruction{
		X:   uint8((opcode & 0x0F00) >> 8),
		Y:   uint8((opcode & 0x00F0) >> 4),
		N:   uint8(opcode & 0x000F),
		KK:  uint8(opcode & 0x00FF),
		NNN: opcode & 0x0FFF,
	}

	op, ok := decodeOp(opcode)
	if !ok {
		return Instruction{}, fmt.Errorf("%w 0x%04X", ErrUnknownOpcode, opcode)
	}

	instr.Op = op
	return instr, nil
}

func decodeOp(opcode uint16) (Op, bool) {
	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode {
		case 0x0000:
			// Zeroed memory
			return OpNop, true

		case 0x00E0:
			// 00E0 - Clear screen
			return OpCls, true

		case 0x00EE:
			// 00EE - Return from subroutine
			return OpRts, true
		}

	case 0x1000:
		// 1NNN - Jumps to address NNN
		return OpJmp, true

	case 0x2000:
		// 2NNN - Calls subroutine at NNN
		return OpJsr, true

	case 0x3000:
		// 3XNN - Skips the next instruction if VX equals NN
		return OpSkeqK, true

	case 0x4000:
		// 4XNN - Skips the next instruction if VX does not equal NN
		return OpSkneK, true

	case 0x5000:
		// 5XY0 - Skips the next instruction if VX equals VY
		if opcode&0x000F == 0 {
			return OpSkeqV, true
		}

	case 0x6000:
		// 6XNN - Sets VX to NN
		return OpMovK, true

	case 0x7000:
		// 7XNN - Adds NN to VX
		return OpAddK, true

	case 0x8000:
		switch opcode & 0x000F {
		case 0x0000:
			return OpMovV, true
		case 0x0001:
			return OpOr, true
		case 0x0002:
			return OpAnd, true
		case 0x0003:
			return OpXor, true
		case 0x0004:
			return OpAddV, true
		case 0x0005:
			return OpSub, true
		case 0x0006:
			// Y is ignored, VX is shifted in place
			return OpShr, true
		case 0x0007:
			return OpRsb, true
		case 0x000E:
			return OpShl, true
		}

	case 0x9000:
		// 9XY0 - Skips the next instruction if VX doesn't equal VY
		if opcode&0x000F == 0 {
			return OpSkneV, true
		}

	case 0xA000:
		// ANNN - Sets I to the address NNN
		return OpMvi, true

	case 0xB000:
		// BNNN - Jumps to the address NNN plus V0
		return OpJmi, true

	case 0xC000:
		// CXNN - Sets VX to a random number, masked by NN
		return OpRand, true

	case 0xD000:
		// DXYN - Draws an N-row sprite from memory at I at (VX, VY)
		return OpSprite, true

	case 0xE000:
		switch opcode & 0x00FF {
		case 0x009E:
			return OpSkpr, true
		case 0x00A1:
			return OpSkup, true
		}

	case 0xF000:
		switch opcode & 0x00FF {
		case 0x0007:
			return OpGdelay, true
		case 0x000A:
			return OpKey, true
		case 0x0015:
			return OpSdelay, true
		case 0x0018:
			return OpSsound, true
		case 0x001E:
			return OpAdi, true
		case 0x0029:
			return OpFont, true
		case 0x0033:
			return OpBcd, true
		case 0x0055:
			return OpStr, true
		case 0x0065:
			return OpLdr, true
		}
	}

	return 0, false
}

// String renders the instruction in assembler syntax.
func (i Instruction) String() string {
	switch i.Op {
	case OpNop, OpCls, OpRts:
		return i.Op.String()

	case OpJmp, OpJsr, OpMvi, OpJmi:
		return fmt.Sprintf("%s 0x%04x", i.Op, i.NNN)

	case OpSkeqK, OpSkneK, OpMovK, OpAddK, OpRand:
		return fmt.Sprintf("%s v%x, %d", i.Op, i.X, i.KK)

	case OpSkeqV, OpSkneV, OpMovV, OpOr, OpAnd, OpXor, OpAddV, OpSub, OpRsb:
		return fmt.Sprintf("%s v%x, v%x", i.Op, i.X, i.Y)

	case OpSprite:
		return fmt.Sprintf("%s v%x, v%x, %d", i.Op, i.X, i.Y, i.N)

	case OpStr, OpLdr:
		return fmt.Sprintf("%s v0-v%x", i.Op, i.X)

	default:
		return fmt.Sprintf("%s v%x", i.Op, i.X)
	}
}
