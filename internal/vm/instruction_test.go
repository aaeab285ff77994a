package vm

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		word uint16
		op   Op
		text string
	}{
		{0x0000, OpNop, "nop"},
		{0x00E0, OpCls, "cls"},
		{0x00EE, OpRts, "rts"},
		{0x1234, OpJmp, "jmp 0x0234"},
		{0x2ABC, OpJsr, "jsr 0x0abc"},
		{0x3A42, OpSkeqK, "skeq va, 66"},
		{0x4B01, OpSkneK, "skne vb, 1"},
		{0x5120, OpSkeqV, "skeq v1, v2"},
		{0x6CFF, OpMovK, "mov vc, 255"},
		{0x7D10, OpAddK, "add vd, 16"},
		{0x8120, OpMovV, "mov v1, v2"},
		{0x8121, OpOr, "or v1, v2"},
		{0x8122, OpAnd, "and v1, v2"},
		{0x8123, OpXor, "xor v1, v2"},
		{0x8124, OpAddV, "add v1, v2"},
		{0x8125, OpSub, "sub v1, v2"},
		{0x8106, OpShr, "shr v1"},
		{0x8156, OpShr, "shr v1"},
		{0x8127, OpRsb, "rsb v1, v2"},
		{0x810E, OpShl, "shl v1"},
		{0x9120, OpSkneV, "skne v1, v2"},
		{0xA123, OpMvi, "mvi 0x0123"},
		{0xB300, OpJmi, "jmi 0x0300"},
		{0xC50F, OpRand, "rand v5, 15"},
		{0xD125, OpSprite, "sprite v1, v2, 5"},
		{0xE49E, OpSkpr, "skpr v4"},
		{0xE4A1, OpSkup, "skup v4"},
		{0xF107, OpGdelay, "gdelay v1"},
		{0xF20A, OpKey, "key v2"},
		{0xF315, OpSdelay, "sdelay v3"},
		{0xF418, OpSsound, "ssound v4"},
		{0xF51E, OpAdi, "adi v5"},
		{0xF629, OpFont, "font v6"},
		{0xF733, OpBcd, "bcd v7"},
		{0xF855, OpStr, "str v0-v8"},
		{0xF965, OpLdr, "ldr v0-v9"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			instr, err := Decode(tt.word)
			assert.NoError(t, err)
			assert.Equal(t, tt.op, instr.Op)
			assert.Equal(t, tt.text, instr.String())
		})
	}
}

func TestDecodeFields(t *testing.T) {
	instr, err := Decode(0xD7A3)
	assert.NoError(t, err)

	assert.Equal(t, uint8(0x7), instr.X)
	assert.Equal(t, uint8(0xA), instr.Y)
	assert.Equal(t, uint8(0x3), instr.N)
	assert.Equal(t, uint8(0xA3), instr.KK)
	assert.Equal(t, uint16(0x7A3), instr.NNN)
}

func TestDecodeUnknown(t *testing.T) {
	words := []uint16{
		0x0123, // machine code routine
		0x00E1,
		0x5121,
		0x8128,
		0x812F,
		0x9121,
		0xE19F,
		0xF000,
		0xF1FF,
	}

	for _, word := range words {
		_, err := Decode(word)
		if !errors.Is(err, ErrUnknownOpcode) {
			t.Errorf("0x%04X: expected unknown opcode, got %v", word, err)
		}
	}
}

func TestHandlersCoverAllOps(t *testing.T) {
	assert.Equal(t, len(opNames), len(handlers))
	for op, h := range handlers {
		if h == nil {
			t.Errorf("no handler for %s", Op(op))
		}
	}
}
