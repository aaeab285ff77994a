package vm

import "errors"

var (
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrStackOverflow     = errors.New("stack overflow")
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrInvalidKey        = errors.New("invalid key")
	ErrProgramTooLarge   = errors.New("program too large")
	ErrFaulted           = errors.New("machine faulted")
)
