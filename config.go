package main

import (
	"fmt"

	"github.com/kapitanov/chip8emu/internal/hal"
	"github.com/kapitanov/chip8emu/internal/vm"
	"github.com/spf13/pflag"
)

type config struct {
	Verbose bool
	Seed    uint64
	Run     vm.RunConfig
	HAL     hal.Config
}

func bindFlags(fs *pflag.FlagSet) *config {
	cfg := &config{
		Run: vm.RunConfig{TicksPerFrame: vm.DefaultTicksPerFrame},
		HAL: hal.DefaultConfig(),
	}

	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable verbose logging")
	fs.Uint64Var(&cfg.Seed, "seed", 0, "seed for the random number generator (0 picks one)")
	fs.IntVar(&cfg.Run.TicksPerFrame, "ticks-per-frame", cfg.Run.TicksPerFrame, "instructions executed per 60 Hz frame")
	fs.IntVar(&cfg.HAL.FrameRate, "frame-rate", cfg.HAL.FrameRate, "frames (timer ticks) per second")
	fs.IntVar(&cfg.HAL.Scale, "scale", cfg.HAL.Scale, "window pixels per CHIP-8 pixel")
	fs.Uint32Var(&cfg.HAL.Foreground, "fg", cfg.HAL.Foreground, "foreground colour, 0xRRGGBB")
	fs.Uint32Var(&cfg.HAL.Background, "bg", cfg.HAL.Background, "background colour, 0xRRGGBB")
	fs.BoolVar(&cfg.HAL.Mute, "mute", false, "disable the sound timer tone")

	return cfg
}

func (cfg *config) validate() error {
	if cfg.Run.TicksPerFrame <= 0 {
		return fmt.Errorf("ticks per frame must be positive, got %d", cfg.Run.TicksPerFrame)
	}
	if cfg.HAL.FrameRate <= 0 {
		return fmt.Errorf("frame rate must be positive, got %d", cfg.HAL.FrameRate)
	}
	if cfg.HAL.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %d", cfg.HAL.Scale)
	}
	return nil
}

func (cfg *config) machineOptions() []vm.Option {
	if cfg.Seed == 0 {
		return nil
	}
	return []vm.Option{vm.WithSeed(cfg.Seed)}
}
