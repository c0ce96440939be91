//go:build !tinygo

package config

import (
	"os"
	"time"

	"radioboard-go/errcode"
	"radioboard-go/types"

	"gopkg.in/yaml.v3"
)

// File is the host-side board description read by boardsim.
type File struct {
	Boot    string       `yaml:"boot"` // ParseOptions syntax, applied first
	Console string       `yaml:"console"`
	Region  *RegionFile  `yaml:"region"`
	Settle  string       `yaml:"settle"`
	TickHz  uint32       `yaml:"tick_hz"`
	Devices []DeviceFile `yaml:"devices"`
	Sim     SimFile      `yaml:"sim"`
}

type RegionFile struct {
	Base uint32 `yaml:"base"`
	End  uint32 `yaml:"end"`
}

type DeviceFile struct {
	Name string `yaml:"name"`
	Bus  string `yaml:"bus"`
	CS   string `yaml:"cs"`
}

// SimFile shapes the simulated hardware.
type SimFile struct {
	Faults     []FaultFile `yaml:"faults"`
	FailLock   bool        `yaml:"fail_lock"`
	FailClocks []string    `yaml:"fail_clocks"`
	Consoles   []string    `yaml:"consoles"`
	Buses      []string    `yaml:"buses"`
	RealTime   bool        `yaml:"real_time"`
}

type FaultFile struct {
	Addr uint32 `yaml:"addr"`
	Flip uint8  `yaml:"flip"`
}

// Load reads and decodes a board file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &errcode.E{C: errcode.Error, Op: op, Msg: path, Err: err}
	}
	return Parse(raw)
}

func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "yaml", Err: err}
	}
	return &f, nil
}

// Options resolves the file against the shipped defaults and validates
// the result.
func (f *File) Options() (types.Options, error) {
	opts, err := ParseOptions(f.Boot, types.DefaultOptions())
	if err != nil {
		return opts, err
	}
	if f.Console != "" {
		opts.Console = types.ConsoleID(f.Console)
	}
	if f.Region != nil {
		opts.Region = types.MemoryRegion{Base: f.Region.Base, End: f.Region.End}
	}
	if f.Settle != "" {
		d, err := time.ParseDuration(f.Settle)
		if err != nil {
			return opts, invalid("settle: " + f.Settle)
		}
		opts.Settle = d
	}
	if f.TickHz != 0 {
		opts.TickHz = f.TickHz
	}
	if len(f.Devices) > 0 {
		opts.Devices = opts.Devices[:0:0]
		for _, d := range f.Devices {
			cs, ok := types.ParsePin(d.CS)
			if !ok {
				return opts, invalid(d.Name + ": chip-select " + d.CS)
			}
			opts.Devices = append(opts.Devices, types.SerialDeviceBinding{Device: d.Name, Bus: d.Bus, CS: cs})
		}
	}
	return opts, Validate(opts)
}
