package config

import (
	"strconv"
	"strings"
	"time"

	"radioboard-go/errcode"
	"radioboard-go/types"

	"github.com/google/shlex"
)

const op = "config"

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: msg}
}

// ParseOptions applies a boot argument string on top of base, e.g.
//
//	console=uart2 brightness=pwm1 settle=50ms device=spi10@spi1:PA4
//
// Shell quoting is honoured. The first device= replaces base's device list;
// later ones append. profile=<name> applies an embedded profile in place.
func ParseOptions(args string, base types.Options) (types.Options, error) {
	words, err := shlex.Split(args)
	if err != nil {
		return base, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "quoting", Err: err}
	}
	opts := base
	opts.Devices = append([]types.SerialDeviceBinding(nil), base.Devices...)
	devicesSet := false

	for _, w := range words {
		key, val, ok := strings.Cut(w, "=")
		if !ok {
			return base, invalid("expected key=value: " + w)
		}
		switch key {
		case "profile":
			p, ok := ProfileLookup(val)
			if !ok {
				return base, invalid("unknown profile " + val)
			}
			if opts, err = ParseOptions(p, opts); err != nil {
				return base, err
			}
		case "console":
			opts.Console = types.ConsoleID(val)
		case "brightness":
			opts.Brightness = types.Brightness(val)
		case "settle":
			d, err := time.ParseDuration(val)
			if err != nil {
				return base, invalid("settle: " + val)
			}
			opts.Settle = d
		case "tick":
			hz, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return base, invalid("tick: " + val)
			}
			opts.TickHz = uint32(hz)
		case "region":
			r, err := ParseRegion(val)
			if err != nil {
				return base, err
			}
			opts.Region = r
		case "bank":
			n, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return base, invalid("bank: " + val)
			}
			opts.Timing.Bank = uint8(n)
		case "device":
			b, err := ParseBinding(val)
			if err != nil {
				return base, err
			}
			if !devicesSet {
				opts.Devices = opts.Devices[:0]
				devicesSet = true
			}
			opts.Devices = append(opts.Devices, b)
		default:
			return base, invalid("unknown key " + key)
		}
	}
	return opts, nil
}

// ParseRegion reads "base:end" or "base+size". Numbers take Go prefixes;
// a size may end in K or M.
func ParseRegion(s string) (types.MemoryRegion, error) {
	if a, b, ok := strings.Cut(s, ":"); ok {
		base, err1 := strconv.ParseUint(a, 0, 32)
		end, err2 := strconv.ParseUint(b, 0, 32)
		if err1 != nil || err2 != nil {
			return types.MemoryRegion{}, invalid("region: " + s)
		}
		return types.MemoryRegion{Base: uint32(base), End: uint32(end)}, nil
	}
	a, b, ok := strings.Cut(s, "+")
	if !ok {
		return types.MemoryRegion{}, invalid("region: " + s)
	}
	base, err := strconv.ParseUint(a, 0, 32)
	if err != nil {
		return types.MemoryRegion{}, invalid("region: " + s)
	}
	mult := uint64(1)
	switch {
	case strings.HasSuffix(b, "K"):
		mult, b = 1<<10, strings.TrimSuffix(b, "K")
	case strings.HasSuffix(b, "M"):
		mult, b = 1<<20, strings.TrimSuffix(b, "M")
	}
	size, err := strconv.ParseUint(b, 0, 32)
	if err != nil || base+size*mult > 1<<32 {
		return types.MemoryRegion{}, invalid("region: " + s)
	}
	return types.MemoryRegion{Base: uint32(base), End: uint32(base + size*mult)}, nil
}

// ParseBinding reads "name@bus:PIN", e.g. "spi10@spi1:PA4".
func ParseBinding(s string) (types.SerialDeviceBinding, error) {
	name, rest, ok := strings.Cut(s, "@")
	if !ok {
		return types.SerialDeviceBinding{}, invalid("device: " + s)
	}
	bus, pin, ok := strings.Cut(rest, ":")
	if !ok {
		return types.SerialDeviceBinding{}, invalid("device: " + s)
	}
	cs, ok := types.ParsePin(pin)
	if !ok {
		return types.SerialDeviceBinding{}, invalid("device pin: " + pin)
	}
	return types.SerialDeviceBinding{Device: name, Bus: bus, CS: cs}, nil
}

// Validate checks options before any hardware is touched. Pin ownership is
// left to the multiplexer.
func Validate(o types.Options) error {
	if !o.Console.Valid() {
		return invalid("console " + string(o.Console))
	}
	if !o.Brightness.Valid() {
		return invalid("brightness " + string(o.Brightness))
	}
	if o.TickHz == 0 {
		return invalid("tick must be positive")
	}
	if o.Settle < 0 {
		return invalid("settle must not be negative")
	}
	if !o.Region.Valid() {
		return invalid("empty memory region")
	}
	w, ok := o.Timing.Window()
	if !ok {
		return invalid("bank out of range")
	}
	if !w.Contains(o.Region.Base) || o.Region.End > w.End {
		return invalid("region outside bank window")
	}
	if o.Timing.DataWidth != 8 && o.Timing.DataWidth != 16 {
		return invalid("data width must be 8 or 16")
	}

	names := map[string]bool{}
	type busPin struct {
		bus string
		cs  types.ChipSelect
	}
	pins := map[busPin]string{}
	for _, d := range o.Devices {
		if d.Device == "" || d.Bus == "" {
			return invalid("device needs a name and a bus")
		}
		if !d.CS.Port.Valid() || d.CS.Pin > 15 {
			return invalid(d.Device + ": bad chip-select")
		}
		if names[d.Device] {
			return &errcode.E{C: errcode.DeviceExists, Op: op, Msg: d.Device}
		}
		names[d.Device] = true
		k := busPin{d.Bus, d.CS}
		if other, dup := pins[k]; dup {
			return &errcode.E{C: errcode.ChipSelectInUse, Op: op, Msg: d.Device + " and " + other + " share " + d.CS.String()}
		}
		pins[k] = d.Device
	}
	return nil
}
