package config

import (
	"radioboard-go/types"

	"golang.org/x/exp/slices"
)

// Boot profiles built into the firmware, keyed by board variant. Values
// use the ParseOptions syntax.
var embeddedProfiles = map[string]string{
	"radio":       "",
	"radio-pwm1":  "brightness=pwm1",
	"radio-pwm2":  "brightness=pwm2",
	"radio-uart2": "console=uart2",
	"radio-1m":    "region=0x68000000+1M",
}

// ProfileLookup allows overriding how profiles are resolved.
var ProfileLookup = func(name string) (string, bool) {
	s, ok := embeddedProfiles[name]
	return s, ok
}

// Resolve builds validated options from the shipped defaults and a boot
// argument string.
func Resolve(args string) (types.Options, error) {
	opts, err := ParseOptions(args, types.DefaultOptions())
	if err != nil {
		return opts, err
	}
	return opts, Validate(opts)
}

// Profiles lists the embedded profile names in order.
func Profiles() []string {
	names := make([]string, 0, len(embeddedProfiles))
	for n := range embeddedProfiles {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
