package config_test

import "github.com/urfave/cli/v3"

func flagNames(flags []cli.Flag) map[string]bool {
	names := make(map[string]bool)
	for _, flag := range flags {
		if n := flag.Names(); len(n) > 0 {
			names[n[0]] = true
		}
	}
	return names
}

// setFlags is a FlagState with a fixed set of explicitly given flags
type setFlags map[string]bool

func (s setFlags) IsSet(name string) bool {
	return s[name]
}
