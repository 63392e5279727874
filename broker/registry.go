package broker

import (
	"fmt"
	"sort"
)

// Settings carries the process-wide venue credentials from configuration.
// Per-account credentials travel on the intents and balance calls.
type Settings struct {
	AppKey    string
	AppSecret string
	Practice  bool
}

type Factory func(s Settings) (Broker, error)

var registry = make(map[string]Factory)

// Register adds a venue factory under its configuration name. Venue
// packages call this from init, mirroring database/sql driver registration.
func Register(name string, f Factory) {
	registry[name] = f
}

// New builds the venue selected by name, typically the BROKER config value.
func New(name string, s Settings) (Broker, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown broker %q (registered: %v)", name, Names())
	}
	return f(s)
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
