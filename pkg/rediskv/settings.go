package rediskv

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

// Settings holds the redis configuration shared by the relay and the
// producer. When disabled, both fall back to the in-memory store (single
// process only).
type Settings struct {
	Enabled  bool   `glazed:"redis-enabled" glazed.default:"false" glazed.help:"Back streams with redis instead of in-process memory"`
	Addr     string `glazed:"redis-addr" glazed.default:"localhost:6379" glazed.help:"Redis address host:port"`
	Group    string `glazed:"redis-group" glazed.default:"prepstream" glazed.help:"Consumer group prefix for append notifications"`
	Consumer string `glazed:"redis-consumer" glazed.default:"relay-1" glazed.help:"Consumer name for append notifications"`
}

// NewParameterLayer returns the section definition for redis settings.
func NewParameterLayer() (schema.Section, error) {
	return schema.NewSection(
		"redis",
		"Redis configuration for stream state and append notifications",
		schema.WithFields(
			fields.New("redis-enabled", fields.TypeBool, fields.WithDefault(false)),
			fields.New("redis-addr", fields.TypeString, fields.WithDefault("localhost:6379")),
			fields.New("redis-group", fields.TypeString, fields.WithDefault("prepstream")),
			fields.New("redis-consumer", fields.TypeString, fields.WithDefault("relay-1")),
		),
	)
}
