package config

import (
	"testing"
)

func FuzzParse(f *testing.F) {
	// Seed with a full config
	f.Add(`
[global]
dataFile = "data.csv"
logLevel = "info"
[server]
port = "8050"
readTimeout = "10s"
[map]
zoom = 9
minMarkerSize = 6
maxMarkerSize = 40
[sliders]
netAddStep = 2
`)

	// Seed with empty config
	f.Add("")

	// Seed with wrong types
	f.Add("[map]\nzoom = \"far\"\n[server]\nport = true\n")

	// Seed with a non-table section
	f.Add("server = 1\n")

	f.Fuzz(func(t *testing.T, content string) {
		config, err := Parse(content)
		if err != nil {
			return
		}
		if config.Global == nil || config.Server == nil || config.Map == nil || config.Sliders == nil {
			t.Fatalf("Parse returned a config with a nil section for %q", content)
		}
		// Validate must never panic on parsed input
		_ = config.Validate()
	})
}
