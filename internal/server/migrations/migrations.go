// Package migrations embeds the goose SQL migrations for the PostgreSQL schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

// Schema versions that unlock optional capabilities.
const (
	// VersionAudioPath adds notes.audio_path.
	VersionAudioPath int64 = 3
)

// Capabilities are optional schema features, resolved once at startup from
// the applied migration version.
type Capabilities struct {
	// AudioPath reports whether notes.audio_path exists.
	AudioPath bool
}

// CapabilitiesFor returns the capabilities available at schema version v.
func CapabilitiesFor(v int64) Capabilities {
	return Capabilities{AudioPath: v >= VersionAudioPath}
}
