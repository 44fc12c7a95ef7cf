package cli

import (
	"bytes"
	_ "embed"
)

//go:embed default_config.yaml
var embeddedSupervisorDefaults []byte

// EmbeddedDefaultConfiguration returns a private copy of the built-in supervisor defaults (default command,
// log directory, collision policy, output mode, interpreter pinning, forced encoding) and their format.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return bytes.Clone(embeddedSupervisorDefaults), configurationTypeConstant
}
