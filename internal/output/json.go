// Package output writes the machine-readable side of funcqc's dual
// CLI/HTTP surface: every --json subcommand response and every
// funcqc serve response body is wrapped in the same versioned
// Envelope, so a consumer can tell, before decoding Data, whether the
// response shape it's about to parse is one it understands.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// EnvelopeVersion is stamped on every Envelope this package writes.
// Bump it when a subcommand or HTTP route's Data shape changes in a
// way that breaks existing consumers.
const EnvelopeVersion = "1"

// Envelope is the stable wrapper around every funcqc JSON response,
// CLI or HTTP: Data holds the actual payload (a scan result, a Diff,
// a snapshot list, an HTTP error body, ...).
type Envelope struct {
	Version string `json:"version"`
	Data    any    `json:"data"`
}

// JSON writes data, wrapped in an Envelope, as pretty-printed JSON to
// stdout. This is the standard shape for --json output across every
// funcqc subcommand.
func JSON(data any) error {
	return JSONTo(os.Stdout, data)
}

// JSONTo writes data, wrapped in an Envelope, as pretty-printed JSON
// to w. Shared by the CLI's --json flag and funcqc serve's HTTP
// handlers, so both surfaces hand back the same response shape.
func JSONTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Envelope{Version: EnvelopeVersion, Data: data}); err != nil {
		return fmt.Errorf("JSON encoding failed: %w", err)
	}
	return nil
}
