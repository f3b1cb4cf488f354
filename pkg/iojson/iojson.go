// iojson are utilities for writing JSON output from a command line
// interface perspective
package iojson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Write marshals obj with indentation and prints it to stdout followed
// by a newline. Marshaling failures are reported on stderr.
func Write(obj any) error {
	return WriteWith(os.Stdout, os.Stderr, obj)
}

// WriteWith is Write with explicit output and error writers.
func WriteWith(w io.Writer, ew io.Writer, obj any) error {
	bits, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		_, werr := fmt.Fprintf(ew, "{\"message\":%q}\n", "error marshaling in iojson.WriteWith: "+err.Error())
		return werr
	}

	_, err = fmt.Fprintln(w, string(bits))
	return err
}

// WriteLine marshals obj compactly and writes it as a single JSON line.
// Useful for LLM- and script-friendly `--json` command output.
func WriteLine(w io.Writer, obj any) error {
	bits, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal json line: %w", err)
	}

	_, err = fmt.Fprintln(w, string(bits))
	return err
}
