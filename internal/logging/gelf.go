package logging

import (
	"fmt"
	"io"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGelfWriter opens a GELF/UDP writer for the given Graylog address.
// Each log line written becomes one GELF message.
func NewGelfWriter(address string) (io.Writer, error) {
	writer, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("error connecting to graylog at %s: %w", address, err)
	}
	return writer, nil
}
