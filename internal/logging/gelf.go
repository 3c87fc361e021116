package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFHandler returns a JSON slog handler shipping records to a Graylog
// GELF UDP input. The returned closer releases the UDP socket.
func NewGELFHandler(address, level string) (slog.Handler, io.Closer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GELF writer: %w", err)
	}
	w.Facility = "peregrine"
	return slog.NewJSONHandler(w, HandlerOptions(level)), w, nil
}
