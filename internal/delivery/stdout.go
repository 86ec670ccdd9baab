package delivery

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Writer prints the message instead of posting it; used for DRY_RUN.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	if w == nil {
		w = os.Stdout
	}
	return &Writer{w: w}
}

func (s *Writer) Send(_ context.Context, text string) error {
	_, err := fmt.Fprintln(s.w, text)
	return err
}
