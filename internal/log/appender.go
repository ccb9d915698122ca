package log

import (
	"errors"
	"io"
	"os"
)

// MultiWriter is the set of appenders a log line is written to.
// A failing appender does not stop the others; every failure is reported.
type MultiWriter struct {
	writers []io.Writer
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	var errs []error
	for _, w := range m.writers {
		if _, e := w.Write(p); e != nil {
			errs = append(errs, e)
		}
	}
	return len(p), errors.Join(errs...)
}

// Add appends writer. Nil writers are ignored.
func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	if writer != nil {
		m.writers = append(m.writers, writer)
	}
	return m
}

// Close releases appenders that hold resources, such as rotating files.
// The process standard streams are left open.
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		if w == os.Stderr || w == os.Stdout {
			continue
		}
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	m.writers = m.writers[:0]
	return errors.Join(errs...)
}
