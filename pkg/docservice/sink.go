package docservice

import (
	"bytes"
	"fmt"
	"io"
)

const chunkSize = 8 * 1024

// sink accumulates downloaded chunks in arrival order up to a fixed limit.
type sink struct {
	buf   bytes.Buffer
	limit int64
}

func newSink(limit int64) *sink {
	return &sink{limit: limit}
}

func (s *sink) Write(p []byte) (int, error) {
	if int64(s.buf.Len()+len(p)) > s.limit {
		return 0, fmt.Errorf("%w: limit %d bytes", ErrDownloadTooLarge, s.limit)
	}
	return s.buf.Write(p)
}

// fill copies r into the sink one chunk at a time.
func (s *sink) fill(r io.Reader) error {
	_, err := io.CopyBuffer(s, onlyReader{r}, make([]byte, chunkSize))
	return err
}

func (s *sink) Bytes() []byte {
	return s.buf.Bytes()
}

// onlyReader hides WriterTo so CopyBuffer uses the chunk buffer.
type onlyReader struct {
	io.Reader
}
