package providers

import (
	"io"
	"os"

	"go.uber.org/multierr"
)

// StdioStream joins stdin and stdout into the stream a bare jsonrpc2
// connection reads from and writes to.
type StdioStream struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func NewStdioStream() *StdioStream {
	return &StdioStream{in: os.Stdin, out: os.Stdout}
}

func (s *StdioStream) Read(b []byte) (int, error) {
	return s.in.Read(b)
}

func (s *StdioStream) Write(b []byte) (int, error) {
	return s.out.Write(b)
}

func (s *StdioStream) Close() error {
	return multierr.Append(s.in.Close(), s.out.Close())
}
