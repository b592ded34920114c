package asset

import (
	"bufio"
	"errors"
	"io"
	"iter"
)

// DefaultChunkSize is the line buffer the responder reads with.
const DefaultChunkSize = 128

// minChunkSize is bufio's smallest buffer.
const minChunkSize = 16

// Chunks yields r as a sequence of line chunks: each chunk ends at a newline
// or after size bytes, whichever comes first. Concatenated, the chunks are
// exactly the bytes of r. A read error other than io.EOF is yielded once as
// the final element.
//
// A chunk is only valid until the next iteration step. The sequence reads r
// as it goes and cannot be restarted.
func Chunks(r io.Reader, size int) iter.Seq2[[]byte, error] {
	if size < minChunkSize {
		size = minChunkSize
	}
	return func(yield func([]byte, error) bool) {
		br := bufio.NewReaderSize(r, size)
		for {
			line, err := br.ReadSlice('\n')
			if len(line) > 0 {
				if !yield(line, nil) {
					return
				}
			}
			switch {
			case err == nil, errors.Is(err, bufio.ErrBufferFull):
				continue
			case errors.Is(err, io.EOF):
				return
			default:
				yield(nil, err)
				return
			}
		}
	}
}
