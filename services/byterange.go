package services

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// streamChunkSize keeps range responses from buffering whole files.
const streamChunkSize = 8 * 1024

var ErrInvalidRange = errors.New("invalid range")

// ByteRange is an inclusive byte window into a file of known size.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range header value for a file of the
// given total size.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseByteRange parses a "bytes=<start>-<end?>" header against the file
// size. Start is required; a missing end means size-1. A start at or past
// the file size, or past the end, is rejected rather than clamped.
func ParseByteRange(header string, size int64) (ByteRange, error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return ByteRange{}, ErrInvalidRange
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return ByteRange{}, ErrInvalidRange
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 {
		return ByteRange{}, ErrInvalidRange
	}

	end := size - 1
	if trimmed := strings.TrimSpace(endStr); trimmed != "" {
		end, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return ByteRange{}, ErrInvalidRange
		}
	}

	if start >= size || start > end {
		return ByteRange{}, ErrInvalidRange
	}
	if end >= size {
		end = size - 1
	}

	return ByteRange{Start: start, End: end}, nil
}

// CopyRange seeks src to the range start and streams it to dst in fixed
// chunks until the range end or stream exhaustion.
func CopyRange(dst io.Writer, src io.ReadSeeker, r ByteRange) (int64, error) {
	if _, err := src.Seek(r.Start, io.SeekStart); err != nil {
		return 0, err
	}

	var written int64
	remaining := r.Length()
	buf := make([]byte, streamChunkSize)
	for remaining > 0 {
		chunk := int64(len(buf))
		if remaining < chunk {
			chunk = remaining
		}
		n, err := src.Read(buf[:chunk])
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			remaining -= int64(wn)
			if werr != nil {
				return written, werr
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
