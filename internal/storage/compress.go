package storage

import (
	"context"
	"io"

	"github.com/golang/snappy"
)

// PutCompressed stores r under objectPath as a framed snappy stream and
// returns the number of uncompressed bytes written.
func PutCompressed(ctx context.Context, st ObjectStorage, objectPath string, r io.Reader) (int64, error) {
	pr, pw := io.Pipe()

	type result struct {
		n   int64
		err error
	}
	done := make(chan result, 1)
	go func() {
		zw := snappy.NewBufferedWriter(pw)
		n, err := io.Copy(zw, r)
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
		done <- result{n, err}
	}()

	putErr := st.Put(ctx, objectPath, pr)
	// Unblock the compressor if Put stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	res := <-done
	if putErr != nil {
		return 0, putErr
	}
	if res.err != nil {
		return 0, res.err
	}
	return res.n, nil
}

// GetCompressed opens an object written by PutCompressed and returns a
// reader over the uncompressed bytes.
func GetCompressed(ctx context.Context, st ObjectStorage, objectPath string) (io.ReadCloser, error) {
	rc, err := st.Get(ctx, objectPath)
	if err != nil {
		return nil, err
	}
	return &snappyReadCloser{Reader: snappy.NewReader(rc), body: rc}, nil
}

type snappyReadCloser struct {
	*snappy.Reader
	body io.Closer
}

func (s *snappyReadCloser) Close() error { return s.body.Close() }
