// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codec reads and writes agent requests and matches as
// zstd-compressed JSON lines.
package codec

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/klauspost/compress/zstd"
)

const maxLine = 8 * 1024 * 1024

// Writer encodes one JSON value per line.
type Writer struct {
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewWriter(w io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	return &Writer{enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

func (w *Writer) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes the stream. It does not close the underlying writer.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		_ = w.enc.Close()
		return err
	}
	return w.enc.Close()
}

// Reader yields the non-empty lines of a stream.
type Reader struct {
	dec  *zstd.Decoder
	sc   *bufio.Scanner
	line int
}

func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	return &Reader{dec: dec, sc: sc}, nil
}

// Next returns the next line, or io.EOF at the end of the stream.
func (r *Reader) Next() ([]byte, error) {
	for r.sc.Scan() {
		r.line++
		if b := r.sc.Bytes(); len(b) > 0 {
			return b, nil
		}
	}
	if err := r.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Line is the number of the line last returned by Next.
func (r *Reader) Line() int {
	return r.line
}

func (r *Reader) Close() {
	r.dec.Close()
}
