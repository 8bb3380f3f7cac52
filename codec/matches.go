// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/someonegg/foodmatch"
)

// WriteMatches writes one id tuple per match: [d, v], [d, r] or [d, v, r].
func WriteMatches(w io.Writer, matches []foodmatch.Match) error {
	enc, err := NewWriter(w)
	if err != nil {
		return err
	}
	for _, m := range matches {
		t := m.Tuple()
		if t == nil {
			_ = enc.Close()
			return fmt.Errorf("match of unknown kind %d", m.Kind)
		}
		if err := enc.Write(t); err != nil {
			_ = enc.Close()
			return err
		}
	}
	return enc.Close()
}

// ReadMatches decodes id tuples. Pairs are told apart through reg.
func ReadMatches(r io.Reader, reg *foodmatch.Registry) ([]foodmatch.Match, error) {
	dec, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var matches []foodmatch.Match
	for {
		raw, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return matches, nil
		}
		if err != nil {
			return nil, err
		}
		var ids []int
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, fmt.Errorf("line %d: %w", dec.Line(), err)
		}
		m, err := reg.ResolveTuple(ids)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", dec.Line(), err)
		}
		matches = append(matches, m)
	}
}
