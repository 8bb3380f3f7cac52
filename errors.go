// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package foodmatch

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownAgent   = errors.New("unknown agent")
	ErrDuplicateAgent = errors.New("duplicate agent id")
)

// LookupError reports a referenced agent id missing from the registry.
// It always aborts the run: a dangling id means the input is corrupt.
type LookupError struct {
	Phase string
	ID    int
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: agent %d: %v", e.Phase, e.ID, ErrUnknownAgent)
}

func (e *LookupError) Unwrap() error {
	return ErrUnknownAgent
}
