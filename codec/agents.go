// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/someonegg/foodmatch"
)

//go:embed agent.schema.json
var agentSchemaJSON string

var agentSchema = jsonschema.MustCompileString("agent.schema.json", agentSchemaJSON)

// ValidateAgent checks one encoded agent record.
func ValidateAgent(raw []byte) error {
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return err
	}
	if err := agentSchema.Validate(v); err != nil {
		return err
	}
	return nil
}

func WriteAgents(w io.Writer, agents []foodmatch.Agent) error {
	enc, err := NewWriter(w)
	if err != nil {
		return err
	}
	for i := range agents {
		if err := enc.Write(&agents[i]); err != nil {
			_ = enc.Close()
			return fmt.Errorf("agent %d: %w", agents[i].ID, err)
		}
	}
	return enc.Close()
}

// ReadAgents decodes and validates agent records.
func ReadAgents(r io.Reader) ([]foodmatch.Agent, error) {
	dec, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var agents []foodmatch.Agent
	for {
		raw, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return agents, nil
		}
		if err != nil {
			return nil, err
		}
		if err := ValidateAgent(raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", dec.Line(), err)
		}
		var a foodmatch.Agent
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("line %d: %w", dec.Line(), err)
		}
		if a.EndTime < a.StartTime {
			return nil, fmt.Errorf("line %d: agent %d ends at %v before it starts at %v",
				dec.Line(), a.ID, a.EndTime, a.StartTime)
		}
		agents = append(agents, a)
	}
}
