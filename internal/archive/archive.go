// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package archive stores the artefacts of a run in a local directory or an
// S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/someonegg/foodmatch"
	"github.com/someonegg/foodmatch/codec"
	"github.com/someonegg/foodmatch/simulation"
)

const (
	AgentsName  = "agents.jsonl.zst"
	MatchesName = "matches.jsonl.zst"
	SummaryName = "summary.json"
)

type Sink interface {
	// Put stores body under key and returns where it went.
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Open returns an S3 sink for s3://bucket/prefix targets and a directory
// sink otherwise.
func Open(ctx context.Context, target string) (Sink, error) {
	if rest, ok := strings.CutPrefix(target, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		cfg := S3ConfigFromEnv()
		cfg.Bucket, cfg.Prefix = bucket, prefix
		return NewS3(ctx, cfg)
	}
	if target == "" {
		return nil, fmt.Errorf("empty archive target")
	}
	return Dir(target), nil
}

// Dir is a sink writing files below a local directory.
type Dir string

func (d Dir) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	p := filepath.Join(string(d), filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// Save stores the agents, the matches and the summary of a run under runID.
func Save(ctx context.Context, sink Sink, runID string, agents []foodmatch.Agent, res *simulation.Result) ([]string, error) {
	var agentsBuf, matchesBuf bytes.Buffer
	if err := codec.WriteAgents(&agentsBuf, agents); err != nil {
		return nil, fmt.Errorf("encode agents: %w", err)
	}
	if err := codec.WriteMatches(&matchesBuf, res.Matches); err != nil {
		return nil, fmt.Errorf("encode matches: %w", err)
	}
	summary, err := json.MarshalIndent(res.Summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}

	objects := []struct {
		name        string
		body        []byte
		contentType string
	}{
		{AgentsName, agentsBuf.Bytes(), "application/zstd"},
		{MatchesName, matchesBuf.Bytes(), "application/zstd"},
		{SummaryName, summary, "application/json"},
	}
	var locations []string
	for _, o := range objects {
		loc, err := sink.Put(ctx, path.Join(runID, o.name), o.body, o.contentType)
		if err != nil {
			return locations, fmt.Errorf("put %s: %w", o.name, err)
		}
		locations = append(locations, loc)
	}
	return locations, nil
}
