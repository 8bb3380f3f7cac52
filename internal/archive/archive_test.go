// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/someonegg/foodmatch"
	"github.com/someonegg/foodmatch/codec"
	"github.com/someonegg/foodmatch/simulation"
)

// fakeS3 keeps PUT bodies by request path.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	empty := io.NopCloser(bytes.NewReader(nil))
	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: http.StatusNotImplemented, Body: empty, Header: http.Header{}}, nil
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[req.URL.Path] = body
	f.types[req.URL.Path] = req.Header.Get("Content-Type")
	f.mu.Unlock()
	return &http.Response{StatusCode: http.StatusOK, Body: empty, Header: http.Header{"ETag": {"\"etag\""}}}, nil
}

func testRun() ([]foodmatch.Agent, *simulation.Result) {
	agents := []foodmatch.Agent{
		{ID: 1, Role: foodmatch.Donor, Food: foodmatch.Perishable, Amount: 1, StartTime: 1, EndTime: 2},
		{ID: 2, Role: foodmatch.Receiver, Food: foodmatch.Perishable, Amount: 1, StartTime: 3, EndTime: 4},
	}
	res := &simulation.Result{
		Matches: []foodmatch.Match{foodmatch.NewDirect(1, 2)},
		Summary: simulation.Summary{PerishableDonors: 1, PerishableReceivers: 1, PerishableMatched: 1},
	}
	return agents, res
}

func TestSave_Dir(t *testing.T) {
	dir := t.TempDir()
	sink, err := Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	agents, res := testRun()
	locs, err := Save(context.Background(), sink, "run-1", agents, res)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(locs) != 3 {
		t.Fatalf("Expected 3 artefacts, got %v", locs)
	}

	f, err := os.Open(filepath.Join(dir, "run-1", AgentsName))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := codec.ReadAgents(f)
	if err != nil {
		t.Fatalf("ReadAgents: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].Role != foodmatch.Receiver {
		t.Errorf("Unexpected agents %+v", got)
	}

	mf, err := os.Open(filepath.Join(dir, "run-1", MatchesName))
	if err != nil {
		t.Fatal(err)
	}
	defer mf.Close()
	reg, err := foodmatch.NewRegistry(agents)
	if err != nil {
		t.Fatal(err)
	}
	matches, err := codec.ReadMatches(mf, reg)
	if err != nil {
		t.Fatalf("ReadMatches: %v", err)
	}
	if !reflect.DeepEqual(matches, res.Matches) {
		t.Errorf("Expected %v, got %v", res.Matches, matches)
	}
}

func TestSave_S3(t *testing.T) {
	fake := newFakeS3()
	sink, err := NewS3(context.Background(), S3Config{
		Bucket:          "runs",
		Prefix:          "/nightly/",
		Endpoint:        "https://mock.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: fake},
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}

	agents, res := testRun()
	locs, err := Save(context.Background(), sink, "run-2", agents, res)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if want := "s3://runs/nightly/run-2/" + SummaryName; locs[2] != want {
		t.Errorf("Expected %s, got %s", want, locs[2])
	}

	summary, ok := fake.objects["/runs/nightly/run-2/"+SummaryName]
	if !ok {
		t.Fatalf("Summary not uploaded, have %v", keys(fake.objects))
	}
	var s simulation.Summary
	if err := json.Unmarshal(summary, &s); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if s != res.Summary {
		t.Errorf("Expected %+v, got %+v", res.Summary, s)
	}
	if ct := fake.types["/runs/nightly/run-2/"+MatchesName]; ct != "application/zstd" {
		t.Errorf("Unexpected content type %q", ct)
	}
}

func TestOpen(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Error("Expected error for empty target")
	}
	if _, err := Open(context.Background(), "s3://"); err == nil {
		t.Error("Expected error for missing bucket")
	}
	sink, err := Open(context.Background(), "out/archive")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if d, ok := sink.(Dir); !ok || !strings.HasSuffix(string(d), "archive") {
		t.Errorf("Expected directory sink, got %#v", sink)
	}
}

func keys(m map[string][]byte) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}
