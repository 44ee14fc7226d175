package plugin

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

type nopCloser struct {
	io.Reader
}

func (nopCloser) Close() error { return nil }

func TestParseAll_ParsesEverything(t *testing.T) {
	ctx := context.Background()

	data1 := createTestPlugin(t, testPluginOptions{numRecords: 1})
	data2 := createTestPlugin(t, testPluginOptions{numRecords: 2, author: "Someone"})

	sources := []FileSource{
		{
			Filename: "A.esp",
			Size:     int64(len(data1)),
			Opener: func() (ReadCloser, error) {
				return nopCloser{bytes.NewReader(data1)}, nil
			},
		},
		{
			Filename: "B.esp",
			Size:     int64(len(data2)),
			Opener: func() (ReadCloser, error) {
				return nopCloser{bytes.NewReader(data2)}, nil
			},
		},
	}

	results := ParseAll(ctx, sources)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results["A.esp"].Err != nil {
		t.Errorf("unexpected error for A.esp: %v", results["A.esp"].Err)
	}
	if results["B.esp"].Header == nil || results["B.esp"].Header.Author != "Someone" {
		t.Errorf("expected B.esp header with author, got %+v", results["B.esp"])
	}
}

func TestParseAll_Empty(t *testing.T) {
	results := ParseAll(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected empty result map, got %d entries", len(results))
	}
}

func TestParseAll_OpenerError(t *testing.T) {
	wantErr := errors.New("boom")
	sources := []FileSource{
		{
			Filename: "Bad.esp",
			Opener: func() (ReadCloser, error) {
				return nil, wantErr
			},
		},
	}

	results := ParseAll(context.Background(), sources)
	if !errors.Is(results["Bad.esp"].Err, wantErr) {
		t.Errorf("expected opener error to propagate, got %v", results["Bad.esp"].Err)
	}
}
