package archive

import (
	"testing"
	"time"
)

func TestObjectName(t *testing.T) {
	s := &Store{
		bucket: "finsense-statements",
		now: func() time.Time {
			return time.Date(2025, 4, 30, 18, 0, 0, 0, time.UTC)
		},
	}

	if got := s.ObjectName("April_Statement.pdf"); got != "statements/2025/04/April_Statement.pdf" {
		t.Errorf("ObjectName = %q", got)
	}
	// Path components in the name are stripped.
	if got := s.ObjectName("../../etc/passwd"); got != "statements/2025/04/passwd" {
		t.Errorf("ObjectName = %q", got)
	}
}

func TestSplitURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{uri: "gs://bucket/statements/2025/04/april.pdf", wantBucket: "bucket", wantObject: "statements/2025/04/april.pdf"},
		{uri: "gs://bucket", wantErr: true},
		{uri: "gs://bucket/", wantErr: true},
		{uri: "https://bucket/april.pdf", wantErr: true},
	}

	for _, tt := range tests {
		bucket, object, err := splitURI(tt.uri)
		if tt.wantErr {
			if err == nil {
				t.Errorf("splitURI(%q) error = nil, want error", tt.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitURI(%q) error = %v", tt.uri, err)
			continue
		}
		if bucket != tt.wantBucket || object != tt.wantObject {
			t.Errorf("splitURI(%q) = %q, %q, want %q, %q", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
		}
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("gs://bucket/statements/2025/04/april.pdf"); got != "april.pdf" {
		t.Errorf("Filename = %q, want april.pdf", got)
	}
	if got := Filename("gs://bucket"); got != "bucket" {
		t.Errorf("Filename = %q, want bucket", got)
	}
}

func TestIsURI(t *testing.T) {
	if !IsURI("gs://bucket/file.pdf") {
		t.Error("IsURI(gs://...) = false")
	}
	if IsURI("./statements/april.pdf") {
		t.Error("IsURI(local path) = true")
	}
}
