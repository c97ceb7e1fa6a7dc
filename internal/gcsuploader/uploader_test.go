package gcsuploader

import "testing"

func TestExtractFilenameFromGCSURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/folder/administratie.xaf", "administratie.xaf"},
		{"gs://bucket/export.csv", "export.csv"},
		{"gs://bucket-only", "bucket-only"},
	}
	for _, tt := range tests {
		if got := ExtractFilenameFromGCSURI(tt.uri); got != tt.want {
			t.Errorf("ExtractFilenameFromGCSURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestSplitGCSURI(t *testing.T) {
	bucket, object, err := splitGCSURI("gs://my-bucket/uploads/file.csv")
	if err != nil {
		t.Fatalf("splitGCSURI: %v", err)
	}
	if bucket != "my-bucket" || object != "uploads/file.csv" {
		t.Errorf("got %q %q", bucket, object)
	}

	for _, bad := range []string{"http://x/y", "gs://bucket-only", "gs://bucket/"} {
		if _, _, err := splitGCSURI(bad); err == nil {
			t.Errorf("splitGCSURI(%q) accepted invalid URI", bad)
		}
	}
}
