package s3

import (
	"strings"
	"testing"
)

func TestKeyFromURL(t *testing.T) {
	store := NewWithClient(nil, Config{Bucket: "health-docs", KeyPrefix: "documents", BaseURL: "https://cdn.example.com/"})

	key, ok := store.keyFromURL("https://cdn.example.com/documents/abc-report.pdf")
	if !ok || key != "documents/abc-report.pdf" {
		t.Fatalf("unexpected key %q ok=%v", key, ok)
	}

	if _, ok := store.keyFromURL("https://other.example.com/documents/abc.pdf"); ok {
		t.Fatal("expected foreign URL to be rejected")
	}
}

func TestObjectKeyCarriesPrefixAndFileName(t *testing.T) {
	store := NewWithClient(nil, Config{Bucket: "health-docs", KeyPrefix: "documents/"})

	key := store.objectKey("report.pdf")
	if !strings.HasPrefix(key, "documents/") || !strings.HasSuffix(key, "-report.pdf") {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestDefaultBaseURLUsesBucket(t *testing.T) {
	store := NewWithClient(nil, Config{Bucket: "health-docs"})
	if store.cfg.BaseURL != "s3://health-docs" {
		t.Fatalf("unexpected base url %q", store.cfg.BaseURL)
	}
}
