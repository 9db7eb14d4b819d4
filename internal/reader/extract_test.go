package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCleanTextCollapsesWhitespaceAndPreservesParagraphs(t *testing.T) {
	input := "  First   paragraph \n\n Second\tparagraph \r\n\r\nThird line "
	got := CleanText(input)
	want := "First paragraph\n\nSecond paragraph\n\nThird line"
	if got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestSplitParagraphs(t *testing.T) {
	input := "First paragraph\r\n\r\n  Second   paragraph\n\n\n\nThird"
	got := SplitParagraphs(input)
	want := []string{"First paragraph", "Second paragraph", "Third"}
	if len(got) != len(want) {
		t.Fatalf("unexpected paragraph count: got %d want %d (%#v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("paragraph %d mismatch: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestSplitParagraphsEmptyInput(t *testing.T) {
	if got := SplitParagraphs("   \n\n  "); len(got) != 0 {
		t.Fatalf("expected no paragraphs, got %#v", got)
	}
}

func TestTruncateText(t *testing.T) {
	input := "abcdefghijklmnopqrstuvwxyz"

	got, truncated := TruncateText(input, 10)
	if !truncated {
		t.Fatalf("expected truncated=true")
	}
	if got != "abcdefghi…" {
		t.Fatalf("unexpected truncated text: %q", got)
	}

	full, wasTruncated := TruncateText("short", 10)
	if wasTruncated {
		t.Fatalf("expected truncated=false for short text")
	}
	if full != "short" {
		t.Fatalf("unexpected short text: %q", full)
	}
}

func TestFetchTextPlainTextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("  Plain   body \n\n second part  "))
	}))
	defer server.Close()

	got, err := FetchText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch text: %v", err)
	}
	want := "Plain body\n\nsecond part"
	if got != want {
		t.Fatalf("unexpected text\nwant: %q\ngot:  %q", want, got)
	}
}

func TestFetchTextNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	if _, err := FetchText(context.Background(), server.URL); err == nil {
		t.Fatalf("expected an error for status 403")
	}
}
