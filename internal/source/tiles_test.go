package source_test

import (
	"context"
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/source"
)

func TestHTTPTileFetcher(t *testing.T) {
	t.Parallel()

	t.Run("expands the url template and sets the user agent", func(t *testing.T) {
		t.Parallel()
		var gotPath, gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotUA = r.Header.Get("User-Agent")
			w.Write([]byte("png bytes"))
		}))
		t.Cleanup(srv.Close)

		f := source.NewHTTPTileFetcher(srv.Client(), srv.URL+"/{z}/{x}/{y}.png", "tripcache/1.0")
		data, err := f.FetchTile(context.Background(), 10, 518, 352)
		if err != nil {
			t.Fatalf("FetchTile() error = %v", err)
		}
		if gotPath != "/10/518/352.png" {
			t.Errorf("path = %q, want /10/518/352.png", gotPath)
		}
		if gotUA != "tripcache/1.0" {
			t.Errorf("User-Agent = %q, want tripcache/1.0", gotUA)
		}
		if !bytes.Equal(data, []byte("png bytes")) {
			t.Errorf("data = %q", data)
		}
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		t.Cleanup(srv.Close)

		f := source.NewHTTPTileFetcher(srv.Client(), srv.URL+"/{z}/{x}/{y}.png", "tripcache/1.0")
		if _, err := f.FetchTile(context.Background(), 1, 0, 0); err == nil {
			t.Fatal("expected error for 429 response")
		}
	})
}
