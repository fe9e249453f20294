package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const rankingsPage = `<!DOCTYPE html>
<html><head><title>Week 1</title><style>td { color: red }</style></head>
<body>
  <script>var tracking = "Nobody Important";</script>
  <h1>Consensus   Rankings</h1>
  <p>Updated <b>today</b>.</p>
  <table>
    <thead><tr><th>Rank</th><th>Player</th><th>Pos</th></tr></thead>
    <tbody>
      <tr><td>1</td><td>Christian
          McCaffrey</td><td>RB</td></tr>
      <tr><td>2</td><td>CeeDee Lamb</td><td>WR</td></tr>
      <tr><td></td><td></td><td></td></tr>
    </tbody>
  </table>
  <noscript>enable javascript</noscript>
</body></html>`

func TestPageTextRendersTables(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(rankingsPage))
	}))
	defer srv.Close()

	text, err := PageText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("PageText: %v", err)
	}
	want := strings.Join([]string{
		"Consensus Rankings",
		"Updated today.",
		"Rank\tPlayer\tPos",
		"1\tChristian McCaffrey\tRB",
		"2\tCeeDee Lamb\tWR",
	}, "\n")
	if text != want {
		t.Errorf("unexpected text:\n%q\nwant:\n%q", text, want)
	}
	if !strings.HasPrefix(gotUA, "Mozilla/5.0") {
		t.Errorf("expected a browser user agent, got %q", gotUA)
	}
}

func TestPageTextPlain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("  1. Josh Allen QB BUF\n"))
	}))
	defer srv.Close()

	text, err := Fetcher{Client: srv.Client()}.PageText(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if text != "1. Josh Allen QB BUF" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestPageTextStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := PageText(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("expected a 403 error, got %v", err)
	}
}

func TestPageTextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := PageText(ctx, srv.URL); err == nil {
		t.Error("expected error for cancelled context")
	}
}
