package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// A handler that lifts the write deadline must outlive the server's write
// timeout; generation requests hold the connection for far longer than any
// sane global timeout.
func TestExtendWriteDeadlineOutlivesWriteTimeout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		extendWriteDeadline(w)
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"status":"done"}`))
	})

	srv := httptest.NewUnstartedServer(handler)
	srv.Config.WriteTimeout = 100 * time.Millisecond
	srv.Start()
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(body) != `{"status":"done"}` {
		t.Fatalf("body = %q", body)
	}
}
