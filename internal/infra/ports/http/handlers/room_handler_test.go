package handlers

import (
	"net/http"
	"testing"
)

func TestRoomHandlerErrors(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/api/v1/rooms/missing", http.StatusNotFound},
		{"/api/v1/rooms/missing/reveals", http.StatusOK},
		{"/api/v1/rooms/missing/reveals?limit=abc", http.StatusBadRequest},
		{"/api/v1/rooms/missing/reveals?limit=-1", http.StatusBadRequest},
	}

	for _, tc := range cases {
		resp, err := http.Get(srv.URL + tc.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tc.path, err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != tc.want {
			t.Errorf("GET %s = %d, want %d", tc.path, resp.StatusCode, tc.want)
		}
	}
}
