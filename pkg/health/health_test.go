package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCheckHealthy(t *testing.T) {
	url := serve(t, http.StatusOK, `{"status":"ok"}`)
	body, err := Check(context.Background(), HTTP{}, url+"/")
	require.NoError(t, err)
	assert.Equal(t, `{"status":"ok"}`, body)
}

func TestCheckUnhealthyBody(t *testing.T) {
	url := serve(t, http.StatusOK, `{"status":"db_error"}`)
	_, err := Check(context.Background(), HTTP{}, url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db_error")
}

func TestCheckServerError(t *testing.T) {
	url := serve(t, http.StatusServiceUnavailable, `{"status":"ok"}`)
	_, err := Check(context.Background(), HTTP{}, url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Check(context.Background(), HTTP{}, url)
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	_, err := Check(context.Background(), Static(`{"status":"ok","db":"up"}`), "http://ignored")
	assert.NoError(t, err)

	_, err = Check(context.Background(), Static(""), "http://ignored")
	assert.Error(t, err)
}
