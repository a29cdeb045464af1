package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anon55555/cinners"
	"github.com/anon55555/cinners/store"
)

func get(t *testing.T, h http.Handler, path string) string {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code, path)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestAdminAPI(t *testing.T) {
	srv, addr := startServer(t)
	h := srv.AdminHandler()

	require.JSONEq(t, `{"status":"ok","sessions":0}`, get(t, h, "/health"))
	require.JSONEq(t, `[]`, get(t, h, "/groups"))

	a := login(t, addr, "alice")
	require.NoError(t, a.Send(cinners.ToSrvCreateGroup{Name: "team"}))
	next(t, a)

	var sessions []store.SessionInfo
	require.NoError(t, json.Unmarshal([]byte(get(t, h, "/sessions")), &sessions))
	require.Len(t, sessions, 1)
	require.Equal(t, "alice", sessions[0].Username)
	require.Equal(t, a.LocalAddr().String(), sessions[0].Addr)

	groups := get(t, h, "/groups")
	require.NotContains(t, groups, key)
	var infos []store.GroupInfo
	require.NoError(t, json.Unmarshal([]byte(groups), &infos))
	require.Len(t, infos, 1)
	require.Equal(t, "team", infos[0].Name)
	require.Equal(t, []string{"alice"}, infos[0].Members)

	metrics := get(t, h, "/metrics")
	require.Contains(t, metrics, "cinners_sessions_active 1")
	require.Contains(t, metrics, `cinners_logins_total{result="ok"} 1`)
	require.Contains(t, metrics, `cinners_commands_total{command="create_group",status="ok"} 1`)
	require.Contains(t, metrics, "cinners_rdt_acks_sent_total")
	require.Contains(t, metrics, "go_goroutines")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
