package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "wayfind.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := openTest(t)

	sess, err := s.CreateSession("buy a mouse on amazon")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "running", sess.Status)

	require.NoError(t, s.SetSessionStatus(sess.ID, "done"))
	sessions, err := s.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "done", sessions[0].Status)
}

func TestActionHistoryCap(t *testing.T) {
	s := openTest(t)
	sess, err := s.CreateSession("goal")
	require.NoError(t, err)

	for i := 0; i < HistoryLimit+5; i++ {
		detail, _ := json.Marshal(map[string]int{"index": i})
		require.NoError(t, s.AppendAction(ActionRecord{
			SessionID: sess.ID,
			Action:    "click",
			Status:    "done",
			Detail:    detail,
		}))
	}

	recs, err := s.Actions(sess.ID)
	require.NoError(t, err)
	require.Len(t, recs, HistoryLimit)

	// Oldest entries were pruned; the newest survive.
	var last struct {
		Index int `json:"index"`
	}
	require.NoError(t, json.Unmarshal(recs[len(recs)-1].Detail, &last))
	assert.Equal(t, HistoryLimit+4, last.Index)
}

func TestMarkLastActionDone(t *testing.T) {
	s := openTest(t)
	sess, err := s.CreateSession("goal")
	require.NoError(t, err)

	require.NoError(t, s.AppendAction(ActionRecord{SessionID: sess.ID, Action: "click", Status: "done"}))
	require.NoError(t, s.AppendAction(ActionRecord{SessionID: sess.ID, Action: "type", Status: "pending"}))
	require.NoError(t, s.MarkLastActionDone(sess.ID))

	recs, err := s.Actions(sess.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "done", recs[1].Status)
}

func TestSessionCap(t *testing.T) {
	s := openTest(t)
	for i := 0; i < SessionLimit+3; i++ {
		_, err := s.CreateSession(fmt.Sprintf("goal %d", i))
		require.NoError(t, err)
	}
	sessions, err := s.ListSessions()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(sessions), SessionLimit)
}
