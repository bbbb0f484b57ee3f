package state

import (
	"path/filepath"
	"testing"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/callbacktypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_StateAndData(t *testing.T) {
	sm := NewManager()

	assert.Equal(t, StateNone, sm.GetState(1))
	_, ok := sm.GetData(1, KeySupervisorID)
	assert.False(t, ok)

	sm.SetData(1, KeySupervisorID, "abc")
	assert.Equal(t, StateNone, sm.GetState(1))

	sm.SetState(1, StateRequestDate)
	value, ok := sm.GetData(1, KeySupervisorID)
	require.True(t, ok)
	assert.Equal(t, "abc", value)
	assert.Equal(t, StateRequestDate, sm.GetState(1))

	data := sm.GetAllData(1)
	data[KeySupervisorID] = "mutated"
	value, _ = sm.GetData(1, KeySupervisorID)
	assert.Equal(t, "abc", value)

	sm.DeleteData(1, KeySupervisorID)
	_, ok = sm.GetData(1, KeySupervisorID)
	assert.False(t, ok)

	sm.SetState(1, StateNone)
	assert.Zero(t, sm.Len())
	assert.Nil(t, sm.GetAllData(1))
}

func TestManager_SnapshotRestore(t *testing.T) {
	sm := NewManager()
	sm.SetState(10, StateRequestConfirm)
	sm.SetData(10, KeySupervisorID, "sup")
	sm.SetData(10, KeyRequestedAt, "2025-03-11T10:00:00Z")
	sm.SetData(10, KeyDuration, "60")
	sm.SetState(20, StateCancelReason)

	snapshot, err := sm.Snapshot()
	require.NoError(t, err)

	restored := NewManager()
	restored.SetState(99, StateRequestDate)
	require.NoError(t, restored.Restore(snapshot))

	assert.Equal(t, 2, restored.Len())
	assert.Equal(t, StateNone, restored.GetState(99))
	assert.Equal(t, StateRequestConfirm, restored.GetState(10))
	assert.Equal(t, map[string]string{
		KeySupervisorID: "sup",
		KeyRequestedAt:  "2025-03-11T10:00:00Z",
		KeyDuration:     "60",
	}, restored.GetAllData(10))

	restored.SetData(20, KeyNotes, "late")
	value, _ := restored.GetData(20, KeyNotes)
	assert.Equal(t, "late", value)
}

func TestManager_RestoreDropsEmptyStates(t *testing.T) {
	sm := NewManager()
	require.NoError(t, sm.Restore([]byte(`{"1":{"state":"","data":{"a":"b"}},"2":null,"3":{"state":"request_date"}}`)))

	assert.Equal(t, 1, sm.Len())
	assert.Equal(t, StateRequestDate, sm.GetState(3))

	sm.SetData(3, KeyDuration, "30")
	value, ok := sm.GetData(3, KeyDuration)
	require.True(t, ok)
	assert.Equal(t, "30", value)

	require.Error(t, sm.Restore([]byte(`not json`)))
	assert.Equal(t, 1, sm.Len())
}

func TestManager_SaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	empty := NewManager()
	require.NoError(t, empty.LoadFile(path))
	assert.Zero(t, empty.Len())

	sm := NewManager()
	sm.SetState(7, StateSummaryText)
	sm.SetData(7, KeySessionID, "s-1")
	require.NoError(t, sm.SaveFile(path))

	loaded := NewManager()
	require.NoError(t, loaded.LoadFile(path))
	assert.Equal(t, StateSummaryText, loaded.GetState(7))
	value, _ := loaded.GetData(7, KeySessionID)
	assert.Equal(t, "s-1", value)
}

func TestAdapter_ImplementsStateManager(t *testing.T) {
	var sm callbacktypes.StateManager = NewAdapter(NewManager())

	sm.SetState(5, callbacktypes.UserState(StateRequestDuration))
	sm.SetData(5, KeyDuration, "45")

	assert.Equal(t, callbacktypes.UserState(StateRequestDuration), sm.GetState(5))
	assert.Equal(t, map[string]string{KeyDuration: "45"}, sm.GetAllData(5))

	sm.ClearState(5)
	assert.Equal(t, callbacktypes.UserState(""), sm.GetState(5))
}

func TestAdapter_GetAllDataReturnsCopy(t *testing.T) {
	adapter := NewAdapter(NewManager())

	adapter.SetData(7, KeyDuration, "30")
	data := adapter.GetAllData(7)
	data[KeyDuration] = "90"

	value, ok := adapter.GetData(7, KeyDuration)
	assert.True(t, ok)
	assert.Equal(t, "30", value)
}
