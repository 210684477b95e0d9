package state

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjahr/smartalarmserver/internal/tpi"
)

func keypadUpdate(t *testing.T, payload string) tpi.KeypadUpdate {
	t.Helper()
	u, err := tpi.DecodeKeypadUpdate(payload)
	require.NoError(t, err)
	return u
}

func TestApplyKeypadUpdate(t *testing.T) {
	s := New(10, 100, map[int]string{1: "House"})

	status := s.ApplyKeypadUpdate(keypadUpdate(t, "1,5302,08,8,M MOTION@REAR DOOR    "))

	assert.Equal(t, "M MOTION@REAR DOOR", status.Alpha)
	assert.Equal(t, "one long beep", status.Beep)
	assert.True(t, status.AlarmInMemory)
	assert.True(t, status.Trouble)
	assert.False(t, status.Armed)

	snap := s.Snapshot()
	require.Contains(t, snap.Partitions, 1)
	assert.Equal(t, "House", snap.Partitions[1].Name)
	assert.Equal(t, "M MOTION@REAR DOOR", snap.Partitions[1].Status.Alpha)
}

func TestKeypadArmedDerivation(t *testing.T) {
	s := New(10, 100, nil)

	// No partition status seen yet: armed comes from the icon flags.
	status := s.ApplyKeypadUpdate(keypadUpdate(t, "1,0004,00,0,ARMED ***AWAY***"))
	assert.True(t, status.Armed)

	status = s.ApplyKeypadUpdate(keypadUpdate(t, "1,1000,00,0,READY"))
	assert.False(t, status.Armed)

	// After a partition status broadcast, the broadcast owns the flag.
	s.ApplyPartitionStatus(tpi.PartitionStatusEvent{Partition: 1, Status: tpi.StatusArmedAway})
	status = s.ApplyKeypadUpdate(keypadUpdate(t, "1,1000,00,0,READY"))
	assert.True(t, status.Armed, "keypad flags must not override observed partition status")
}

func TestApplyPartitionStatusArmed(t *testing.T) {
	s := New(10, 100, nil)

	prev, armed := s.ApplyPartitionStatus(tpi.PartitionStatusEvent{Partition: 1, Status: tpi.StatusArmedStay})
	assert.False(t, prev)
	assert.True(t, armed)

	prev, armed = s.ApplyPartitionStatus(tpi.PartitionStatusEvent{Partition: 1, Status: tpi.StatusReady})
	assert.True(t, prev)
	assert.False(t, armed)
}

func TestExitEntryDelayDisambiguation(t *testing.T) {
	s := New(10, 100, nil)

	// Disarmed partition entering EXIT_ENTRY_DELAY is an exit delay.
	s.ApplyPartitionStatus(tpi.PartitionStatusEvent{Partition: 1, Status: tpi.StatusExitEntryDelay})
	status := s.PartitionStatus(1)
	assert.True(t, status.ExitDelay)
	assert.False(t, status.EntryDelay)

	// Armed partition entering EXIT_ENTRY_DELAY is an entry delay.
	s.ApplyPartitionStatus(tpi.PartitionStatusEvent{Partition: 2, Status: tpi.StatusArmedAway})
	s.ApplyPartitionStatus(tpi.PartitionStatusEvent{Partition: 2, Status: tpi.StatusExitEntryDelay})
	status = s.PartitionStatus(2)
	assert.False(t, status.ExitDelay)
	assert.True(t, status.EntryDelay)

	// Any other status clears both.
	s.ApplyPartitionStatus(tpi.PartitionStatusEvent{Partition: 2, Status: tpi.StatusReady})
	status = s.PartitionStatus(2)
	assert.False(t, status.ExitDelay)
	assert.False(t, status.EntryDelay)
}

func TestEventHistoryBounds(t *testing.T) {
	s := New(3, 5, nil)

	for i := 1; i <= 7; i++ {
		s.AddEvent(1, fmt.Sprintf("event %d", i))
	}

	snap := s.Snapshot()
	require.Len(t, snap.Partitions[1].LastEvents, 3)
	require.Len(t, snap.LastEvents, 5)

	// Most recent first.
	assert.Equal(t, "event 7", snap.Partitions[1].LastEvents[0].Message)
	assert.Equal(t, "event 5", snap.Partitions[1].LastEvents[2].Message)
	assert.Equal(t, "event 3", snap.LastEvents[4].Message)
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := New(10, 100, nil)
	s.ApplyKeypadUpdate(keypadUpdate(t, "1,1000,00,0,READY"))
	s.AddEvent(1, "first")

	snap := s.Snapshot()

	s.ApplyKeypadUpdate(keypadUpdate(t, "1,0004,00,0,ARMED"))
	s.AddEvent(1, "second")

	assert.Equal(t, "READY", snap.Partitions[1].Status.Alpha)
	require.Len(t, snap.Partitions[1].LastEvents, 1)
	assert.Equal(t, "first", snap.Partitions[1].LastEvents[0].Message)
	require.Len(t, snap.LastEvents, 1)
}
