package tpi

import "fmt"

// PartitionStatus is a named partition state from a %02 broadcast.
type PartitionStatus int

const (
	StatusNotUsed PartitionStatus = iota
	StatusReady
	StatusReadyBypass
	StatusNotReady
	StatusArmedStay
	StatusArmedAway
	StatusArmedMax
	StatusExitEntryDelay
	StatusInAlarm
	StatusAlarmInMemory
	StatusArmedInstant
)

func (s PartitionStatus) String() string {
	switch s {
	case StatusNotUsed:
		return "NOT_USED"
	case StatusReady:
		return "READY"
	case StatusReadyBypass:
		return "READY_BYPASS"
	case StatusNotReady:
		return "NOT_READY"
	case StatusArmedStay:
		return "ARMED_STAY"
	case StatusArmedAway:
		return "ARMED_AWAY"
	case StatusArmedMax:
		return "ARMED_MAX"
	case StatusExitEntryDelay:
		return "EXIT_ENTRY_DELAY"
	case StatusInAlarm:
		return "IN_ALARM"
	case StatusAlarmInMemory:
		return "ALARM_IN_MEMORY"
	case StatusArmedInstant:
		return "ARMED_INSTANT"
	default:
		return fmt.Sprintf("Unknown PartitionStatus(%d)", s)
	}
}

// Armed reports whether the status is an armed sub-state.
func (s PartitionStatus) Armed() bool {
	return s == StatusArmedStay || s == StatusArmedAway || s == StatusArmedMax
}

// PartitionStatusEvent is one partition's slice of a %02 broadcast.
type PartitionStatusEvent struct {
	Partition int
	Status    PartitionStatus
}

// DecodePartitionStatus parses a %02 payload: 8 partitions as fixed-width
// 2-character status codes. NOT_USED slices are skipped; slice i maps to
// partition i+1.
func DecodePartitionStatus(payload string) ([]PartitionStatusEvent, error) {
	if len(payload) < 16 {
		return nil, fmt.Errorf("partition status payload too short: %q", payload)
	}

	var events []PartitionStatusEvent
	for i := 0; i < 8; i++ {
		code := payload[i*2 : i*2+2]
		status, ok := partitionStatusCodes[code]
		if !ok {
			return nil, fmt.Errorf("unknown partition status code %q in %q", code, payload)
		}
		if status == StatusNotUsed {
			continue
		}
		events = append(events, PartitionStatusEvent{Partition: i + 1, Status: status})
	}
	return events, nil
}
