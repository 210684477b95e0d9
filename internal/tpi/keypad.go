package tpi

import (
	"fmt"
	"strconv"
	"strings"
)

// IconFlags is the decoded 16-bit keypad LED/icon bitmask.
type IconFlags struct {
	Alarm               bool
	AlarmInMemory       bool
	ArmedAway           bool
	ACPresent           bool
	Bypass              bool
	Chime               bool
	ArmedZeroEntryDelay bool
	AlarmFireZone       bool
	SystemTrouble       bool
	Ready               bool
	Fire                bool
	LowBattery          bool
	ArmedStay           bool
}

// Armed reports whether the flags alone indicate an armed panel. Used when
// no partition status broadcast has been seen yet.
func (f IconFlags) Armed() bool {
	return f.ArmedAway || f.ArmedZeroEntryDelay || f.ArmedStay
}

func decodeIconFlags(mask uint16) IconFlags {
	return IconFlags{
		Alarm:               mask&(1<<0) != 0,
		AlarmInMemory:       mask&(1<<1) != 0,
		ArmedAway:           mask&(1<<2) != 0,
		ACPresent:           mask&(1<<3) != 0,
		Bypass:              mask&(1<<4) != 0,
		Chime:               mask&(1<<5) != 0,
		ArmedZeroEntryDelay: mask&(1<<7) != 0,
		AlarmFireZone:       mask&(1<<8) != 0,
		SystemTrouble:       mask&(1<<9) != 0,
		Ready:               mask&(1<<12) != 0,
		Fire:                mask&(1<<13) != 0,
		LowBattery:          mask&(1<<14) != 0,
		ArmedStay:           mask&(1<<15) != 0,
	}
}

// KeypadUpdate is a decoded virtual keypad broadcast.
type KeypadUpdate struct {
	Partition  int
	Flags      IconFlags
	ZoneOrUser string
	Beep       string
	Alpha      string
}

// DecodeKeypadUpdate parses a %00 payload: partition, 16-bit hex flag mask,
// zone-or-user, beep code, alpha display text. The TPI occasionally emits
// garbage here: anything malformed is an error for the caller to log and
// drop, never a crash.
func DecodeKeypadUpdate(payload string) (KeypadUpdate, error) {
	if strings.ContainsRune(payload, SentinelTPI) {
		return KeypadUpdate{}, fmt.Errorf("keypad update contains stray sentinel: %q", payload)
	}

	fields := strings.Split(payload, ",")
	if len(fields) != 5 {
		return KeypadUpdate{}, fmt.Errorf("keypad update has %d fields, want 5: %q", len(fields), payload)
	}

	partition, err := strconv.Atoi(fields[0])
	if err != nil {
		return KeypadUpdate{}, fmt.Errorf("invalid partition number %q: %v", fields[0], err)
	}

	mask, err := strconv.ParseUint(fields[1], 16, 16)
	if err != nil {
		return KeypadUpdate{}, fmt.Errorf("invalid flag mask %q: %v", fields[1], err)
	}

	return KeypadUpdate{
		Partition:  partition,
		Flags:      decodeIconFlags(uint16(mask)),
		ZoneOrUser: fields[2],
		Beep:       BeepLabel(fields[3]),
		Alpha:      strings.TrimSpace(fields[4]),
	}, nil
}
