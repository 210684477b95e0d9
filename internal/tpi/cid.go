package tpi

import (
	"fmt"
	"strconv"
)

// CIDQualifier qualifies a Contact-ID report.
type CIDQualifier int

const (
	QualifierNewEvent     CIDQualifier = 1
	QualifierRestore      CIDQualifier = 3
	QualifierStillPresent CIDQualifier = 6
)

func (q CIDQualifier) String() string {
	if label, ok := cidQualifiers[q]; ok {
		return label
	}
	return fmt.Sprintf("Unknown CIDQualifier(%d)", int(q))
}

// CIDCategory says whether the trailing number of a CID event identifies a
// user or a zone.
type CIDCategory string

const (
	CategoryUser CIDCategory = "user"
	CategoryZone CIDCategory = "zone"
)

// CIDEvent is a decoded Contact-ID report: qualifier, event code, partition
// and the zone or user number, plus the table-derived category and label.
type CIDEvent struct {
	Qualifier  CIDQualifier
	Code       int
	Partition  int
	ZoneOrUser int
	Category   CIDCategory
	Label      string
}

// IsAlarm reports whether the event code belongs to the fixed set of alarm
// reports that drive AlarmTriggered/AlarmCleared notifications.
func (e CIDEvent) IsAlarm() bool {
	return alarmEventCodes[e.Code]
}

// DecodeCIDEvent parses a %03 payload: 1 digit qualifier, 3 digit event
// code, 2 digit partition, 3 digit zone-or-user number.
func DecodeCIDEvent(payload string) (CIDEvent, error) {
	if len(payload) < 9 {
		return CIDEvent{}, fmt.Errorf("cid payload too short: %q", payload)
	}

	qualifier, err := strconv.Atoi(payload[0:1])
	if err != nil {
		return CIDEvent{}, fmt.Errorf("invalid cid qualifier in %q: %v", payload, err)
	}
	if _, ok := cidQualifiers[CIDQualifier(qualifier)]; !ok {
		return CIDEvent{}, fmt.Errorf("unknown cid qualifier %d in %q", qualifier, payload)
	}

	code, err := strconv.Atoi(payload[1:4])
	if err != nil {
		return CIDEvent{}, fmt.Errorf("invalid cid event code in %q: %v", payload, err)
	}
	def, ok := cidEventCodes[code]
	if !ok {
		return CIDEvent{}, fmt.Errorf("unknown cid event code %d in %q", code, payload)
	}

	partition, err := strconv.Atoi(payload[4:6])
	if err != nil {
		return CIDEvent{}, fmt.Errorf("invalid cid partition in %q: %v", payload, err)
	}

	// The zone-or-user field is the last three digits. Some panels pad the
	// field, so anchor on the end of the payload rather than offset 6.
	zoneOrUser, err := strconv.Atoi(payload[len(payload)-3:])
	if err != nil {
		return CIDEvent{}, fmt.Errorf("invalid cid zone/user in %q: %v", payload, err)
	}

	return CIDEvent{
		Qualifier:  CIDQualifier(qualifier),
		Code:       code,
		Partition:  partition,
		ZoneOrUser: zoneOrUser,
		Category:   def.Category,
		Label:      def.Label,
	}, nil
}
