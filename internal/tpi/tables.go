package tpi

import "strconv"

var partitionStatusCodes = map[string]PartitionStatus{
	"00": StatusNotUsed,
	"01": StatusReady,
	"02": StatusReadyBypass,
	"03": StatusNotReady,
	"04": StatusArmedStay,
	"05": StatusArmedAway,
	"06": StatusArmedMax,
	"07": StatusExitEntryDelay,
	"08": StatusInAlarm,
	"09": StatusAlarmInMemory,
	"10": StatusArmedInstant,
}

var beepLabels = map[int]string{
	0: "off",
	1: "beep 1 time",
	2: "beep 2 times",
	3: "beep 3 times",
	4: "continuous fast beep",
	5: "continuous slow beep",
	8: "one long beep",
}

// BeepLabel maps a raw keypad beep field to a human label, falling back to
// "unknown" for codes outside the table.
func BeepLabel(field string) string {
	code, err := strconv.Atoi(field)
	if err != nil {
		return "unknown"
	}
	label, ok := beepLabels[code]
	if !ok {
		return "unknown"
	}
	return label
}

var cidQualifiers = map[CIDQualifier]string{
	QualifierNewEvent:     "New Event or Opening",
	QualifierRestore:      "New Restore or Closing",
	QualifierStillPresent: "Previously Reported Condition Still Present",
}

type cidEventDef struct {
	Category CIDCategory
	Label    string
}

var cidEventCodes = map[int]cidEventDef{
	100: {CategoryZone, "Medical Alert"},
	110: {CategoryZone, "Fire Alarm"},
	111: {CategoryZone, "Smoke Alarm"},
	120: {CategoryZone, "Panic Alarm"},
	121: {CategoryUser, "Duress Alarm"},
	122: {CategoryZone, "Silent Panic"},
	123: {CategoryZone, "Audible Panic"},
	124: {CategoryZone, "Duress - Access Granted"},
	130: {CategoryZone, "Burglary"},
	131: {CategoryZone, "Perimeter Burglary"},
	132: {CategoryZone, "Interior Burglary"},
	133: {CategoryZone, "24 Hour Burglary"},
	134: {CategoryZone, "Entry/Exit Burglary"},
	135: {CategoryZone, "Day/Night Burglary"},
	137: {CategoryZone, "Tamper"},
	140: {CategoryZone, "General Alarm"},
	143: {CategoryZone, "Expansion Module Failure"},
	150: {CategoryZone, "24 Hour Non-Burglary"},
	301: {CategoryZone, "AC Power Loss"},
	302: {CategoryZone, "Low System Battery"},
	305: {CategoryZone, "System Reset"},
	401: {CategoryUser, "Armed AWAY"},
	403: {CategoryUser, "Automatic Arming"},
	406: {CategoryUser, "Alarm Cancel"},
	407: {CategoryUser, "Remote Arming"},
	408: {CategoryUser, "Quick Arm"},
	409: {CategoryUser, "Keyswitch Arming"},
	441: {CategoryUser, "Armed STAY"},
	442: {CategoryUser, "Keyswitch Armed STAY"},
}

// CID event codes that raise or clear an alarm notification.
var alarmEventCodes = map[int]bool{
	100: true,
	110: true,
	111: true,
	120: true,
	121: true,
	122: true,
	123: true,
	124: true,
	130: true,
	131: true,
	132: true,
	133: true,
	134: true,
	135: true,
	137: true,
	140: true,
}
