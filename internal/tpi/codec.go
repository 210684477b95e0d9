// Package tpi implements the Envisalink TPI wire format: line framing,
// keypad status bitfields, partition status codes and Contact-ID event
// triples. All functions are pure; the session layer owns the transport.
package tpi

import "strings"

const (
	// SentinelTPI prefixes unsolicited panel broadcasts.
	SentinelTPI = '%'
	// SentinelCommand prefixes command frames and their responses.
	SentinelCommand = '^'
	// Terminator closes every framed line before CRLF.
	Terminator = '$'
)

// Wire codes dispatched by the session. The sentinel character stays part of
// the code because the tpi and command-response namespaces reuse the same
// numerics.
const (
	CodeLoginPrompt  = "Login:"
	CodeLoginSuccess = "OK"
	CodeLoginFailure = "FAILED"
	CodeLoginTimeout = "Timed Out!"

	CodeKeypadUpdate    = "%00"
	CodeZoneStateChange = "%01"
	CodePartitionStatus = "%02"
	CodeCIDEvent        = "%03"
	CodeZoneTimerDump   = "%FF"

	CodePollResponse            = "^00"
	CodeChangePartitionResponse = "^01"
	CodeDumpZoneTimersResponse  = "^02"
	CodeKeypressResponse        = "^03"
)

// Keypress digits appended after the access code to drive the panel.
const (
	ActionDisarm  = "1"
	ActionArmAway = "2"
	ActionArmStay = "3"
)

// Message is a raw line split into its dispatch code and payload.
type Message struct {
	Code    string
	Payload string
}

// DecodeLine splits a raw line into code and payload. Lines without a
// sentinel prefix are bare login-stage tokens: the whole line is the code.
func DecodeLine(raw string) Message {
	if raw == "" {
		return Message{}
	}
	if raw[0] != SentinelTPI && raw[0] != SentinelCommand {
		return Message{Code: raw}
	}

	body := strings.TrimSuffix(raw, string(Terminator))
	fields := strings.SplitN(body, ",", 2)
	msg := Message{Code: fields[0]}
	if len(fields) > 1 {
		msg.Payload = fields[1]
	}
	return msg
}

// EncodeCommand frames an outgoing command as ^code,payload$.
func EncodeCommand(code, payload string) string {
	return string(SentinelCommand) + code + "," + payload + string(Terminator)
}
