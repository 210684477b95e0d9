// Package session owns the persistent connection to the Envisalink: the
// login handshake, the dispatch of received lines through the codec into
// the state store and the notification dispatcher, and the unconditional
// reconnect loop.
package session

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mjahr/smartalarmserver/internal/config"
	"github.com/mjahr/smartalarmserver/internal/log"
	"github.com/mjahr/smartalarmserver/internal/metrics"
	"github.com/mjahr/smartalarmserver/internal/notify"
	"github.com/mjahr/smartalarmserver/internal/state"
	"github.com/mjahr/smartalarmserver/internal/tpi"
)

// State is the session's position in the login handshake.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingPassword
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateAwaitingPassword:
		return "AwaitingPassword"
	case StateLoggedIn:
		return "LoggedIn"
	default:
		return fmt.Sprintf("Unknown State(%d)", s)
	}
}

const unknownLabel = "Unknown!"

type handlerFunc func(payload string)

type Session struct {
	cfg        *config.EnvisalinkConfig
	log        *log.Logger
	store      *state.Store
	dispatcher *notify.Dispatcher
	zoneNames  map[int]string
	userNames  map[int]string

	handlers   map[string]handlerFunc
	retryDelay time.Duration

	mu   sync.Mutex
	conn net.Conn
	st   State
}

func New(cfg *config.EnvisalinkConfig, store *state.Store, dispatcher *notify.Dispatcher,
	zoneNames, userNames map[int]string, logger *log.Logger) *Session {
	s := &Session{
		cfg:        cfg,
		log:        logger,
		store:      store,
		dispatcher: dispatcher,
		zoneNames:  zoneNames,
		userNames:  userNames,
		retryDelay: time.Duration(cfg.RetryDelay) * time.Second,
	}

	// Explicit dispatch table, built once. Codes without an entry are
	// logged and skipped: the protocol defines more codes than this
	// server interprets.
	s.handlers = map[string]handlerFunc{
		tpi.CodeLoginPrompt:  s.handleLoginPrompt,
		tpi.CodeLoginSuccess: s.handleLoginSuccess,
		tpi.CodeLoginFailure: s.handleLoginFailure,
		tpi.CodeLoginTimeout: s.handleLoginTimeout,

		tpi.CodeKeypadUpdate:    s.handleKeypadUpdate,
		tpi.CodeZoneStateChange: s.handleZoneStateChange,
		tpi.CodePartitionStatus: s.handlePartitionStatus,
		tpi.CodeCIDEvent:        s.handleCIDEvent,
		tpi.CodeZoneTimerDump:   s.handleZoneTimerDump,

		tpi.CodePollResponse:            s.handleCommandResponse,
		tpi.CodeChangePartitionResponse: s.handleCommandResponse,
		tpi.CodeDumpZoneTimersResponse:  s.handleCommandResponse,
		tpi.CodeKeypressResponse:        s.handleCommandResponse,
	}

	return s
}

// Run connects and serves until ctx is cancelled. Every disconnect, from
// either side, re-enters the connect loop after the fixed retry delay;
// there is no backoff growth and no give-up condition.
func (s *Session) Run(ctx context.Context) {
	for {
		err := s.connectAndServe(ctx)
		if ctx.Err() != nil {
			s.log.Info("Session stopped")
			return
		}
		if err != nil {
			s.log.Warning("Connection lost: %v", err)
		}
		s.log.Warning("Connection failed, retrying in %s", s.retryDelay)

		select {
		case <-ctx.Done():
			s.log.Info("Session stopped")
			return
		case <-time.After(s.retryDelay):
		}
		metrics.Reconnects.Inc()
	}
}

func (s *Session) connectAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.setState(StateConnecting)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", addr, err)
	}
	s.log.Info("Connected to %s", addr)

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	// Close the transport when ctx is cancelled so the scanner unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	defer func() {
		conn.Close()
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		s.setState(StateDisconnected)
		s.log.Info("Disconnected from %s", addr)
	}()

	// Any partial line buffered in the scanner dies with it on return.
	scanner := bufio.NewScanner(conn)
	scanner.Split(scanCRLF)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		s.handleLine(line)
	}
	return scanner.Err()
}

// scanCRLF splits the stream on CR-LF pairs, the TPI line terminator.
func scanCRLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.Index(data, []byte("\r\n")); i >= 0 {
		return i + 2, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (s *Session) handleLine(line string) {
	metrics.LinesReceived.Inc()
	s.log.Debug("RX < %s", line)

	msg := tpi.DecodeLine(line)
	handler, ok := s.handlers[msg.Code]
	if !ok {
		metrics.UnhandledCodes.Inc()
		s.log.Warning("No handler defined for %s, skipping...", msg.Code)
		return
	}
	handler(msg.Payload)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = st
}

// State returns the session's current handshake state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

func (s *Session) handleLoginPrompt(string) {
	s.setState(StateAwaitingPassword)
	if err := s.sendData(s.cfg.Password); err != nil {
		s.log.Error("Failed to send password: %v", err)
	}
}

func (s *Session) handleLoginSuccess(string) {
	s.setState(StateLoggedIn)
	s.log.Info("Password accepted, session created")
}

func (s *Session) handleLoginFailure(string) {
	// The Envisalink closes the socket itself after a bad password; the
	// resulting disconnect drives the reconnect loop.
	s.log.Error("Password is incorrect. Envisalink is closing the socket connection.")
}

func (s *Session) handleLoginTimeout(string) {
	s.log.Error("Envisalink timed out waiting for the password. Envisalink is closing the socket connection.")
}

func (s *Session) handleKeypadUpdate(payload string) {
	update, err := tpi.DecodeKeypadUpdate(payload)
	if err != nil {
		metrics.DecodeErrors.Inc()
		s.log.Error("Invalid keypad update from Envisalink, ignoring: %v", err)
		return
	}

	status := s.store.ApplyKeypadUpdate(update)
	s.dispatcher.KeypadUpdate(update.Partition, status)
}

func (s *Session) handlePartitionStatus(payload string) {
	events, err := tpi.DecodePartitionStatus(payload)
	if err != nil {
		metrics.DecodeErrors.Inc()
		s.log.Error("Invalid partition status from Envisalink, ignoring: %v", err)
		return
	}

	for _, event := range events {
		previous, armed := s.store.ApplyPartitionStatus(event)
		s.log.Debug("Partition %d is in state %s", event.Partition, event.Status)
		s.store.AddEvent(event.Partition,
			fmt.Sprintf("Partition %d: %s", event.Partition, event.Status))
		s.dispatcher.PartitionStatus(event.Partition, previous, armed, event.Status.String())
	}
}

func (s *Session) handleCIDEvent(payload string) {
	event, err := tpi.DecodeCIDEvent(payload)
	if err != nil {
		metrics.DecodeErrors.Inc()
		s.log.Error("Invalid CID event from Envisalink, ignoring: %v", err)
		return
	}

	user := "N/A"
	zone := "N/A"
	switch event.Category {
	case tpi.CategoryUser:
		user = lookupName(s.userNames, event.ZoneOrUser)
	case tpi.CategoryZone:
		zone = lookupName(s.zoneNames, event.ZoneOrUser)
	}

	s.log.Debug("CID event %d (%s) qualifier %s partition %d %s=%d, user=%s zone=%s",
		event.Code, event.Label, event.Qualifier, event.Partition, event.Category,
		event.ZoneOrUser, user, zone)

	s.store.AddEvent(event.Partition,
		fmt.Sprintf("%s (%s)", event.Label, event.Qualifier))

	switch {
	case event.Code == 401 && event.Qualifier == tpi.QualifierNewEvent:
		s.dispatcher.ArmedAway(user)
	case event.Code == 441 && event.Qualifier == tpi.QualifierNewEvent:
		s.dispatcher.ArmedHome(user)
	case event.Code == 401 && event.Qualifier == tpi.QualifierRestore:
		s.dispatcher.DisarmedAway(user)
	case event.Code == 441 && event.Qualifier == tpi.QualifierRestore:
		s.dispatcher.DisarmedHome(user)
	case event.IsAlarm() && event.Qualifier == tpi.QualifierNewEvent:
		s.dispatcher.AlarmTriggered(event.ZoneOrUser, zone)
	case event.IsAlarm() && event.Qualifier == tpi.QualifierRestore:
		s.dispatcher.AlarmCleared(event.ZoneOrUser, zone)
	}
}

func lookupName(table map[int]string, number int) string {
	if name, ok := table[number]; ok {
		return name
	}
	return unknownLabel
}

func (s *Session) handleZoneStateChange(string) {
	// Honeywell panels and the Envisalink do not currently generate these.
	s.log.Debug("Zone state change received, no handler implemented")
}

func (s *Session) handleZoneTimerDump(payload string) {
	s.log.Debug("Zone timer dump received: %s", payload)
}

func (s *Session) handleCommandResponse(payload string) {
	s.log.Debug("Command response: %s", payload)
}

// sendData writes one line to the panel. No acknowledgement is awaited;
// results show up asynchronously as keypad or partition status broadcasts.
func (s *Session) sendData(data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected to Envisalink")
	}

	s.log.Debug("TX > %s", data)
	if _, err := s.conn.Write([]byte(data + "\r\n")); err != nil {
		return fmt.Errorf("failed to send data: %v", err)
	}
	return nil
}

// SendCommand frames and sends an Envisalink command.
func (s *Session) SendCommand(code, payload string) error {
	return s.sendData(tpi.EncodeCommand(code, payload))
}

// SendAction sends an access code followed by a keypress action digit. An
// empty code falls back to the configured alarm code.
func (s *Session) SendAction(code, action string) error {
	if code == "" {
		code = s.cfg.AlarmCode
	}
	return s.sendData(code + action)
}

func (s *Session) Arm(code string) error {
	return s.SendAction(code, tpi.ActionArmAway)
}

func (s *Session) ArmStay(code string) error {
	return s.SendAction(code, tpi.ActionArmStay)
}

func (s *Session) Disarm(code string) error {
	return s.SendAction(code, tpi.ActionDisarm)
}
