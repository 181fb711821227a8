// Package dmdata – push-feed socket.
//
// Socket maintains the long-lived websocket connection over which the
// provider pushes new telegrams as they are published. The connection state
// is owned by the Socket instance (not package-level globals) so callers
// hold a handle, observe liveness via State/IsOpen, and receive telegrams
// through the channel returned by Subscribe.
//
// The scheduling loop treats the socket as best-effort: whenever the state
// is anything but open, the polling fallback has authority. Run therefore
// never gives up; it transitions to error/disconnected and redials after a
// fixed wait.
package dmdata

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// SocketState is the push connection's lifecycle state.
type SocketState string

// Socket lifecycle states.
const (
	StateDisconnected SocketState = "disconnected"
	StateConnecting   SocketState = "connecting"
	StateOpen         SocketState = "open"
	StateClosed       SocketState = "closed"
	StateError        SocketState = "error"
)

const (
	// reconnectWait separates redial attempts after a connection failure.
	reconnectWait = 5 * time.Second
	// subscribeBuffer absorbs short downstream stalls without blocking reads.
	subscribeBuffer = 64
)

// socketFrame is the provider's websocket message envelope. Data frames carry
// the same fields as a REST telegram item; control frames use Type ping/pong.
type socketFrame struct {
	Type   string `json:"type"`
	PingID string `json:"pingId,omitempty"`

	// data frame payload
	ID       string       `json:"id,omitempty"`
	Head     TelegramHead `json:"head,omitempty"`
	Format   string       `json:"format,omitempty"`
	Encoding string       `json:"encoding,omitempty"`
	Body     string       `json:"body,omitempty"`
}

// startMessage is sent once per connection to begin delivery.
type startMessage struct {
	Type            string   `json:"type"`
	Classifications []string `json:"classifications"`
	FormatMode      string   `json:"formatMode"`
}

// Socket is the push-feed adapter. Construct with NewSocket and drive with
// Run; all state is instance-owned and safe for concurrent observation.
type Socket struct {
	url             string
	classifications []string
	dialer          *websocket.Dialer
	log             zerolog.Logger

	mu    sync.RWMutex
	state SocketState

	items chan RawTelegramItem
}

// NewSocket constructs a push-feed adapter subscribed to the given telegram
// classifications (e.g. "telegram.earthquake").
func NewSocket(wsURL string, classifications []string, log zerolog.Logger) *Socket {
	return &Socket{
		url:             wsURL,
		classifications: classifications,
		dialer:          &websocket.Dialer{HandshakeTimeout: DefaultTimeout},
		log:             log,
		state:           StateDisconnected,
		items:           make(chan RawTelegramItem, subscribeBuffer),
	}
}

// Subscribe returns the stream of telegrams pushed by the provider. The
// channel is closed only when Run returns.
func (s *Socket) Subscribe() <-chan RawTelegramItem { return s.items }

// State returns the current connection state.
func (s *Socket) State() SocketState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsOpen reports whether the push feed is currently delivering. The polling
// fallback runs whenever this is false.
func (s *Socket) IsOpen() bool { return s.State() == StateOpen }

func (s *Socket) setState(st SocketState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Run dials the provider and pumps telegrams into the subscription channel
// until ctx is cancelled. Connection failures transition the state to error
// and redial after a fixed wait; Run itself never returns on a transient
// failure, only on cancellation.
func (s *Socket) Run(ctx context.Context) {
	defer func() {
		s.setState(StateClosed)
		close(s.items)
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		s.setState(StateConnecting)
		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			s.setState(StateError)
			s.log.Warn().Err(err).Str("url", s.url).Msg("push feed dial failed")
			if !sleepCtx(ctx, reconnectWait) {
				return
			}
			continue
		}

		if err := conn.WriteJSON(startMessage{
			Type:            "start",
			Classifications: s.classifications,
			FormatMode:      "json",
		}); err != nil {
			s.setState(StateError)
			s.log.Warn().Err(err).Msg("push feed start message failed")
			_ = conn.Close()
			if !sleepCtx(ctx, reconnectWait) {
				return
			}
			continue
		}

		s.setState(StateOpen)
		s.log.Info().Str("url", s.url).Msg("push feed open")

		err = s.readLoop(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		// The connection died underneath us: surface it and let the polling
		// fallback resume authority until the redial succeeds.
		s.setState(StateDisconnected)
		s.log.Warn().Err(err).Msg("push feed disconnected")
		if !sleepCtx(ctx, reconnectWait) {
			return
		}
	}
}

// readLoop consumes frames until the connection errors or ctx is cancelled.
func (s *Socket) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame socketFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			s.log.Warn().Err(err).Msg("push feed: malformed frame dropped")
			continue
		}

		switch frame.Type {
		case "ping":
			if err := conn.WriteJSON(socketFrame{Type: "pong", PingID: frame.PingID}); err != nil {
				return err
			}
		case "data":
			item := RawTelegramItem{
				ID:       frame.ID,
				Head:     frame.Head,
				Format:   frame.Format,
				Encoding: frame.Encoding,
				Body:     frame.Body,
			}
			select {
			case s.items <- item:
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			// start ack, error notices etc.; nothing for the pipeline.
		}
	}
}

// sleepCtx waits d or until ctx is cancelled; reports false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
