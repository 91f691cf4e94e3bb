package discord

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Gateway opcodes used by the keepalive session.
const (
	opHeartbeat = 1
	opIdentify  = 2
	opHello     = 10
)

// gateway intents: GUILDS | GUILD_MEMBERS | GUILD_PRESENCES
const gatewayIntents = 1<<0 | 1<<1 | 1<<8

type gatewayPayload struct {
	Op   int             `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  *int64          `json:"s,omitempty"`
	Type string          `json:"t,omitempty"`
}

// gatewaySession holds the websocket connection that keeps the bot's
// presence alive. It identifies, then heartbeats until closed. Dispatches
// are read and dropped; all data reads go through REST.
type gatewaySession struct {
	conn   *websocket.Conn
	logger *zap.Logger

	mu      sync.Mutex
	lastSeq *int64
	done    chan struct{}
	once    sync.Once
}

func newGatewaySession(gatewayURL, token string, logger *zap.Logger) (*gatewaySession, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(gatewayURL+"/?v=10&encoding=json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial gateway: %w", err)
	}

	s := &gatewaySession{
		conn:   conn,
		logger: logger,
		done:   make(chan struct{}),
	}

	interval, err := s.readHello()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := s.identify(token); err != nil {
		conn.Close()
		return nil, err
	}

	go s.heartbeatLoop(interval)
	go s.readLoop()

	return s, nil
}

func (s *gatewaySession) readHello() (time.Duration, error) {
	var payload gatewayPayload
	if err := s.conn.ReadJSON(&payload); err != nil {
		return 0, fmt.Errorf("failed to read gateway hello: %w", err)
	}
	if payload.Op != opHello {
		return 0, fmt.Errorf("unexpected gateway opcode %d, want hello", payload.Op)
	}

	var hello struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(payload.Data, &hello); err != nil {
		return 0, fmt.Errorf("failed to decode hello: %w", err)
	}
	return time.Duration(hello.HeartbeatInterval) * time.Millisecond, nil
}

func (s *gatewaySession) identify(token string) error {
	identify := map[string]any{
		"op": opIdentify,
		"d": map[string]any{
			"token":   token,
			"intents": gatewayIntents,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "guildsite",
				"device":  "guildsite",
			},
		},
	}
	if err := s.writeJSON(identify); err != nil {
		return fmt.Errorf("failed to identify: %w", err)
	}
	return nil
}

func (s *gatewaySession) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			seq := s.lastSeq
			s.mu.Unlock()

			beat := map[string]any{"op": opHeartbeat, "d": seq}
			if err := s.writeJSON(beat); err != nil {
				s.logger.Warn("gateway heartbeat failed", zap.Error(err))
				s.close()
				return
			}
		}
	}
}

func (s *gatewaySession) readLoop() {
	for {
		var payload gatewayPayload
		if err := s.conn.ReadJSON(&payload); err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Warn("gateway connection lost", zap.Error(err))
				s.close()
			}
			return
		}
		if payload.Seq != nil {
			s.mu.Lock()
			s.lastSeq = payload.Seq
			s.mu.Unlock()
		}
	}
}

func (s *gatewaySession) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *gatewaySession) close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}
