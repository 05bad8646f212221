// Package protocol speaks the hub protocol: one JSON object per websocket
// text frame, addressed by shard name.
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"time"
)

type Kind string

const (
	KindHello      Kind = "hello"
	KindStatus     Kind = "status"
	KindTranscript Kind = "transcript"
	KindWake       Kind = "wake"
)

// Broadcast addresses every shard.
const Broadcast = "ALL"

type Message struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text,omitempty"`
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

func (m *Message) String() string {
	b, _ := json.Marshal(m)
	return string(b)
}

type PtclConfig struct {
	Shard   string
	Url     string
	Reconn  time.Duration // wait between reconnect attempts
	Timeout time.Duration // write deadline
	EmitOut func(*Message)
}

type Protocol struct {
	ws *WebSocket

	shard   string
	emitOut func(*Message)
}

func NewProtocol(ctx context.Context, cfg PtclConfig) (*Protocol, error) {
	if !isToken(cfg.Shard) {
		return nil, fmt.Errorf("invalid shard name %q", cfg.Shard)
	}

	ws, err := NewWebSocket(ctx, cfg.Url, cfg.Reconn, cfg.Timeout)
	if err != nil {
		log.Error("Failed to init ws connection", "err", err)
		return nil, err
	}

	ptcl := &Protocol{
		shard:   cfg.Shard,
		ws:      ws,
		emitOut: cfg.EmitOut,
	}

	if err := ptcl.Transmit(KindHello, ""); err != nil {
		ws.Close()
		return nil, err
	}

	return ptcl, nil
}

func (ptcl *Protocol) EmitOut(f func(*Message)) {
	ptcl.emitOut = f
}

func (ptcl *Protocol) Transmit(kind Kind, text string) error {
	msg := Message{Kind: kind, Text: text, From: ptcl.shard}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := ptcl.ws.Write(b); err != nil {
		log.Debug("Failed to transmit", "kind", kind, "err", err)
		return err
	}
	return nil
}

// Run reads frames until ctx is done, reconnecting whenever the connection
// drops.
func (ptcl *Protocol) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, ptcl.ws.Close)
	defer stop()

	for {
		in := ptcl.ws.Read()
		if ctx.Err() != nil {
			return nil
		}

		switch in.kind {
		case CONN_CLOSE, READ_FAILURE:
			if in.kind == CONN_CLOSE {
				log.Warn("Hub closed connection, reconnecting", "url", ptcl.ws.url)
			} else {
				log.Error("Failed to read", "err", in.err)
			}

			if err := ptcl.ws.TryReconn(ctx); err != nil {
				return nil
			}
			log.Info("Reconnected to hub", "url", ptcl.ws.url)
			_ = ptcl.Transmit(KindHello, "")

		case READ_OK:
			msg, err := Parse(in.msg)
			if err != nil {
				log.Warn("Failed to parse", "msg", string(in.msg), "err", err)
				continue
			}
			if !ptcl.checkRecipient(msg) {
				continue
			}

			if ptcl.emitOut != nil {
				ptcl.emitOut(msg)
			}
		}
	}
}

func (ptcl *Protocol) Close() {
	ptcl.ws.Close()
}

func (ptcl *Protocol) checkRecipient(msg *Message) bool {
	return msg.To == "" || msg.To == Broadcast || msg.To == ptcl.shard
}

func Parse(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, errors.New("empty message")
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if !isToken(string(msg.Kind)) {
		return nil, fmt.Errorf("invalid kind: %q", msg.Kind)
	}
	if !isToken(msg.From) {
		return nil, fmt.Errorf("invalid FROM token: %q", msg.From)
	}
	if msg.To != "" && !isToken(msg.To) {
		return nil, fmt.Errorf("invalid TO token: %q", msg.To)
	}

	return &msg, nil
}

var tokenRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func isToken(s string) bool {
	return tokenRe.MatchString(s)
}
