package protocol

import (
	"context"
	"errors"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

var errClosed = errors.New("websocket closed")

type WebSocket struct {
	mu      sync.Mutex // guards conn and serializes writes
	conn    *ws.Conn
	closed  bool
	url     string
	reconn  time.Duration
	timeout time.Duration
}

func NewWebSocket(ctx context.Context, url string, reconn, timeout time.Duration) (*WebSocket, error) {
	log.Debug("init websocket protocol", "url", url)

	if reconn <= 0 {
		reconn = time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	web := &WebSocket{
		url:     url,
		reconn:  reconn,
		timeout: timeout,
	}

	conn, _, err := ws.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		log.Error("Failed to dial url", "err", err)
		return nil, err
	}
	web.conn = conn

	return web, nil
}

func (web *WebSocket) Write(payload []byte) error {
	web.mu.Lock()
	defer web.mu.Unlock()

	if web.closed {
		return errClosed
	}

	log.Debug("Write ws", "msg", string(payload))
	_ = web.conn.SetWriteDeadline(time.Now().Add(web.timeout))
	return web.conn.WriteMessage(ws.TextMessage, payload)
}

type WsIncomeKind uint

const (
	CONN_CLOSE WsIncomeKind = iota
	READ_FAILURE
	READ_OK
)

type Income struct {
	kind WsIncomeKind
	msg  []byte
	err  error
}

// Read blocks for the next frame. Only the Run loop reads.
func (web *WebSocket) Read() Income {
	web.mu.Lock()
	conn := web.conn
	web.mu.Unlock()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		if WsIsClosed(err) {
			return Income{
				kind: CONN_CLOSE,
				err:  err,
			}
		}
		return Income{
			kind: READ_FAILURE,
			err:  err,
		}
	}

	log.Debug("Read ws", "msg", string(msg))
	return Income{
		kind: READ_OK,
		msg:  msg,
	}
}

// TryReconn dials until it succeeds or ctx is done.
func (web *WebSocket) TryReconn(ctx context.Context) error {
	t := time.NewTicker(web.reconn)
	defer t.Stop()

	for {
		conn, _, err := ws.DefaultDialer.DialContext(ctx, web.url, nil)
		if err == nil {
			web.mu.Lock()
			defer web.mu.Unlock()

			if web.closed {
				conn.Close()
				return errClosed
			}
			web.conn.Close()
			web.conn = conn
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (web *WebSocket) Close() {
	web.mu.Lock()
	defer web.mu.Unlock()

	if web.closed {
		return
	}
	web.closed = true

	_ = web.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	web.conn.Close()
}

func WsIsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
