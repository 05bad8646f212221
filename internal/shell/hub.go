package shell

import (
	"context"
	log "log/slog"
	"time"

	"jarvis/pkg/protocol"
)

// Hub mirrors status and transcript to a websocket hub and turns incoming
// wake frames into manual wake requests.
type Hub struct {
	ptcl *protocol.Protocol
}

func NewHub(ctx context.Context, url, shard string, onWake func()) (*Hub, error) {
	ptcl, err := protocol.NewProtocol(ctx, protocol.PtclConfig{
		Shard:   shard,
		Url:     url,
		Reconn:  2 * time.Second,
		Timeout: time.Second,
		EmitOut: func(m *protocol.Message) {
			if m.Kind != protocol.KindWake {
				log.Debug("Ignoring hub message", "kind", m.Kind, "from", m.From)
				return
			}
			log.Info("Manual wake from hub", "from", m.From)
			onWake()
		},
	})
	if err != nil {
		return nil, err
	}

	return &Hub{ptcl: ptcl}, nil
}

// Run serves the hub connection until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	return h.ptcl.Run(ctx)
}

func (h *Hub) StatusChanged(text string) {
	_ = h.ptcl.Transmit(protocol.KindStatus, text)
}

func (h *Hub) TranscriptAppended(line string) {
	_ = h.ptcl.Transmit(protocol.KindTranscript, line)
}
