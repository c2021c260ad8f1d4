package rts

import (
	"github.com/rudransh61/Physix-go/pkg/vector"
)

func vectorAt(x, y float64) vector.Vector {
	return vector.Vector{X: x, Y: y}
}

// captureSink records every message delivered to one player.
type captureSink struct {
	msgs []*ServerMessage
}

func (s *captureSink) Deliver(msg *ServerMessage) {
	s.msgs = append(s.msgs, msg)
}

func (s *captureSink) ofType(msgType string) []*ServerMessage {
	var out []*ServerMessage
	for _, m := range s.msgs {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}
