package comm

import (
	"encoding/json"
	"time"

	"github.com/avvvet/cardfit-services/internal/scoring"
)

// Message types on the ranking topics.
const (
	TypeRank       = "rank"
	TypeRankResult = "rank-result"
	TypeHeartbeat  = "heartbeat"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "rank", "rank-result"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

// RankRequest is the data of a "rank" message. RequestId is optional; the
// service assigns one when it is missing.
type RankRequest struct {
	RequestId string          `json:"request_id,omitempty"`
	Answers   scoring.Answers `json:"answers"`
}

// RankResponse is the data of a "rank-result" message. On success Error is
// empty and Results is an array, empty when no card is eligible. On failure
// Results is null.
type RankResponse struct {
	RequestId string                `json:"request_id"`
	Results   []scoring.ScoreResult `json:"results"`
	Error     string                `json:"error,omitempty"`
}

type ServiceHeartbeat struct {
	ID        string    `json:"id"` // service id
	Timestamp time.Time `json:"timestamp"`
	Ruleset   string    `json:"ruleset"`
}

// NewMessage wraps data into an envelope of the given type.
func NewMessage(msgType string, data any, socketId string) (*WSMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &WSMessage{Type: msgType, Data: raw, SocketId: socketId}, nil
}
