package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/cardfit-services/internal/comm"
	"github.com/avvvet/cardfit-services/internal/scoring"
)

const rankTimeout = 10 * time.Second

// Recommender ranks the catalog for one set of answers.
type Recommender interface {
	Recommend(ctx context.Context, answers scoring.Answers) ([]scoring.ScoreResult, error)
	RulesetVersion() string
}

// Publisher is the subset of *nats.Conn the broker publishes with.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Broker struct {
	Conn         *nats.Conn
	pub          Publisher
	Ranker       Recommender
	ResultsTopic string
	InstanceId   string
}

func NewBroker(nc *nats.Conn, ranker Recommender, resultsTopic, instanceId string) *Broker {
	b := &Broker{
		Conn:         nc,
		Ranker:       ranker,
		ResultsTopic: resultsTopic,
		InstanceId:   instanceId,
	}
	if nc != nil {
		b.pub = nc
	}
	return b
}

// SubscribeRankService consumes ranking requests. Instances share the queue
// group so each request is ranked once.
func (b *Broker) SubscribeRankService(topic, queueGroup string) (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// handleMessage answers on the reply subject when the caller used
// request/reply, and on the results topic otherwise.
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	out := b.Process(msgNat.Data)
	if out == nil {
		return
	}

	if msgNat.Reply != "" {
		if err := b.publish(msgNat.Reply, out); err != nil {
			log.Errorf("Error replying on %s: %s", msgNat.Reply, err)
		}
		return
	}
	if err := b.publish(b.ResultsTopic, out); err != nil {
		log.Errorf("Error publishing to topic %s: %s", b.ResultsTopic, err)
	}
}

// Process decodes one envelope and returns the reply envelope, or nil when
// the message is not a ranking request. It is shared by the NATS and
// websocket transports.
func (b *Broker) Process(data []byte) *comm.WSMessage {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return nil
	}

	switch msg.Type {
	case comm.TypeRank:
		req := decodeRankRequest(msg.Data)
		if req.RequestId == "" {
			req.RequestId = uuid.NewString()
		}

		rsp := comm.RankResponse{RequestId: req.RequestId}
		ctx, cancel := context.WithTimeout(context.Background(), rankTimeout)
		defer cancel()

		results, err := b.Ranker.Recommend(ctx, req.Answers)
		if err != nil {
			log.Errorf("Error [RankService.Recommend] request %s: %s", req.RequestId, err)
			rsp.Error = err.Error()
		} else {
			rsp.Results = results
			if rsp.Results == nil {
				rsp.Results = []scoring.ScoreResult{}
			}
		}

		out, err := comm.NewMessage(comm.TypeRankResult, rsp, msg.SocketId)
		if err != nil {
			log.Errorf("Error encoding rank result %s: %s", req.RequestId, err)
			return nil
		}
		return out
	default:
		log.Warnf("Unknown message type %q", msg.Type)
		return nil
	}
}

// decodeRankRequest accepts either {"request_id", "answers"} or a bare
// answers object as the message data.
func decodeRankRequest(data json.RawMessage) comm.RankRequest {
	var req comm.RankRequest
	var probe struct {
		RequestId string          `json:"request_id"`
		Answers   json.RawMessage `json:"answers"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return req
	}
	req.RequestId = probe.RequestId

	answers := data
	if len(bytes.TrimSpace(probe.Answers)) > 0 {
		answers = probe.Answers
	}
	if err := json.Unmarshal(answers, &req.Answers); err != nil {
		log.Warnf("unreadable answers in rank request %s: %s", req.RequestId, err)
	}
	return req
}

func (b *Broker) publish(subject string, m *comm.WSMessage) error {
	if b.pub == nil {
		return fmt.Errorf("no nats connection")
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.pub.Publish(subject, payload)
}

// Heartbeat announces this instance on topic until ctx is done.
func (b *Broker) Heartbeat(ctx context.Context, topic string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		beat := comm.ServiceHeartbeat{
			ID:        b.InstanceId,
			Timestamp: time.Now().UTC(),
			Ruleset:   b.Ranker.RulesetVersion(),
		}
		if m, err := comm.NewMessage(comm.TypeHeartbeat, beat, ""); err == nil {
			if err := b.publish(topic, m); err != nil {
				log.Warnf("heartbeat publish failed: %s", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
