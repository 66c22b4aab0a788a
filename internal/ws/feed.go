// Package ws subscribes to the backend's live statistics feed for one
// session, so option counts tick up while other responders answer.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/TheQwirl/qwirl-client/internal/model"
)

// MessageType defines the type of a feed message.
type MessageType string

const (
	MsgOptionStatsUpdate MessageType = "option_stats_update"
	MsgSessionFinished   MessageType = "session_finished"
	MsgError             MessageType = "error"
)

// Message is the feed envelope format.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// StatsUpdate is the payload of an option_stats_update message.
type StatsUpdate struct {
	QwirlItemID      string                 `json:"qwirl_item_id"`
	OptionStatistics model.OptionStatistics `json:"option_statistics"`
	ResponseCount    int                    `json:"response_count"`
}

// StatsSink receives server-pushed statistics; the respond engine
// satisfies it.
type StatsSink interface {
	ApplyStats(ctx context.Context, pollID string, stats model.OptionStatistics, responseCount int)
}

// Feed is a client for one session's statistics stream.
type Feed struct {
	baseURL   string
	token     string
	sessionID string
	sink      StatsSink
}

func NewFeed(baseURL, token, sessionID string, sink StatsSink) *Feed {
	return &Feed{
		baseURL:   baseURL,
		token:     token,
		sessionID: sessionID,
		sink:      sink,
	}
}

// Run dials the feed and pumps messages into the sink until the context
// is cancelled or the connection drops.
func (f *Feed) Run(ctx context.Context) error {
	// Token goes in the query string; browsers can't set headers on
	// websocket upgrades and the backend accepts both, so the CLI uses
	// the same shape.
	u := fmt.Sprintf("%s/sessions/%s/feed?token=%s",
		f.baseURL, url.PathEscape(f.sessionID), url.QueryEscape(f.token))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to stats feed: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stats feed closed: %w", err)
		}
		f.dispatch(ctx, &msg)
	}
}

func (f *Feed) dispatch(ctx context.Context, msg *Message) {
	switch msg.Type {
	case MsgOptionStatsUpdate:
		var update StatsUpdate
		if err := json.Unmarshal(msg.Payload, &update); err != nil {
			log.Printf("[Feed] Bad stats payload: %v", err)
			return
		}
		f.sink.ApplyStats(ctx, update.QwirlItemID, update.OptionStatistics, update.ResponseCount)
	case MsgError:
		log.Printf("[Feed] Server error: %s", string(msg.Payload))
	case MsgSessionFinished:
		// Nothing to do; the engine refetches after finishing.
	default:
		log.Printf("[Feed] Unknown message type %q", msg.Type)
	}
}
