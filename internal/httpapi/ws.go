package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"shopmate/internal/protocol"
	"shopmate/internal/recs"
	"shopmate/internal/reliability"
)

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.countWS("outbound", string(t))
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.queue(outbound, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			})
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.countWS("inbound", string(t))
		}

		switch msg := parsed.(type) {
		case protocol.ClientChat:
			s.queue(outbound, s.handleWSChat(ctx, msg))
		case protocol.ClientClear:
			s.queue(outbound, s.handleWSClear(ctx))
		case protocol.ClientHistory:
			s.queue(outbound, s.handleWSHistory(ctx))
		}

		if ctx.Err() != nil {
			break
		}
	}

	cancel()
	close(outbound)
	<-writerDone
}

func (s *Server) handleWSChat(ctx context.Context, msg protocol.ClientChat) any {
	res, err := s.assistant.SendChatMessage(ctx, msg.Text)
	if err != nil {
		return wsError("chat_send_failed", err)
	}
	return protocol.AssistantReply{
		Type:      protocol.TypeAssistantReply,
		SessionID: res.SessionID,
		Text:      res.Reply,
		Rotated:   res.Rotated,
		Products:  res.Products,
	}
}

func (s *Server) handleWSClear(ctx context.Context) any {
	res, err := s.assistant.ClearConversation(ctx)
	if err != nil {
		return wsError("clear_failed", err)
	}
	return protocol.SessionCleared{
		Type:         protocol.TypeSessionCleared,
		NewSessionID: res.NewSessionID,
		RemoteFailed: res.RemoteErr != nil,
	}
}

func (s *Server) handleWSHistory(ctx context.Context) any {
	turns, err := s.assistant.LoadHistory(ctx)
	if err != nil {
		return wsError("history_failed", err)
	}

	out := protocol.History{Type: protocol.TypeHistory, Turns: make([]protocol.HistoryTurn, 0, len(turns))}
	for _, t := range turns {
		out.SessionID = t.SessionID
		out.Turns = append(out.Turns, protocol.HistoryTurn{
			Role:            string(t.Role),
			Content:         t.Content,
			AttachedItemIDs: t.AttachedItemIDs,
		})
	}
	return out
}

func wsError(code string, err error) protocol.ErrorEvent {
	retryable := false
	var te *reliability.TransportError
	if errors.As(err, &te) {
		retryable = te.Retryable()
	}
	if errors.Is(err, recs.ErrAllSourcesFailed) {
		retryable = true
	}
	return protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		Code:      code,
		Retryable: retryable,
		Detail:    err.Error(),
	}
}

func (s *Server) queue(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
		// Keep websocket writes single-threaded; drop if the queue is full.
		if t, ok := messageTypeOf(msg); ok {
			s.countWS("drop_full", string(t))
		}
	}
}

func (s *Server) countWS(direction, msgType string) {
	if s.metrics != nil {
		s.metrics.WSMessages.WithLabelValues(direction, msgType).Inc()
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientChat:
		return m.Type, true
	case protocol.ClientClear:
		return m.Type, true
	case protocol.ClientHistory:
		return m.Type, true
	case protocol.AssistantReply:
		return m.Type, true
	case protocol.History:
		return m.Type, true
	case protocol.SessionCleared:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
