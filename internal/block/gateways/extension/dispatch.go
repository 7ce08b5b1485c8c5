package extension

import (
	"context"
	"encoding/json"

	"github.com/haukened/siteblock/internal/block/domain"
)

var jsonNull = json.RawMessage("null")

// dispatch handles one extension message on its own goroutine.
func (s *Server) dispatch(ctx context.Context, msg IncomingMsg) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	switch msg.Type {
	case TypeNavigation:
		if h == nil {
			return
		}
		outcome := h.HandleNavigation(ctx, msg.TabID, msg.URL)
		s.logger.Debug(map[string]any{"tab": msg.TabID, "url": msg.URL, "outcome": string(outcome)}, "navigation handled")

	case TypeTabClosed:
		if h != nil {
			h.ForgetTab(msg.TabID)
		}

	case TypeAiAllow:
		ok := false
		if h != nil {
			var err error
			ok, err = h.AllowFeedback(ctx, msg.Title, msg.Description, msg.Hostname)
			if err != nil {
				s.logger.Error(map[string]any{"error": err.Error()}, "allow feedback failed")
				ok = false
			}
		}
		s.reply(OutgoingMsg{Type: ReplyAiAllowResult, ID: msg.ID, OK: boolPtr(ok)})

	case TypeStorageGet:
		value, found, err := s.store.Get(ctx, msg.Key)
		if err != nil {
			s.ack(msg.ID, err.Error())
			return
		}
		if !found {
			value = jsonNull
		}
		s.reply(OutgoingMsg{Type: ReplyStorageValue, ID: msg.ID, Value: value})

	case TypeStorageSet:
		value := msg.Value
		if len(value) == 0 {
			value = jsonNull
		}
		s.ack(msg.ID, errText(s.store.Set(ctx, msg.Key, value)))

	case TypeStorageRemove:
		s.ack(msg.ID, errText(s.store.Delete(ctx, msg.Key)))

	case TypeBlockPage:
		if h == nil {
			s.ack(msg.ID, codeBadRequest)
			return
		}
		scope, err := domain.ParseScope(msg.Scope)
		if err != nil {
			scope = ""
		}
		_, err = h.BlockPage(ctx, msg.URL, scope, msg.Title, msg.Description)
		s.ack(msg.ID, errText(err))

	default:
		s.logger.Warn(map[string]any{"type": msg.Type}, "unknown extension message")
		if msg.ID != "" {
			s.ack(msg.ID, codeUnknownType)
		}
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *Server) ack(id, errMsg string) {
	s.reply(OutgoingMsg{Type: ReplyAck, ID: id, OK: boolPtr(errMsg == ""), Error: errMsg})
}

func (s *Server) reply(msg OutgoingMsg) {
	if err := s.send(msg); err != nil {
		s.logger.Warn(map[string]any{"type": msg.Type, "id": msg.ID, "error": err.Error()}, "reply not delivered")
	}
}
