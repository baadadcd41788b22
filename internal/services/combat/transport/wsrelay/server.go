package wsrelay

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/louisbranch/shadowtrack/internal/services/combat/authority"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
)

// maxFrameBytes bounds a single inbound message frame.
const maxFrameBytes = 64 << 10

// Server accepts participant connections on the authority.
type Server struct {
	Tokens TokenConfig
	// OriginPatterns lists the browser origins allowed to connect besides the
	// server's own host.
	OriginPatterns []string

	mu       sync.RWMutex
	handlers map[string]authority.MessageHandler
}

// OnMessage registers handler for messages of kind.
func (s *Server) OnMessage(kind string, handler authority.MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[string]authority.MessageHandler)
	}
	s.handlers[kind] = handler
}

func (s *Server) handler(kind string) authority.MessageHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers[kind]
}

// ServeHTTP authenticates the participant and serves its connection until
// either side closes it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := ParseToken(s.Tokens, requestToken(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.OriginPatterns})
	if err != nil {
		log.Printf("wsrelay: accept %s: %v", claims.Participant(), err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxFrameBytes)

	log.Printf("wsrelay: participant %s connected", claims.Participant())
	err = s.serve(r.Context(), conn, claims)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		log.Printf("wsrelay: participant %s disconnected", claims.Participant())
	default:
		if !errors.Is(err, context.Canceled) {
			log.Printf("wsrelay: participant %s: %v", claims.Participant(), err)
		}
	}
}

// serve answers every frame with exactly one ack, in arrival order.
func (s *Server) serve(ctx context.Context, conn *websocket.Conn, claims Claims) error {
	for {
		var msg authority.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		ack := s.dispatch(ctx, msg, claims)
		if err := wsjson.Write(ctx, conn, ack); err != nil {
			return err
		}
	}
}

func (s *Server) dispatch(ctx context.Context, msg authority.Message, claims Claims) authority.Ack {
	if msg.Kind == authority.KindCommand {
		stamped, requestID, err := stampCommand(msg, claims)
		if err != nil {
			return authority.Ack{RequestID: requestID, Error: err.Error()}
		}
		msg = stamped
	}
	handler := s.handler(msg.Kind)
	if handler == nil {
		return authority.Ack{Error: authority.ErrNoAuthority.Error() + ": " + msg.Kind}
	}
	return handler(ctx, msg)
}

// stampCommand attributes a relayed command to the authenticated participant
// so a client cannot issue commands as the system or as someone else.
func stampCommand(msg authority.Message, claims Claims) (authority.Message, string, error) {
	cmd, err := authority.DecodeCommand(msg)
	if err != nil {
		return msg, "", err
	}
	if claims.SessionID != "" && cmd.SessionID != "" && cmd.SessionID != claims.SessionID {
		return msg, cmd.RequestID, errors.New("token does not grant access to session " + cmd.SessionID)
	}
	cmd.ActorType = command.ActorTypeParticipant
	if claims.GM() {
		cmd.ActorType = command.ActorTypeGM
	}
	cmd.ActorID = claims.Participant()
	stamped, err := authority.EncodeCommand(cmd)
	if err != nil {
		return msg, cmd.RequestID, err
	}
	return stamped, cmd.RequestID, nil
}

// requestToken reads a bearer token from the Authorization header, falling
// back to the token query parameter for browser clients.
func requestToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}
