package compilenet

import (
	"context"
	"fmt"
	"log"
	"net"

	quic "github.com/quic-go/quic-go"

	"github.com/ascrivener/ghuloum/pkg/cerrors"
)

// Handler compiles and runs one request's source text, returning the
// tagged result word or an error.
type Handler func(ctx context.Context, source string) (uint64, error)

// Server accepts QUIC connections and dispatches one stream per compile
// request, in the teacher's node.go accept-loop style (listener.Accept,
// then a per-connection goroutine), stripped of JAMNP-S's
// peer-identity/stream-kind negotiation: every stream here is the same
// request/response exchange.
type Server struct {
	listener *quic.Listener
	handler  Handler
}

// Listen opens a UDP socket at addr and wraps it in a QUIC listener
// using a fresh self-signed identity.
func Listen(addr string, handler Handler) (*Server, error) {
	tlsConfig, err := ServerTLSConfig()
	if err != nil {
		return nil, err
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("compilenet: resolving %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("compilenet: listening on %s: %w", addr, err)
	}

	listener, err := quic.Listen(conn, tlsConfig, &quic.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("compilenet: creating quic listener: %w", err)
	}

	return &Server{listener: listener, handler: handler}, nil
}

// Addr returns the socket address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close shuts the listener down.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Serve accepts connections until ctx is cancelled or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("compilenet: accept error: %v", err)
			continue
		}
		go s.serveConnection(ctx, conn)
	}
}

func (s *Server) serveConnection(ctx context.Context, conn *quic.Conn) {
	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		go s.serveStream(ctx, stream)
	}
}

func (s *Server) serveStream(ctx context.Context, stream *quic.Stream) {
	defer stream.Close()

	frame, err := ReadMessage(stream)
	if err != nil {
		log.Printf("compilenet: reading request: %v", err)
		return
	}

	result, err := s.handler(ctx, DecodeRequest(frame))
	var response []byte
	if err != nil {
		response = EncodeFault(faultMessage(err))
	} else {
		response = EncodeResult(result)
	}

	if err := WriteMessage(stream, response); err != nil {
		log.Printf("compilenet: writing response: %v", err)
	}
}

// faultMessage reports a CompileError's message; any other error (a
// recovered precondition-violation panic, a reader failure, a rate-limit
// rejection) is reported generically, since its text may reveal internal
// detail callers should not depend on.
func faultMessage(err error) string {
	if cerrors.IsCompileError(err) {
		return err.Error()
	}
	return "internal compiler error"
}
