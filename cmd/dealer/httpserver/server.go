// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/dealerhq/dealer/log"
)

var logger = log.WithContext("pkg", "httpserver")

// Server is a bound listener with its HTTP server. Serve blocks until
// Shutdown is called.
type Server struct {
	name     string
	path     string
	listener net.Listener
	srv      *http.Server
}

func listen(name, addr, path string, handler http.Handler) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s addr [%v]", name, addr)
	}
	return &Server{
		name:     name,
		path:     path,
		listener: listener,
		srv:      &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second},
	}, nil
}

// URL is the root URL the server answers on.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String() + s.path
}

// Serve accepts connections until Shutdown. A clean shutdown returns nil.
func (s *Server) Serve() error {
	logger.Debug("serving", "server", s.name, "addr", s.listener.Addr())
	if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "serve %s", s.name)
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests up to
// the context deadline, then closes whatever is left (hijacked websockets
// included).
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("stopping server...", "server", s.name)
	err := s.srv.Shutdown(ctx)
	if err != nil {
		s.srv.Close()
	}
	return err
}

// NewAPIServer binds the dealer API. A positive timeout bounds every
// non-websocket request.
func NewAPIServer(addr string, handler http.Handler, timeout time.Duration) (*Server, error) {
	if timeout > 0 {
		handler = handleAPITimeout(handler, timeout)
	}
	s, err := listen("API", addr, "/", handler)
	if err != nil {
		return nil, err
	}
	// websocket streams outlive any read deadline
	s.srv.ReadTimeout = 0
	return s, nil
}

func handleAPITimeout(h http.Handler, timeout time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			h.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}
