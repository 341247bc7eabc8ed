package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Server wraps the echo instance with lifecycle control so main can shut
// it down gracefully.
type Server struct {
	echo     *echo.Echo
	addr     string
	certFile string
	keyFile  string
	useTLS   bool
}

func New(e *echo.Echo, addr string) *Server {
	return &Server{echo: e, addr: addr}
}

// WithTLS makes Start serve HTTPS with the given certificate pair.
func (s *Server) WithTLS(certFile, keyFile string) *Server {
	s.certFile = certFile
	s.keyFile = keyFile
	s.useTLS = true
	return s
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	var err error
	if s.useTLS {
		err = s.echo.StartTLS(s.addr, s.certFile, s.keyFile)
	} else {
		err = s.echo.Start(s.addr)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.addr
}
