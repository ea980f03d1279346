// Package proxy runs an in-process SOCKS5 proxy that browsers under test can
// be pointed at.
package proxy

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	socks5 "github.com/armon/go-socks5"
	"github.com/golang/glog"
)

// Option configures a Server.
type Option func(*socks5.Config)

// RedirectTo sends every proxied connection to host:port, whatever address
// the browser asked for.
func RedirectTo(host string, port int) Option {
	return func(c *socks5.Config) {
		c.Rewriter = &addrRewriter{host: host, port: port}
	}
}

type addrRewriter struct {
	host string
	port int
}

func (a *addrRewriter) Rewrite(ctx context.Context, _ *socks5.Request) (context.Context, *socks5.AddrSpec) {
	return ctx, &socks5.AddrSpec{FQDN: a.host, Port: a.port}
}

// glogWriter routes the SOCKS library's log output to glog.
type glogWriter struct{}

func (glogWriter) Write(p []byte) (int, error) {
	glog.V(1).Infof("socks5: %s", p)
	return len(p), nil
}

// Server is a running SOCKS5 proxy.
type Server struct {
	l    net.Listener
	done chan struct{}
	once sync.Once
}

// Start listens on addr, e.g. "127.0.0.1:0", and serves SOCKS5 until Close.
func Start(addr string, opts ...Option) (*Server, error) {
	conf := &socks5.Config{Logger: log.New(glogWriter{}, "", 0)}
	for _, opt := range opts {
		opt(conf)
	}
	socks, err := socks5.New(conf)
	if err != nil {
		return nil, fmt.Errorf("socks5.New(_) returned error: %w", err)
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{l: l, done: make(chan struct{})}
	go func() {
		err := socks.Serve(l)
		select {
		case <-s.done:
			return
		default:
		}
		if err != nil {
			glog.Errorf("SOCKS5 proxy at %s stopped: %v", l.Addr(), err)
		}
	}()
	glog.Infof("SOCKS5 proxy listening at %s", l.Addr())
	return s, nil
}

// Addr is the host:port browsers should use.
func (s *Server) Addr() string {
	return s.l.Addr().String()
}

// Close stops accepting connections. It is safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.l.Close()
	})
	return err
}
