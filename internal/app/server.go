// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/relabs-tech/motion_collector/internal/config"
	"github.com/relabs-tech/motion_collector/internal/session"
	"github.com/relabs-tech/motion_collector/internal/sink"
	"github.com/relabs-tech/motion_collector/internal/transport"
)

const shutdownTimeout = 5 * time.Second

// server ties one session to its transports and sink.
type server struct {
	sess   *session.Session
	ln     net.Listener
	http   *http.Server
	serial io.ReadCloser
}

// newServer opens every transport before the session becomes active, so a
// startup failure never leaves a half-running session behind.
func newServer(cfg *config.Config, snk sink.Sink, opts session.Options, progress io.Writer) (*server, error) {
	disp := sink.NewDispatcher(snk, cfg.QueueSize, progress)
	sess := session.New(disp, opts)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		disp.Close(context.Background())
		return nil, fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}

	var port io.ReadCloser
	if cfg.SerialPort != "" {
		port, err = transport.OpenSerial(transport.SerialConfig{Port: cfg.SerialPort, BaudRate: cfg.SerialBaudRate})
		if err != nil {
			ln.Close()
			disp.Close(context.Background())
			return nil, err
		}
	}

	return &server{
		sess: sess,
		ln:   ln,
		http: &http.Server{
			Handler:           transport.NewRouter(transport.NewHandler(sess)),
			ReadHeaderTimeout: 10 * time.Second,
		},
		serial: port,
	}, nil
}

// Addr is the address the HTTP and websocket surfaces listen on.
func (s *server) Addr() string {
	return s.ln.Addr().String()
}

// Run serves until the session closes on its own or ctx is cancelled.
func (s *server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		if err := s.http.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	log.Printf("listening on %s", s.Addr())

	if s.serial != nil {
		src := transport.NewSerialSource(s.serial, s.sess)
		go func() {
			if err := src.Run(ctx); err != nil {
				log.Printf("serial: %v", err)
			}
		}()
	}

	s.sess.Start()

	var runErr error
	select {
	case <-ctx.Done():
		log.Println("shutting down")
		s.sess.Stop(session.StopSignal)
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
		s.sess.Stop(session.StopSignal)
	case <-s.sess.Done():
	}
	<-s.sess.Done()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	return runErr
}
