// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transport delivers inbound reading events to a session: request
// style over HTTP, push style over a websocket, or line style over serial.
package transport

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/relabs-tech/motion_collector/internal/imu"
	"github.com/relabs-tech/motion_collector/internal/session"
)

// maxPayloadSize bounds one reading payload.
const maxPayloadSize = 512

// Ingestor is the single entry point all surfaces feed.
type Ingestor interface {
	HandleRaw(t imu.SensorType, payload []byte) (session.Outcome, error)
	HandleEvent(ev imu.ReadingEvent) (session.Outcome, error)
	Reject() session.Outcome
	Disconnect()
	Status() session.Status
}

// Handler serves the HTTP and websocket surfaces.
type Handler struct {
	ing Ingestor
}

func NewHandler(ing Ingestor) *Handler {
	return &Handler{ing: ing}
}

// NewRouter wires the reading endpoints, the websocket and the status API.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	for _, t := range []imu.SensorType{imu.SensorAccel, imu.SensorGyro} {
		r.Get("/"+t.String(), h.HandleReading(t))
		r.Post("/"+t.String(), h.HandleReading(t))
	}
	r.Get("/magnet", h.HandleMagnet)
	r.Post("/magnet", h.HandleMagnet)

	r.Get("/ws", h.HandlePush)
	r.With(middleware.Logger).Get("/api/status", h.HandleStatus)

	return r
}

// HandleReading accepts one JSON AxisTriple, carried in a header named after
// the sensor (as the phone app sends it) or in the request body.
func (h *Handler) HandleReading(t imu.SensorType) http.HandlerFunc {
	tag := t.String()
	return func(w http.ResponseWriter, r *http.Request) {
		payload := []byte(r.Header.Get(tag))
		if len(payload) == 0 && r.Body != nil {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize))
			if err != nil {
				http.Error(w, "Bad Request", http.StatusBadRequest)
				return
			}
			payload = body
		}

		if _, err := h.ing.HandleRaw(t, payload); err != nil {
			log.Printf("http: dropped %s reading: %v", tag, err)
			http.Error(w, "Invalid "+tag+" data.", http.StatusBadRequest)
			return
		}
		io.WriteString(w, "Received "+tag+" data.")
	}
}

// HandleMagnet accepts magnetometer readings and discards them.
func (h *Handler) HandleMagnet(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "Received magnet data.")
}

// HandleStatus reports the session counters as JSON.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.ing.Status()); err != nil {
		log.Printf("http: status encode error: %v", err)
	}
}
