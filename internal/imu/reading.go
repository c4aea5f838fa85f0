// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package imu holds the motion reading types shared by every transport and sink.
package imu

import (
	"fmt"
	"strings"
	"time"
)

// SensorType tags an inbound reading.
type SensorType int

const (
	SensorUnknown SensorType = iota
	SensorAccel
	SensorGyro
	// SensorMagnet is accepted on the wire but never paired.
	SensorMagnet
)

var sensorNames = map[SensorType]string{
	SensorAccel:  "accel",
	SensorGyro:   "gyro",
	SensorMagnet: "magnet",
}

func (s SensorType) String() string {
	if n, ok := sensorNames[s]; ok {
		return n
	}
	return "unknown"
}

// ParseSensorType maps an event tag ("accel", "gyro", "magnet") to a SensorType.
func ParseSensorType(tag string) (SensorType, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for t, n := range sensorNames {
		if n == tag {
			return t, nil
		}
	}
	return SensorUnknown, fmt.Errorf("unknown sensor type %q", tag)
}

// AxisTriple is one reading along x, y, z. No unit conversion is applied.
type AxisTriple struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ReadingEvent is created at the transport boundary and consumed immediately.
type ReadingEvent struct {
	Type       SensorType
	Payload    AxisTriple
	ReceivedAt time.Time
}

// CombinedSample pairs the latest accel and gyro readings.
type CombinedSample struct {
	Accel      AxisTriple `json:"accel"`
	Gyro       AxisTriple `json:"gyro"`
	ProducedAt time.Time  `json:"produced_at"`
	Sequence   uint64     `json:"seq"`
}
