// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import "github.com/relabs-tech/motion_collector/internal/imu"

// PairBuffer holds the most recent accel and gyro reading.
// Combining does not consume either value: a sensor that reports less often
// than the other shows up in several consecutive samples.
type PairBuffer struct {
	accel    imu.AxisTriple
	gyro     imu.AxisTriple
	hasAccel bool
	hasGyro  bool
}

// Update overwrites the stored value for t. It reports false for types that
// are not paired (magnet, unknown), leaving the buffer unchanged.
func (b *PairBuffer) Update(t imu.SensorType, v imu.AxisTriple) bool {
	switch t {
	case imu.SensorAccel:
		b.accel, b.hasAccel = v, true
	case imu.SensorGyro:
		b.gyro, b.hasGyro = v, true
	default:
		return false
	}
	return true
}

// Ready reports whether both sensors have been seen at least once.
func (b *PairBuffer) Ready() bool {
	return b.hasAccel && b.hasGyro
}

// TryCombine returns the latest value of each sensor, or ok=false until both are set.
func (b *PairBuffer) TryCombine() (accel, gyro imu.AxisTriple, ok bool) {
	if !b.Ready() {
		return imu.AxisTriple{}, imu.AxisTriple{}, false
	}
	return b.accel, b.gyro, true
}
