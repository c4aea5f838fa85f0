// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/relabs-tech/motion_collector/internal/config"
	"github.com/relabs-tech/motion_collector/internal/session"
	"github.com/relabs-tech/motion_collector/internal/sink"
)

// RunTrain records labeled samples for activity into the training data
// directory. The session ends TRAINING_DURATION after the first recorded
// sample, or when the phone disconnects.
func RunTrain(activity string) error {
	if err := config.ValidateActivity(activity); err != nil {
		return err
	}
	cfg := config.Get()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv, err := newTrainServer(cfg, activity, os.Stdout)
	if err != nil {
		return err
	}

	log.Printf("the first %d sensor readings will be ignored to give you time to get the phone in position", cfg.WarmupCount)
	return srv.Run(ctx)
}

func newTrainServer(cfg *config.Config, activity string, progress io.Writer) (*server, error) {
	fs, err := sink.NewFileSink(sink.TrainingFile(cfg.TrainingDataDir, activity))
	if err != nil {
		return nil, err
	}
	log.Printf("appending %s samples to %s", activity, fs.Path())

	policy := session.Timed(cfg.TrainingDuration)
	policy.StopOnDisconnect = cfg.StopOnDisconnect

	return newServer(cfg, fs, session.Options{
		ID:           uuid.NewString(),
		Label:        activity,
		WarmupCount:  cfg.WarmupCount,
		Policy:       policy,
		DrainTimeout: cfg.DrainTimeout,
	}, progress)
}
