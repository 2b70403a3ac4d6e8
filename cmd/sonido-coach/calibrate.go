package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-coach/baseline"
	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/transcode"
)

func (a *app) baselineAnalyzer() *baseline.Analyzer {
	an := a.cfg.Analysis
	return baseline.NewAnalyzer(baseline.Config{
		TargetRate:     an.TargetRate,
		FrameSize:      an.FrameSize,
		HopSize:        an.HopSize,
		YinThreshold:   an.YinThreshold,
		RMSGate:        an.RMSGate,
		ConfidenceGate: an.ConfidenceGate,
	}, transcode.NewDecoder(&a.cfg.Decoder), baseline.WithLogger(a.logger))
}

func runCalibrate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("calibrate", flag.ContinueOnError)
	save := fs.Bool("save", false, "save the profile to the profile store")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("calibrate takes exactly one recording")
	}

	profile, err := a.baselineAnalyzer().AnalyzeFile(ctx, fs.Arg(0))
	if err != nil {
		if errors.Is(err, baseline.ErrNoVoicedFrames) {
			return fmt.Errorf("no voice found in %s; record a few seconds of sustained speech", fs.Arg(0))
		}
		return err
	}

	if *save {
		store, err := baseline.NewFileStore(a.cfg.Profiles.Dir)
		if err != nil {
			return err
		}
		if err := store.Save(ctx, profile); err != nil {
			return err
		}
		a.logger.Info("Profile saved", logging.Fields{"profile_id": profile.ID, "dir": a.cfg.Profiles.Dir})
	}
	return a.printJSON(profile)
}

func runCompare(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("compare takes a baseline and a current profile")
	}

	base, err := a.resolveProfile(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	cur, err := a.resolveProfile(ctx, fs.Arg(1))
	if err != nil {
		return fmt.Errorf("current: %w", err)
	}
	return a.printJSON(baseline.Compare(base, cur))
}

func runProfiles(ctx context.Context, a *app, args []string) error {
	store, err := baseline.NewFileStore(a.cfg.Profiles.Dir)
	if err != nil {
		return err
	}
	profiles, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		fmt.Fprintf(a.stdout, "%s  %s  pitch %.1f Hz  %d voiced frames  %s\n",
			p.ID, p.CreatedAt.Format("2006-01-02 15:04"), p.Pitch.Mean, p.VoicedFrames, p.Source)
	}
	return nil
}

// resolveProfile accepts a stored profile ID, a profile JSON file or a
// recording to analyse
func (a *app) resolveProfile(ctx context.Context, arg string) (*baseline.Profile, error) {
	if _, err := uuid.Parse(arg); err == nil {
		store, err := baseline.NewFileStore(a.cfg.Profiles.Dir)
		if err != nil {
			return nil, err
		}
		return store.Load(ctx, arg)
	}

	if filepath.Ext(arg) == ".json" {
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, err
		}
		var p baseline.Profile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", arg, err)
		}
		return &p, nil
	}

	return a.baselineAnalyzer().AnalyzeFile(ctx, arg)
}
