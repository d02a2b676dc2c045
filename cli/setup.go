package cli

import (
	"fmt"

	"go.uber.org/zap"

	"go-recplay/debug"
	"go-recplay/engine"
	"go-recplay/rig"
)

// headlessLogger logs to stderr (or deps.LogOut) at the configured level
func headlessLogger(deps *Dependencies) (*zap.Logger, func(), error) {
	return debug.New(debug.Options{
		Sink:  debug.SinkStderr,
		Level: deps.Config.LogLevel,
		Out:   deps.LogOut,
	})
}

// openRig builds a session and opens the configured ports. With strict set a
// port that fails to open is an error; otherwise failures are returned as
// warnings for the caller to show.
func openRig(deps *Dependencies, log *zap.Logger, strict bool) (*rig.Rig, []error, error) {
	cfg := deps.Config
	session := engine.NewSession(
		engine.WithLogger(log.Named("engine")),
		engine.WithPollQuantum(cfg.PollQuantum()),
	)
	r := rig.New(session, deps.openers(log), log.Named("rig"))

	var warnings []error
	fail := func(err error) error {
		if strict {
			r.Close()
			return err
		}
		log.Warn("port unavailable", zap.Error(err))
		warnings = append(warnings, err)
		return nil
	}

	if err := r.SetOverride(cfg.Override()); err != nil {
		r.Close()
		return nil, nil, err
	}
	if cfg.Output != "" {
		if err := r.SetOutput(cfg.Output); err != nil {
			if err := fail(err); err != nil {
				return nil, nil, err
			}
		}
	} else if strict {
		r.Close()
		return nil, nil, fmt.Errorf("%w: set --out or output in the config", engine.ErrNoSinkConfigured)
	}
	if cfg.Input != "" {
		if err := r.SetInput(cfg.Input); err != nil {
			if err := fail(err); err != nil {
				return nil, nil, err
			}
		}
	} else if strict {
		r.Close()
		return nil, nil, fmt.Errorf("%w: set --in or input in the config", engine.ErrNoSourceConfigured)
	}
	return r, warnings, nil
}
