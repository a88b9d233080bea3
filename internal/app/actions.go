package app

import (
	"context"
	"fmt"
	"time"

	"github.com/1ureka/ucctl/internal/protocol"
	"github.com/1ureka/ucctl/internal/util"
)

// SetParam sets one parameter.
func SetParam(name string, value float32) Action {
	return func(_ context.Context, s *Session) error {
		return s.Mixer.SetParam(name, value)
	}
}

// Bypass switches the global mixer bypass.
func Bypass(on bool) Action {
	return func(_ context.Context, s *Session) error {
		return s.Mixer.SetMixerBypass(on)
	}
}

// Mute mutes or unmutes a line input.
func Mute(ch int, on bool) Action {
	return func(_ context.Context, s *Session) error {
		return s.Mixer.MuteChannel(ch, on)
	}
}

// Volume sets a line input fader.
func Volume(ch int, level float32) Action {
	return func(_ context.Context, s *Session) error {
		return s.Mixer.SetVolume(ch, level)
	}
}

// BypassCycle turns the bypass off, on and off again, pausing interval
// between steps. It is a quick way to hear that the session works.
func BypassCycle(interval time.Duration) Action {
	return func(ctx context.Context, s *Session) error {
		for i, on := range []bool{false, true, false} {
			if i > 0 {
				if err := Linger(interval)(ctx, s); err != nil {
					return err
				}
			}
			if err := s.Mixer.SetMixerBypass(on); err != nil {
				return err
			}
			util.LogInfo("mixerBypass set to %t", on)
		}
		return nil
	}
}

// List requests the list stored under key and hands the items to found.
func List(key string, timeout time.Duration, found func(protocol.ParamList)) Action {
	return func(ctx context.Context, s *Session) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		reply := s.Expect(MatchKind(protocol.KindParamList))
		defer reply.Cancel()
		if err := s.Driver.RequestList(key); err != nil {
			return err
		}

		p, err := reply.Wait(ctx)
		if err != nil {
			return fmt.Errorf("app: list %s: %w", key, err)
		}
		found(p.(protocol.ParamList))
		return nil
	}
}

// Linger keeps the session open for d so replies can be observed.
func Linger(d time.Duration) Action {
	return func(ctx context.Context, _ *Session) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// Sequence runs actions in order and stops at the first error.
func Sequence(actions ...Action) Action {
	return func(ctx context.Context, s *Session) error {
		for _, a := range actions {
			if err := a(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
}
