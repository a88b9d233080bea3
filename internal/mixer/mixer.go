// Package mixer builds parameter changes for common mixer controls.
package mixer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/1ureka/ucctl/internal/protocol"
)

// Channels is the number of line inputs addressable by channel number.
const Channels = 32

const bypassParam = "global/mixerBypass"

var (
	ErrChannelRange = fmt.Errorf("mixer: channel must be between 1 and %d", Channels)
	ErrLevelRange   = errors.New("mixer: level must be between 0 and 1")
	ErrEmptyName    = errors.New("mixer: parameter name is empty")
)

// Sender queues a packet for the device. *transport.Driver satisfies it.
type Sender interface {
	Send(protocol.Packet) error
}

// Mixer sends parameter changes on the control address.
type Mixer struct {
	s Sender
}

func New(s Sender) *Mixer {
	return &Mixer{s: s}
}

// SetParam sets name to value.
func (m *Mixer) SetParam(name string, value float32) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return m.s.Send(protocol.ParamValue{AP: protocol.ControlAddress, Name: name, Value: value})
}

// SetMixerBypass turns the global mixer bypass on or off.
func (m *Mixer) SetMixerBypass(bypass bool) error {
	return m.SetParam(bypassParam, boolValue(bypass))
}

// MuteChannel mutes or unmutes line input ch (1-based).
func (m *Mixer) MuteChannel(ch int, mute bool) error {
	if ch < 1 || ch > Channels {
		return ErrChannelRange
	}
	return m.SetParam(fmt.Sprintf("line/ch%d/mute", ch), boolValue(mute))
}

// SetVolume sets the fader of line input ch to a normalized level.
func (m *Mixer) SetVolume(ch int, level float32) error {
	if ch < 1 || ch > Channels {
		return ErrChannelRange
	}
	if math.IsNaN(float64(level)) || level < 0 || level > 1 {
		return ErrLevelRange
	}
	return m.SetParam(fmt.Sprintf("line/ch%d/volume", ch), level)
}

// ParseValue accepts on/off style words as well as numbers.
func ParseValue(s string) (float32, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes":
		return 1, nil
	case "off", "false", "no":
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("mixer: invalid value %q", s)
	}
	return float32(v), nil
}

func boolValue(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
