package pushover

import "fmt"

// Sound is a notification sound; its value is the literal sent to the API.
type Sound string

const (
	SoundUserDefault  Sound = ""
	SoundPushover     Sound = "pushover"
	SoundBike         Sound = "bike"
	SoundBugle        Sound = "bugle"
	SoundCashRegister Sound = "cashregister"
	SoundClassical    Sound = "classical"
	SoundCosmic       Sound = "cosmic"
	SoundFalling      Sound = "falling"
	SoundGamelan      Sound = "gamelan"
	SoundIncoming     Sound = "incoming"
	SoundIntermission Sound = "intermission"
	SoundMagic        Sound = "magic"
	SoundMechanical   Sound = "mechanical"
	SoundPianoBar     Sound = "pianobar"
	SoundSiren        Sound = "siren"
	SoundSpaceAlarm   Sound = "spacealarm"
	SoundTugBoat      Sound = "tugboat"
	SoundAlienAlarm   Sound = "alien"
	SoundClimb        Sound = "climb"
	SoundPersistent   Sound = "persistent"
	SoundEcho         Sound = "echo"
	SoundUpDown       Sound = "updown"
	SoundNone         Sound = "none"
)

var sounds = []Sound{
	SoundUserDefault,
	SoundPushover,
	SoundBike,
	SoundBugle,
	SoundCashRegister,
	SoundClassical,
	SoundCosmic,
	SoundFalling,
	SoundGamelan,
	SoundIncoming,
	SoundIntermission,
	SoundMagic,
	SoundMechanical,
	SoundPianoBar,
	SoundSiren,
	SoundSpaceAlarm,
	SoundTugBoat,
	SoundAlienAlarm,
	SoundClimb,
	SoundPersistent,
	SoundEcho,
	SoundUpDown,
	SoundNone,
}

var validSounds = func() map[Sound]struct{} {
	set := make(map[Sound]struct{}, len(sounds))
	for _, s := range sounds {
		set[s] = struct{}{}
	}
	return set
}()

func (s Sound) String() string { return string(s) }

func (s Sound) IsValid() bool {
	_, ok := validSounds[s]
	return ok
}

// IsValidSound reports whether name exactly matches a known sound.
func IsValidSound(name string) bool {
	return Sound(name).IsValid()
}

func NewSound(name string) (Sound, error) {
	if !IsValidSound(name) {
		return "", fmt.Errorf("%w: invalid sound %q", ErrInvalidArgument, name)
	}
	return Sound(name), nil
}

// Sounds returns the full catalogue, user default first.
func Sounds() []Sound {
	out := make([]Sound, len(sounds))
	copy(out, sounds)
	return out
}
