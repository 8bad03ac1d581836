package player

// Key identifies a global keyboard shortcut, named after the DOM KeyboardEvent
// code values clients report.
type Key string

const (
	KeySpace      Key = "Space"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
	KeyMute       Key = "KeyM"
	KeyEscape     Key = "Escape"
)

const (
	keySkipSeconds = 15
	keyVolumeStep  = 0.1
)

// digitPercent maps Digit0..Digit9 to a seek percentage. Digit0 seeks to the
// end, matching the existing shortcut contract.
var digitPercent = map[Key]float64{
	"Digit0": 100,
	"Digit1": 10, "Digit2": 20, "Digit3": 30,
	"Digit4": 40, "Digit5": 50, "Digit6": 60,
	"Digit7": 70, "Digit8": 80, "Digit9": 90,
}

// HandleKey applies the global shortcut map to the session. It reports
// whether the key was consumed; unhandled keys and keys pressed while the
// player is hidden fall through to the host.
func (s *Session) HandleKey(key Key) bool {
	state := s.store.State()
	if !state.IsVisible {
		return false
	}

	switch key {
	case KeySpace:
		s.Toggle()
	case KeyArrowLeft:
		s.Skip(-keySkipSeconds)
	case KeyArrowRight:
		s.Skip(keySkipSeconds)
	case KeyArrowUp:
		s.SetVolume(min(1, state.Volume+keyVolumeStep))
	case KeyArrowDown:
		s.SetVolume(max(0, state.Volume-keyVolumeStep))
	case KeyMute:
		s.SetMuted(!state.IsMuted)
	case KeyEscape:
		s.Close()
	default:
		percent, ok := digitPercent[key]
		if !ok {
			return false
		}
		s.SeekFraction(percent / 100)
	}
	return true
}
