package automation

import (
	"fmt"
	"strings"

	"github.com/micmonay/keybd_event"
)

type Key int

const (
	KeySpace Key = iota + 1
	KeyEnter
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyL
)

var keyNames = map[Key]string{
	KeySpace: "space",
	KeyEnter: "enter",
	KeyLeft:  "left",
	KeyRight: "right",
	KeyUp:    "up",
	KeyDown:  "down",
	KeyL:     "l",
}

var vk = map[Key]int{
	KeySpace: keybd_event.VK_SPACE,
	KeyEnter: keybd_event.VK_ENTER,
	KeyLeft:  keybd_event.VK_LEFT,
	KeyRight: keybd_event.VK_RIGHT,
	KeyUp:    keybd_event.VK_UP,
	KeyDown:  keybd_event.VK_DOWN,
	KeyL:     keybd_event.VK_L,
}

var letters = [26]int{
	keybd_event.VK_A, keybd_event.VK_B, keybd_event.VK_C, keybd_event.VK_D,
	keybd_event.VK_E, keybd_event.VK_F, keybd_event.VK_G, keybd_event.VK_H,
	keybd_event.VK_I, keybd_event.VK_J, keybd_event.VK_K, keybd_event.VK_L,
	keybd_event.VK_M, keybd_event.VK_N, keybd_event.VK_O, keybd_event.VK_P,
	keybd_event.VK_Q, keybd_event.VK_R, keybd_event.VK_S, keybd_event.VK_T,
	keybd_event.VK_U, keybd_event.VK_V, keybd_event.VK_W, keybd_event.VK_X,
	keybd_event.VK_Y, keybd_event.VK_Z,
}

var digits = [10]int{
	keybd_event.VK_0, keybd_event.VK_1, keybd_event.VK_2, keybd_event.VK_3,
	keybd_event.VK_4, keybd_event.VK_5, keybd_event.VK_6, keybd_event.VK_7,
	keybd_event.VK_8, keybd_event.VK_9,
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("key(%d)", int(k))
}

// Chord is a set of keys pressed together with optional modifiers.
type Chord struct {
	Ctrl  bool
	Shift bool
	Keys  []Key
}

func Ctrl(keys ...Key) Chord { return Chord{Ctrl: true, Keys: keys} }

func Press(keys ...Key) Chord { return Chord{Keys: keys} }

func (c Chord) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.Shift {
		parts = append(parts, "shift")
	}
	for _, k := range c.Keys {
		parts = append(parts, k.String())
	}
	return strings.Join(parts, "+")
}

// stroke is one typed character resolved to a virtual key code.
type stroke struct {
	code  int
	shift bool
}

// strokes maps text to key strokes. Only letters, digits and spaces can be
// typed; anything else is skipped and reported.
func strokes(text string) (out []stroke, skipped []rune) {
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, stroke{code: letters[r-'a']})
		case r >= 'A' && r <= 'Z':
			out = append(out, stroke{code: letters[r-'A'], shift: true})
		case r >= '0' && r <= '9':
			out = append(out, stroke{code: digits[r-'0']})
		case r == ' ':
			out = append(out, stroke{code: keybd_event.VK_SPACE})
		default:
			skipped = append(skipped, r)
		}
	}
	return out, skipped
}
