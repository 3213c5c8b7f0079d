// Package trackstatus decodes the packed per-lap track status token
// delivered by the timing API. The token is a string of digit codes,
// one per status observation within the lap.
package trackstatus

type Flags struct {
	SafetyCar        bool
	VirtualSafetyCar bool
	RedFlag          bool
	YellowFlag       bool
}

// Decode maps a raw status token to semantic incident flags.
// Digit conventions: 2/3 yellow, 4 safety car, 5 red flag, 6/7 virtual
// safety car. Unrecognized or missing input yields all-false.
func Decode(token string) Flags {
	var f Flags
	for _, c := range token {
		switch c {
		case '2', '3':
			f.YellowFlag = true
		case '4':
			f.SafetyCar = true
		case '5':
			f.RedFlag = true
		case '6', '7':
			f.VirtualSafetyCar = true
		}
	}
	return f
}

// Or combines two observations of the same lap: a lap is under safety
// car if any contributing observation says so.
func (f Flags) Or(other Flags) Flags {
	return Flags{
		SafetyCar:        f.SafetyCar || other.SafetyCar,
		VirtualSafetyCar: f.VirtualSafetyCar || other.VirtualSafetyCar,
		RedFlag:          f.RedFlag || other.RedFlag,
		YellowFlag:       f.YellowFlag || other.YellowFlag,
	}
}
