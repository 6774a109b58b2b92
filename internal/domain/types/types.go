// Package types contains the closed enumerations and point values shared
// across the application.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownValue is returned when parsing a name that is not part of an enum.
var ErrUnknownValue = errors.New("unknown enum value")

// Grid dimensions. Cell indexes run row-major, top row first.
const (
	GridColumns = 9
	GridRows    = 3
	GridCells   = GridColumns * GridRows

	// hybridRowStart is the first cell of the bottom row, which accepts any item.
	hybridRowStart = GridColumns * int(RowBottom)
)

// ItemKind is what a robot can hold or place on the grid.
type ItemKind int

// Item kinds. ItemEmpty doubles as "nothing held" and "nothing placed".
const (
	ItemEmpty ItemKind = iota
	ItemCube
	ItemCone
)

// Color identifies an alliance.
type Color int

// Alliance colors.
const (
	Red Color = iota
	Blue
)

// Slot is a robot's starting position.
type Slot int

// Starting slots.
const (
	SlotLeft Slot = iota
	SlotCenter
	SlotRight
)

// Row is a scoring grid row.
type Row int

// Grid rows.
const (
	RowTop Row = iota
	RowMiddle
	RowBottom
)

// Origin is where a game piece was picked up from.
type Origin int

// Pickup origins.
const (
	OriginField Origin = iota
	OriginLoadingDrop
	OriginLoadingSlide
	OriginLoadingChute
	OriginSingleSubstation
	OriginDoubleSubstation
)

// Phase is the match period.
type Phase int

// Match phases.
const (
	PhaseAuto Phase = iota
	PhaseTeleop
)

var (
	itemNames   = []string{"empty", "cube", "cone"}
	colorNames  = []string{"red", "blue"}
	slotNames   = []string{"left", "center", "right"}
	rowNames    = []string{"top", "middle", "bottom"}
	originNames = []string{"field", "loading_drop", "loading_slide", "loading_chute", "single_substation", "double_substation"}
	phaseNames  = []string{"AUTO", "TELEOP"}
)

func name(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("unknown(%d)", i)
	}
	return names[i]
}

func parse(names []string, what, s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if strings.ToLower(n) == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q", ErrUnknownValue, what, s)
}

func (k ItemKind) String() string { return name(itemNames, int(k)) }
func (c Color) String() string    { return name(colorNames, int(c)) }
func (s Slot) String() string     { return name(slotNames, int(s)) }
func (r Row) String() string      { return name(rowNames, int(r)) }
func (o Origin) String() string   { return name(originNames, int(o)) }
func (p Phase) String() string    { return name(phaseNames, int(p)) }

// Valid reports whether k is a declared item kind.
func (k ItemKind) Valid() bool { return k >= ItemEmpty && k <= ItemCone }

// Valid reports whether c is a declared color.
func (c Color) Valid() bool { return c == Red || c == Blue }

// Valid reports whether o is a declared origin.
func (o Origin) Valid() bool { return o >= OriginField && o <= OriginDoubleSubstation }

// Other returns the opposing alliance color.
func (c Color) Other() Color {
	if c == Red {
		return Blue
	}
	return Red
}

// ParseItemKind parses an item kind name such as "cube".
func ParseItemKind(s string) (ItemKind, error) {
	i, err := parse(itemNames, "item", s)
	return ItemKind(i), err
}

// ParseColor parses an alliance color name.
func ParseColor(s string) (Color, error) {
	i, err := parse(colorNames, "alliance", s)
	return Color(i), err
}

// ParseSlot parses a starting slot name.
func ParseSlot(s string) (Slot, error) {
	i, err := parse(slotNames, "slot", s)
	return Slot(i), err
}

// ParseOrigin parses a pickup origin name.
func ParseOrigin(s string) (Origin, error) {
	i, err := parse(originNames, "origin", s)
	return Origin(i), err
}

// MarshalText implements encoding.TextMarshaler.
func (k ItemKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ItemKind) UnmarshalText(b []byte) error {
	v, err := ParseItemKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Slot) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Slot) UnmarshalText(b []byte) error {
	v, err := ParseSlot(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (o Origin) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Origin) UnmarshalText(b []byte) error {
	v, err := ParseOrigin(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// RowOf returns the grid row of a cell index.
func RowOf(cell int) Row {
	return Row(cell / GridColumns)
}

// ValidCell reports whether cell is inside the grid.
func ValidCell(cell int) bool {
	return cell >= 0 && cell < GridCells
}

// IsHybrid reports whether cell is on the bottom row.
func IsHybrid(cell int) bool {
	return cell >= hybridRowStart
}

// Accepts reports whether an item of kind may be placed on cell.
// Every third column above the hybrid row takes cubes only.
func Accepts(cell int, kind ItemKind) bool {
	if kind == ItemEmpty || !ValidCell(cell) {
		return false
	}
	if IsHybrid(cell) {
		return true
	}
	if cell%3 == 1 {
		return kind == ItemCube
	}
	return true
}
