package entities

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ButtonStyle is the visual style of the open-ticket button. It is a closed
// set matching the four styles the platform offers for a custom-ID button.
type ButtonStyle int

const (
	// StylePrimary is the blurple call-to-action style.
	StylePrimary ButtonStyle = iota

	// StyleSecondary is the grey style.
	StyleSecondary

	// StyleSuccess is the green style.
	StyleSuccess

	// StyleDanger is the red style.
	StyleDanger
)

// String implements the fmt.Stringer interface.
func (s ButtonStyle) String() string {
	switch s {
	case StylePrimary:
		return "primary"
	case StyleSecondary:
		return "secondary"
	case StyleSuccess:
		return "success"
	case StyleDanger:
		return "danger"
	default:
		return fmt.Sprintf("ButtonStyle(%d)", int(s))
	}
}

// ParseButtonStyle parses the string form of a button style.
func ParseButtonStyle(s string) (ButtonStyle, error) {
	switch s {
	case "primary":
		return StylePrimary, nil
	case "secondary":
		return StyleSecondary, nil
	case "success":
		return StyleSuccess, nil
	case "danger":
		return StyleDanger, nil
	default:
		return 0, fmt.Errorf("unknown button style %q", s)
	}
}

func (s ButtonStyle) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(s.String())
}

func (s *ButtonStyle) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	str, ok := rv.StringValueOK()
	if !ok {
		return fmt.Errorf("invalid scan, bson type %s not supported for %T", t, s)
	}
	parsed, err := ParseButtonStyle(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (s ButtonStyle) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (s *ButtonStyle) UnmarshalJSON(text []byte) error {
	str := string(text)
	if len(str) >= 2 && str[0] == '"' {
		str = str[1 : len(str)-1]
	}
	parsed, err := ParseButtonStyle(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
