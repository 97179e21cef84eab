package entities

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// TicketStatus is the lifecycle status of a ticket. It is a closed set;
// callers are expected to switch over every value.
type TicketStatus int

const (
	// TicketOpen is a live ticket with a writable channel.
	TicketOpen TicketStatus = iota

	// TicketClosed is a resolved ticket. Closed tickets can be reopened.
	TicketClosed

	// TicketArchived is a closed ticket kept for reference. Archival is a
	// classification only; it changes no channel permissions.
	TicketArchived
)

// String implements the fmt.Stringer interface.
func (s TicketStatus) String() string {
	switch s {
	case TicketOpen:
		return "open"
	case TicketClosed:
		return "closed"
	case TicketArchived:
		return "archived"
	default:
		return fmt.Sprintf("TicketStatus(%d)", int(s))
	}
}

// ParseTicketStatus parses the string form of a ticket status.
func ParseTicketStatus(s string) (TicketStatus, error) {
	switch s {
	case "open":
		return TicketOpen, nil
	case "closed":
		return TicketClosed, nil
	case "archived":
		return TicketArchived, nil
	default:
		return 0, fmt.Errorf("unknown ticket status %q", s)
	}
}

// MarshalBSONValue stores the status as its string form so the collection
// remains greppable.
func (s TicketStatus) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(s.String())
}

func (s *TicketStatus) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	str, ok := rv.StringValueOK()
	if !ok {
		return fmt.Errorf("invalid scan, bson type %s not supported for %T", t, s)
	}
	parsed, err := ParseTicketStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (s TicketStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (s *TicketStatus) UnmarshalJSON(text []byte) error {
	str := string(text)
	if len(str) >= 2 && str[0] == '"' {
		str = str[1 : len(str)-1]
	}
	parsed, err := ParseTicketStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
