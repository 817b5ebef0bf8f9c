package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// legacyGoalIDLength is the length of the hyphenated textual ids issued before goal ids became ObjectIDs.
const legacyGoalIDLength = 36

var ErrInvalidGoalID = errors.New("invalid goal id")

// GoalID identifies a goal. Canonical ids are ObjectIDs; older records may still carry a textual id
// (typically a 36-character hyphenated one) which is kept verbatim until normalized.
type GoalID struct {
	oid primitive.ObjectID
	raw string // set only for non-ObjectID ids read from storage or input
}

// NewGoalID returns a fresh canonical id.
func NewGoalID() GoalID {
	return GoalID{oid: primitive.NewObjectID()}
}

// GoalIDFromObjectID wraps an existing ObjectID.
func GoalIDFromObjectID(oid primitive.ObjectID) GoalID {
	return GoalID{oid: oid}
}

// ParseGoalID reads the textual form of an id. A 24-character hex string yields a canonical id; any other
// non-empty string is kept as a textual id.
func ParseGoalID(s string) (GoalID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return GoalID{}, ErrInvalidGoalID
	}
	if oid, err := primitive.ObjectIDFromHex(s); err == nil {
		return GoalID{oid: oid}, nil
	}
	return GoalID{raw: s}, nil
}

func (id GoalID) IsZero() bool {
	return id.oid.IsZero() && id.raw == ""
}

// IsCanonical reports whether the id is an ObjectID.
func (id GoalID) IsCanonical() bool {
	return !id.oid.IsZero()
}

// IsLegacy reports whether the id uses the old 36-character hyphenated format.
func (id GoalID) IsLegacy() bool {
	return id.raw != "" && len(id.raw) == legacyGoalIDLength && strings.Contains(id.raw, "-")
}

// ObjectID returns the canonical value, or NilObjectID for textual ids.
func (id GoalID) ObjectID() primitive.ObjectID {
	return id.oid
}

func (id GoalID) String() string {
	if id.IsCanonical() {
		return id.oid.Hex()
	}
	return id.raw
}

func (id GoalID) Equal(other GoalID) bool {
	return id.oid == other.oid && id.raw == other.raw
}

// MarshalBSONValue stores canonical ids as ObjectIDs and textual ids as strings.
func (id GoalID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch {
	case id.IsCanonical():
		return bson.MarshalValue(id.oid)
	case id.raw != "":
		return bson.MarshalValue(id.raw)
	default:
		return bson.TypeNull, nil, nil
	}
}

// UnmarshalBSONValue accepts ObjectIDs, strings (legacy records) and null.
func (id *GoalID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeObjectID:
		*id = GoalID{oid: raw.ObjectID()}
	case bson.TypeString:
		s := raw.StringValue()
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			*id = GoalID{oid: oid}
		} else {
			*id = GoalID{raw: s}
		}
	case bson.TypeNull, bson.TypeUndefined:
		*id = GoalID{}
	default:
		return fmt.Errorf("%w: unexpected bson type %s", ErrInvalidGoalID, t)
	}
	return nil
}

func (id GoalID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(id.String())
}

func (id *GoalID) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*id = GoalID{}
		return nil
	}
	parsed, err := ParseGoalID(*s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
