package core

import (
	"encoding/json"
	"strings"
)

// IconKind discriminates the two wallet icon representations.
type IconKind int

const (
	IconNone IconKind = iota
	// IconSymbolic is a named glyph with a hex color, e.g. "wallet" + "#a3e635".
	IconSymbolic
	// IconEmbedded is an opaque image reference (data URI or remote URL).
	IconEmbedded
)

// Icon is the tagged form of the wallet icon field. The stored document keeps
// a single string ("name:color" or an image reference); the variant is decided
// once when the record is decoded, never re-sniffed downstream.
type Icon struct {
	Kind     IconKind
	Name     string
	Color    string
	ImageRef string
}

// SymbolicIcon builds a glyph icon.
func SymbolicIcon(name, color string) Icon {
	return Icon{Kind: IconSymbolic, Name: name, Color: color}
}

// EmbeddedIcon builds an image icon from an opaque reference.
func EmbeddedIcon(ref string) Icon {
	return Icon{Kind: IconEmbedded, ImageRef: ref}
}

// DecodeIcon parses the stored string form into the tagged variant.
func DecodeIcon(s string) Icon {
	s = strings.TrimSpace(s)
	if s == "" {
		return Icon{Kind: IconNone}
	}
	if strings.HasPrefix(s, "data:") || strings.Contains(s, "://") {
		return EmbeddedIcon(s)
	}
	if name, color, ok := strings.Cut(s, ":"); ok {
		return SymbolicIcon(name, color)
	}
	// Bare glyph name with no color
	return SymbolicIcon(s, "")
}

// Encode returns the stored string form.
func (i Icon) Encode() string {
	switch i.Kind {
	case IconSymbolic:
		if i.Color == "" {
			return i.Name
		}
		return i.Name + ":" + i.Color
	case IconEmbedded:
		return i.ImageRef
	}
	return ""
}

// MarshalJSON keeps the persisted document shape as a single string field.
func (i Icon) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Encode())
}

func (i *Icon) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*i = DecodeIcon(s)
	return nil
}
