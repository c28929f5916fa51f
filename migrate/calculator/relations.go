package calculator

// Embedding tells which end of a relation physically stores the foreign key.
type Embedding int

const (
	EmbedHere Embedding = iota
	EmbedThere
)

func (e Embedding) String() string {
	if e == EmbedHere {
		return "EmbedHere"
	}
	return "EmbedThere"
}

// Side describes one end of a relation: the model declaring the field, the
// field name and whether the field is list valued.
type Side struct {
	Model string
	Field string
	List  bool
}

// Embed decides whether relation field here stores the foreign key. there is
// the opposite field, or nil for a relation declared on one side only. The
// result depends only on the two descriptors, never on processing order.
func Embed(here Side, there *Side) Embedding {
	if here.List {
		return EmbedThere
	}
	if there == nil {
		return EmbedHere
	}
	if here.Model == there.Model {
		// self relation
		if there.List || sortsFirst(here, *there) {
			return EmbedHere
		}
		return EmbedThere
	}
	if there.List {
		return EmbedHere
	}
	// 1:1, exactly one side wins
	if sortsFirst(here, *there) {
		return EmbedHere
	}
	return EmbedThere
}

// EmitsJoinTable reports whether list field here creates the join table of
// its relation. Only one end of a many-to-many relation does.
func EmitsJoinTable(here Side, there *Side) bool {
	if !here.List {
		return false
	}
	if there == nil {
		return true
	}
	return there.List && sortsFirst(here, *there)
}

// sortsFirst compares field names, falling back to model names when both
// ends use the same field name.
func sortsFirst(a, b Side) bool {
	if a.Field != b.Field {
		return a.Field < b.Field
	}
	return a.Model < b.Model
}
