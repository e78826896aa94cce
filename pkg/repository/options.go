package repository

// Option tunes how a query returns its results.
type Option interface {
	option()
}

// OffsetOption skips the first N results.
type OffsetOption struct {
	Offset int64
}

// LimitOption caps the number of results.
type LimitOption struct {
	Limit int64
}

// Direction defines the order of a sorted attribute.
type Direction string

const (
	// Ascending sorts from the lowest value.
	Ascending Direction = "ASCENDING"
	// Descending sorts from the highest value.
	Descending Direction = "DESCENDING"
)

// SortedAttribute is one sort key.
type SortedAttribute struct {
	Attribute string
	Direction Direction
}

// SortOption orders results. Earlier attributes are primary sort keys.
type SortOption struct {
	Attributes []SortedAttribute
}

// Offset skips the first n results.
func Offset(n int64) OffsetOption { return OffsetOption{Offset: n} }

// Limit returns at most n results.
func Limit(n int64) LimitOption { return LimitOption{Limit: n} }

// Sort starts an empty sort option.
func Sort() SortOption { return SortOption{} }

// Add appends a sort key and returns the extended option.
func (s SortOption) Add(attribute string, direction Direction) SortOption {
	attrs := make([]SortedAttribute, len(s.Attributes), len(s.Attributes)+1)
	copy(attrs, s.Attributes)
	s.Attributes = append(attrs, SortedAttribute{Attribute: attribute, Direction: direction})
	return s
}

func (OffsetOption) option() {}
func (LimitOption) option()  {}
func (SortOption) option()   {}
