package models

import "fmt"

// PolicyKind selects which stations of a source table are kept.
type PolicyKind int

const (
	PolicyEverything PolicyKind = iota
	PolicyCountry
	PolicyRegion
)

func (k PolicyKind) String() string {
	switch k {
	case PolicyEverything:
		return "everything"
	case PolicyCountry:
		return "country"
	case PolicyRegion:
		return "region"
	default:
		return fmt.Sprintf("PolicyKind(%d)", int(k))
	}
}

// InclusionPolicy is a tagged union: Country is only meaningful for
// PolicyCountry, RegionFile and BufferKm only for PolicyRegion.
type InclusionPolicy struct {
	Kind       PolicyKind
	Country    string
	RegionFile string
	BufferKm   float64
}

func Everything() InclusionPolicy {
	return InclusionPolicy{Kind: PolicyEverything}
}

func Country(code string) InclusionPolicy {
	return InclusionPolicy{Kind: PolicyCountry, Country: code}
}

func Region(path string, bufferKm float64) InclusionPolicy {
	return InclusionPolicy{Kind: PolicyRegion, RegionFile: path, BufferKm: bufferKm}
}

// SortMode is the ordering applied to the output list.
type SortMode string

const (
	SortByID          SortMode = "id"
	SortByCoordinates SortMode = "coordinates"
)

// Casters is the fixed set of casters that can be selected.
var Casters = []string{"RTK2GO", "CENTIPEDE", "EMLID"}
