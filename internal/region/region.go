// Package region holds the fixed Gyeongnam region taxonomy and the
// deterministic keyword classifier that forms the first classification tier.
package region

import "strings"

// Type categorizes a region within the taxonomy.
type Type string

const (
	TypeNational   Type = "national"
	TypeProvincial Type = "provincial"
	TypeMunicipal  Type = "municipal"
	TypeOther      Type = "other"
)

// Root codes of the taxonomy.
const (
	CodeAll       = "ALL"
	CodeGyeongnam = "GYEONGNAM"
	CodeOther     = "OTHER"
)

// Region is one entry of the fixed taxonomy.
type Region struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Type   Type   `json:"type"`
	Parent string `json:"parent,omitempty"`
}

// regions lists the full 21-code taxonomy: one national root, the provincial
// root, a catch-all for everything outside the province, and the 18
// municipal areas parented to the provincial root.
var regions = []Region{
	{Code: CodeAll, Name: "전국", Type: TypeNational},
	{Code: CodeGyeongnam, Name: "경상남도", Type: TypeProvincial},
	{Code: CodeOther, Name: "경남 이외 지역", Type: TypeOther},
	{Code: "GYEONGNAM_01", Name: "창원시", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_02", Name: "진주시", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_03", Name: "통영시", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_04", Name: "사천시", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_05", Name: "김해시", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_06", Name: "밀양시", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_07", Name: "거제시", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_08", Name: "양산시", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_09", Name: "의령군", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_10", Name: "함안군", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_11", Name: "창녕군", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_12", Name: "고성군", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_13", Name: "남해군", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_14", Name: "하동군", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_15", Name: "산청군", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_16", Name: "함양군", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_17", Name: "거창군", Type: TypeMunicipal, Parent: CodeGyeongnam},
	{Code: "GYEONGNAM_18", Name: "합천군", Type: TypeMunicipal, Parent: CodeGyeongnam},
}

// Taxonomy is the immutable region table, built once at process start and
// shared by reference.
type Taxonomy struct {
	ordered []Region
	byCode  map[string]Region
}

// NewTaxonomy builds the fixed taxonomy.
func NewTaxonomy() *Taxonomy {
	byCode := make(map[string]Region, len(regions))
	for _, r := range regions {
		byCode[r.Code] = r
	}
	return &Taxonomy{ordered: regions, byCode: byCode}
}

// Get returns the region for a code.
func (t *Taxonomy) Get(code string) (Region, bool) {
	r, ok := t.byCode[code]
	return r, ok
}

// Valid reports whether code belongs to the taxonomy.
func (t *Taxonomy) Valid(code string) bool {
	_, ok := t.byCode[code]
	return ok
}

// All returns every region in fixed order.
func (t *Taxonomy) All() []Region {
	out := make([]Region, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Municipalities returns the 18 municipal regions in fixed order.
func (t *Taxonomy) Municipalities() []Region {
	var out []Region
	for _, r := range t.ordered {
		if r.Type == TypeMunicipal {
			out = append(out, r)
		}
	}
	return out
}

// Name returns the display name for a code, or the code itself when unknown.
func (t *Taxonomy) Name(code string) string {
	if r, ok := t.byCode[code]; ok {
		return r.Name
	}
	return code
}

// Description renders a prompt-ready label for the region, pairing the
// Korean name with its administrative level.
func (r Region) Description() string {
	switch r.Type {
	case TypeNational:
		return r.Name + " (모든 지역 대상)"
	case TypeProvincial:
		return r.Name + " (광역자치단체)"
	case TypeMunicipal:
		if strings.HasSuffix(r.Name, "군") {
			return r.Name + " (경남 군)"
		}
		return r.Name + " (경남 시)"
	default:
		return r.Name
	}
}
