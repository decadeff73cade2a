package catalog

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Logical field names used for header lookup.
const (
	fieldCarID   = "car_id"
	fieldChassis = "chassis"
	fieldYellow  = "yellow"
	fieldGreen   = "green"
	fieldGold    = "gold"
	fieldTank    = "tank"
)

// headerAliases lists the accepted column spellings per logical field.
// Matching is case-, whitespace- and accent-insensitive, so "Amarela" and
// " AMARELA " both resolve to the yellow threshold.
var headerAliases = map[string][]string{
	fieldCarID:   {"CARRO", "PREFIXO", "VEICULO", "CAR_ID"},
	fieldChassis: {"CHASSI", "TIPO_CHASSI", "TIPO", "CHASSIS_TYPE"},
	fieldYellow:  {"AMARELA", "TH_YELLOW"},
	fieldGreen:   {"VERDE", "TH_GREEN"},
	fieldGold:    {"OURO", "TH_GOLD"},
	fieldTank:    {"TANQUE", "CAPACIDADE_TANQUE", "TANK_CAPACITY"},
}

// HeaderIndex maps canonicalized column names to their position in a row.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a lookup table from a header row.
// Later duplicate columns win, matching spreadsheet reading order.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, name := range header {
		if c := canonicalHeader(name); c != "" {
			idx[c] = i
		}
	}
	return idx
}

// NormalizeRow converts a raw spreadsheet row into a Record candidate.
// The second return value is false when the row carries no vehicle
// identifier; such rows are silently excluded from the catalog, not errors.
//
// Missing threshold cells default to 0, so "no target" and "target is 0"
// are indistinguishable downstream; tier classification treats a 0 target
// as no target.
func NormalizeRow(row []string, idx HeaderIndex) (Record, bool) {
	carID := NormalizeCarID(cell(row, idx, fieldCarID))
	if carID == "" {
		return Record{}, false
	}

	rec := Record{
		CarID:       carID,
		Status:      StatusActive,
		ChassisType: NormalizeChassis(cell(row, idx, fieldChassis)),
	}

	rec.Yellow, _ = ParseDecimal(cell(row, idx, fieldYellow))
	rec.Green, _ = ParseDecimal(cell(row, idx, fieldGreen))
	rec.Gold, _ = ParseDecimal(cell(row, idx, fieldGold))

	if v, ok := ParseDecimal(cell(row, idx, fieldTank)); ok {
		rec.TankCapacity = &v
	}

	return rec, true
}

// NormalizeCarID strips every non-digit character from a vehicle identifier.
func NormalizeCarID(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// NormalizeChassis maps a raw chassis cell onto the closed vocabulary.
// Matching is exact after accent folding and case normalization; anything
// unrecognized becomes UNKNOWN. No fuzzy matching.
func NormalizeChassis(s string) ChassisType {
	switch strings.ToUpper(strings.TrimSpace(stripAccents(s))) {
	case "CONVENCIONAL":
		return ChassisConvencional
	case "ARTICULADO":
		return ChassisArticulado
	case "PADRAO", "PADRON":
		return ChassisPadrao
	default:
		return ChassisUnknown
	}
}

// ParseDecimal parses a spreadsheet cell as a number, accepting the
// Brazilian decimal comma. Empty cells and non-finite results report false.
func ParseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// cell retrieves a cell by logical field name, trying each header alias.
func cell(row []string, idx HeaderIndex, field string) string {
	for _, alias := range headerAliases[field] {
		if pos, ok := idx[canonicalHeader(alias)]; ok && pos < len(row) {
			return strings.TrimSpace(row[pos])
		}
	}
	return ""
}

// canonicalHeader folds a column name for alias comparison: accents removed,
// uppercased, internal whitespace collapsed to underscores.
func canonicalHeader(name string) string {
	name = strings.ToUpper(strings.TrimSpace(stripAccents(name)))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '_' || r == '\t'
	}), "_")
}

// stripAccents removes diacritics so "PADRÃO" and "PADRAO" compare equal.
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
