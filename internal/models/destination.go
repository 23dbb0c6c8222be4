package models

import "strings"

// Destination is a static reference entity: immutable at runtime, loaded
// from the fixed catalog below.
type Destination struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Region      string `json:"region"`
	CountryName string `json:"country_name,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// Region labels used by the front-end filter.
const (
	RegionJapan         = "japan"
	RegionSoutheastAsia = "southeast-asia"
	RegionChina         = "china"
	RegionOceania       = "oceania"
)

// Destinations is the fixed ICN-origin destination catalog.
var Destinations = []Destination{
	{Code: "FUK", DisplayName: "후쿠오카", Region: RegionJapan, CountryName: "일본", CountryCode: "JP"},
	{Code: "KIX", DisplayName: "오사카", Region: RegionJapan, CountryName: "일본", CountryCode: "JP"},
	{Code: "NRT", DisplayName: "도쿄", Region: RegionJapan, CountryName: "일본", CountryCode: "JP"},
	{Code: "CTS", DisplayName: "삿포로", Region: RegionJapan, CountryName: "일본", CountryCode: "JP"},
	{Code: "OKA", DisplayName: "오키나와", Region: RegionJapan, CountryName: "일본", CountryCode: "JP"},
	{Code: "NGO", DisplayName: "나고야", Region: RegionJapan, CountryName: "일본", CountryCode: "JP"},
	{Code: "TPE", DisplayName: "타이베이", Region: RegionChina, CountryName: "대만", CountryCode: "TW"},
	{Code: "HKG", DisplayName: "홍콩", Region: RegionChina, CountryName: "홍콩", CountryCode: "HK"},
	{Code: "MFM", DisplayName: "마카오", Region: RegionChina, CountryName: "마카오", CountryCode: "MO"},
	{Code: "BKK", DisplayName: "방콕", Region: RegionSoutheastAsia, CountryName: "태국", CountryCode: "TH"},
	{Code: "CNX", DisplayName: "치앙마이", Region: RegionSoutheastAsia, CountryName: "태국", CountryCode: "TH"},
	{Code: "DAD", DisplayName: "다낭", Region: RegionSoutheastAsia, CountryName: "베트남", CountryCode: "VN"},
	{Code: "SGN", DisplayName: "호찌민", Region: RegionSoutheastAsia, CountryName: "베트남", CountryCode: "VN"},
	{Code: "HAN", DisplayName: "하노이", Region: RegionSoutheastAsia, CountryName: "베트남", CountryCode: "VN"},
	{Code: "CEB", DisplayName: "세부", Region: RegionSoutheastAsia, CountryName: "필리핀", CountryCode: "PH"},
	{Code: "SIN", DisplayName: "싱가포르", Region: RegionSoutheastAsia, CountryName: "싱가포르", CountryCode: "SG"},
	{Code: "KUL", DisplayName: "쿠알라룸푸르", Region: RegionSoutheastAsia, CountryName: "말레이시아", CountryCode: "MY"},
	{Code: "BKI", DisplayName: "코타키나발루", Region: RegionSoutheastAsia, CountryName: "말레이시아", CountryCode: "MY"},
	{Code: "DPS", DisplayName: "발리", Region: RegionSoutheastAsia, CountryName: "인도네시아", CountryCode: "ID"},
	{Code: "GUM", DisplayName: "괌", Region: RegionOceania, CountryName: "괌", CountryCode: "GU"},
	{Code: "SPN", DisplayName: "사이판", Region: RegionOceania, CountryName: "북마리아나 제도", CountryCode: "MP"},
}

// DestinationByCode looks up a catalog entry; ok is false for unknown codes.
func DestinationByCode(code string) (Destination, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, d := range Destinations {
		if d.Code == code {
			return d, true
		}
	}
	return Destination{}, false
}

// FilterDestinations selects catalog entries by region and/or an explicit
// code list. Empty filters select everything. Unknown codes are ignored.
func FilterDestinations(region string, codes []string) []Destination {
	region = strings.ToLower(strings.TrimSpace(region))

	wanted := map[string]bool{}
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			wanted[c] = true
		}
	}

	var out []Destination
	for _, d := range Destinations {
		if region != "" && d.Region != region {
			continue
		}
		if len(wanted) > 0 && !wanted[d.Code] {
			continue
		}
		out = append(out, d)
	}
	return out
}
