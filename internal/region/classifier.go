package region

import (
	"strings"

	"golang.org/x/text/width"

	"github.com/gyeongnam-biz/collector-cli/internal/model"
)

// Keyword confidence levels. Domestic tokens of two or more characters score
// high; the other-province list scores slightly lower because those names
// only tell us the announcement is outside the province.
const (
	confidenceDomestic      = 0.9
	confidenceShortToken    = 0.7
	confidenceOtherProvince = 0.8
)

// keywordMapping binds one place-name token to a region code. The table is
// an ordered slice: matching is first-match-wins in table order, so more
// specific municipal tokens must come before the provincial and national
// tokens.
type keywordMapping struct {
	token string
	code  string
}

// domesticTokens maps Gyeongnam place names to their codes, municipal
// entries first, then the provincial and national aliases.
var domesticTokens = []keywordMapping{
	{"창원", "GYEONGNAM_01"},
	{"진주", "GYEONGNAM_02"},
	{"통영", "GYEONGNAM_03"},
	{"사천", "GYEONGNAM_04"},
	{"김해", "GYEONGNAM_05"},
	{"밀양", "GYEONGNAM_06"},
	{"거제", "GYEONGNAM_07"},
	{"양산", "GYEONGNAM_08"},
	{"의령", "GYEONGNAM_09"},
	{"함안", "GYEONGNAM_10"},
	{"창녕", "GYEONGNAM_11"},
	{"고성", "GYEONGNAM_12"},
	{"남해", "GYEONGNAM_13"},
	{"하동", "GYEONGNAM_14"},
	{"산청", "GYEONGNAM_15"},
	{"함양", "GYEONGNAM_16"},
	{"거창", "GYEONGNAM_17"},
	{"합천", "GYEONGNAM_18"},
	{"경남", CodeGyeongnam},
	{"경상남도", CodeGyeongnam},
	{"전국", CodeAll},
	{"전 지역", CodeAll},
	{"모든 지역", CodeAll},
}

// otherProvinceTokens are place names outside the province; any of them maps
// to the catch-all code.
var otherProvinceTokens = []string{
	"서울", "부산", "대구", "인천", "광주", "대전", "울산", "세종",
	"경기", "강원", "충북", "충남", "전북", "전남", "경북", "제주",
	"수도권", "영남권", "호남권", "충청권",
}

// Classifier is the deterministic keyword tier. It is pure lookup over the
// fixed token tables and never errors.
type Classifier struct {
	taxonomy *Taxonomy
}

// NewClassifier creates a keyword classifier over the given taxonomy.
func NewClassifier(t *Taxonomy) *Classifier {
	return &Classifier{taxonomy: t}
}

// normalize lowercases and width-folds text so full-width variants of
// digits and latin letters match their half-width tokens.
func normalize(text string) string {
	return strings.ToLower(width.Narrow.String(text))
}

// Classify scans text for region tokens. Domestic tokens are checked first
// in table order; the first substring hit wins. If none match, the
// other-province list is scanned and a hit yields the catch-all code.
// Returns ("", 0) when nothing matches.
func (c *Classifier) Classify(text string) (string, float64) {
	if text == "" {
		return "", 0
	}
	text = normalize(text)

	for _, m := range domesticTokens {
		if strings.Contains(text, m.token) {
			conf := confidenceShortToken
			if len([]rune(m.token)) >= 2 {
				conf = confidenceDomestic
			}
			return m.code, conf
		}
	}

	for _, token := range otherProvinceTokens {
		if strings.Contains(text, token) {
			return CodeOther, confidenceOtherProvince
		}
	}

	return "", 0
}

// ClassifyAnnouncement classifies one announcement by concatenating its
// title, issuing organization, executing organization, and summary, in that
// priority order, into a single search string.
func (c *Classifier) ClassifyAnnouncement(a model.Announcement) model.ClassificationResult {
	var sb strings.Builder
	for _, part := range []string{a.Title, a.IssuingOrg, a.ExecutingOrg, a.Summary} {
		if part != "" {
			sb.WriteString(part)
			sb.WriteString(" ")
		}
	}

	code, conf := c.Classify(sb.String())
	if code == "" {
		return model.ClassificationResult{Method: model.MethodKeyword, Reason: "no region token matched"}
	}
	return model.ClassificationResult{
		RegionCode: &code,
		Confidence: conf,
		Method:     model.MethodKeyword,
		Reason:     "matched region token",
	}
}
