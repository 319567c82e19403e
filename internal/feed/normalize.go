package feed

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/gyeongnam-biz/collector-cli/internal/model"
)

// siteBaseURL is prepended to relative detail-page and attachment paths.
const siteBaseURL = "https://www.bizinfo.go.kr"

// \p{Zs} catches the non-breaking spaces that &nbsp; entities decode to.
var whitespaceRe = regexp.MustCompile(`[\s\p{Zs}]+`)

// normalizeRecord converts one raw feed record into an Announcement.
// Records without an external id are dropped; every other malformed field
// degrades to its zero value rather than failing the record.
func normalizeRecord(rec rawRecord, fetchedAt time.Time) (model.Announcement, bool) {
	id := strings.TrimSpace(rec.PblancID)
	if id == "" {
		zap.L().Warn("feed: dropping record without pblancId",
			zap.String("title", strings.TrimSpace(rec.PblancNm)))
		return model.Announcement{}, false
	}

	return model.Announcement{
		ExternalID:        id,
		Title:             strings.TrimSpace(rec.PblancNm),
		IssuingOrg:        strings.TrimSpace(rec.JrsdInsttNm),
		ExecutingOrg:      strings.TrimSpace(rec.ExcInsttNm),
		Summary:           stripHTML(rec.BsnsSumryCn),
		Target:            strings.TrimSpace(rec.TrgetNm),
		URL:               absolutizeURL(rec.PblancURL),
		ReceptionURL:      absolutizeURL(rec.RceptEngnHmpgURL),
		AttachmentDir:     absolutizeURL(rec.FlpthNm),
		PrintPath:         absolutizeURL(rec.PrintFlpthNm),
		PrintFileName:     strings.TrimSpace(rec.PrintFileNm),
		FileName:          strings.TrimSpace(rec.FileNm),
		ApplicationPeriod: strings.TrimSpace(rec.ReqstBeginEndDe),
		ApplicationMethod: stripHTML(rec.ReqstMthPapersCn),
		Contact:           strings.TrimSpace(rec.RefrncNm),
		CategoryMajor:     strings.TrimSpace(rec.SportRealmLclasNm),
		CategoryMinor:     strings.TrimSpace(rec.SportRealmMlsfcNm),
		Hashtags:          strings.TrimSpace(rec.Hashtags),
		TotalCount:        safeInt(rec.TotCnt),
		ViewCount:         safeInt(rec.InqireCo),
		SourceCreatedAt:   parseFeedTime(id, rec.CreatPnttm),
		FetchedAt:         fetchedAt,
		Status:            model.ClassificationPending,
	}, true
}

// stripHTML removes markup from feed summaries and collapses runs of
// whitespace into single spaces.
func stripHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err == nil {
		s = doc.Text()
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// absolutizeURL resolves the feed's relative paths against the Bizinfo site
// root. Absolute URLs pass through unchanged.
func absolutizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return siteBaseURL + s
}

// parseFeedTime accepts the feed's two timestamp layouts: a full datetime
// or a bare yyyymmdd prefix. Anything else is logged and dropped.
func parseFeedTime(id, s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return &t
	}
	if len(s) >= 8 {
		if t, err := time.Parse("20060102", s[:8]); err == nil {
			return &t
		}
	}
	zap.L().Warn("feed: unparseable creatPnttm",
		zap.String("external_id", id), zap.String("value", s))
	return nil
}

// safeInt decodes a counter that the feed serves as either a number or a
// numeric string. Unparseable values become zero.
func safeInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return 0
}
