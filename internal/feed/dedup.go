package feed

import (
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/gyeongnam-biz/collector-cli/internal/model"
)

const maxExternalIDLen = 50

// FilterNew returns the announcements whose external id is non-empty and
// not yet in existing, preserving feed order. Ids of accepted announcements
// are added to existing as they are seen, so duplicates within a single
// batch are also collapsed to their first occurrence.
func FilterNew(anns []model.Announcement, existing map[string]struct{}) []model.Announcement {
	out := make([]model.Announcement, 0, len(anns))
	for _, a := range anns {
		if a.ExternalID == "" {
			continue
		}
		if _, ok := existing[a.ExternalID]; ok {
			continue
		}
		existing[a.ExternalID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// Validate reports whether an announcement is fit for insertion. Rejections
// are logged with the failing field.
func Validate(a model.Announcement) bool {
	switch {
	case a.ExternalID == "":
		zap.L().Warn("feed: rejecting announcement with empty external id")
		return false
	case utf8.RuneCountInString(a.ExternalID) > maxExternalIDLen:
		zap.L().Warn("feed: rejecting announcement with oversized external id",
			zap.String("external_id", a.ExternalID))
		return false
	case a.Title == "":
		zap.L().Warn("feed: rejecting announcement without title",
			zap.String("external_id", a.ExternalID))
		return false
	case a.IssuingOrg == "":
		zap.L().Warn("feed: rejecting announcement without issuing org",
			zap.String("external_id", a.ExternalID))
		return false
	}
	return true
}
