package transform

import (
	"log/slog"
	"sort"
	"strings"
)

// Notice kinds reported by the built-in strategies.
const (
	NoticeEmptyAgencyID  = "empty_agency_id"
	NoticeUnlistedAgency = "unlisted_agency"
	NoticeNoServiceID    = "no_service_id"
	NoticeNoShapeID      = "no_shape_id"
)

const maxNoticeExamples = 3

// noticeInfo holds aggregated information about one notice kind
type noticeInfo struct {
	count    int
	examples []string
}

// Notices collects recoverable anomalies met during a strategy run and
// outputs consolidated summaries instead of one line per occurrence.
type Notices struct {
	notices map[string]*noticeInfo
}

// NewNotices creates an empty collector.
func NewNotices() *Notices {
	return &Notices{notices: make(map[string]*noticeInfo)}
}

// Add records an occurrence of kind with an example id.
func (n *Notices) Add(kind, example string) {
	info := n.notices[kind]
	if info == nil {
		info = &noticeInfo{examples: make([]string, 0, maxNoticeExamples)}
		n.notices[kind] = info
	}
	info.count++
	if len(info.examples) < maxNoticeExamples {
		info.examples = append(info.examples, example)
	}
}

// Count returns how many times kind was recorded.
func (n *Notices) Count(kind string) int {
	if info := n.notices[kind]; info != nil {
		return info.count
	}
	return 0
}

// Examples returns up to three example ids recorded for kind.
func (n *Notices) Examples(kind string) []string {
	if info := n.notices[kind]; info != nil {
		return append([]string(nil), info.examples...)
	}
	return nil
}

// Len returns the number of distinct kinds recorded.
func (n *Notices) Len() int { return len(n.notices) }

// LogAll emits one warning per kind, in kind order.
func (n *Notices) LogAll(logger *slog.Logger, strategy string) {
	kinds := make([]string, 0, len(n.notices))
	for k := range n.notices {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		info := n.notices[kind]
		logger.Warn(noticeDescription(kind),
			"strategy", strategy,
			"kind", kind,
			"occurrences", info.count,
			"examples", strings.Join(info.examples, ", "),
		)
	}
}

func noticeDescription(kind string) string {
	switch kind {
	case NoticeEmptyAgencyID:
		return "agencies with an empty agency_id left unchanged"
	case NoticeUnlistedAgency:
		return "ids scoped to an agency missing from agency.txt"
	case NoticeNoServiceID:
		return "trips without service_id"
	case NoticeNoShapeID:
		return "trips without shape_id"
	default:
		return "unclassified notice"
	}
}
