package lookup

import (
	"encoding/hex"
	"hash/fnv"
	"sort"
	"strconv"
	"time"

	"bookmap/internal/availability"
	"bookmap/internal/branch"
)

// 面向展示层的提示信息；均为信息性结果而非错误
const (
	MsgNoBook        = "no book selected"
	MsgNoBranchData  = "no branch data for this district"
	MsgNoneAvailable = "no branch currently has an available copy"
)

// Source：结果的来源，用于指标与排查
type Source string

const (
	SourceFanout         Source = "fanout"
	SourceAggregateCache Source = "aggregate_cache"
	SourceDedup          Source = "dedup"
	SourceEmptyScope     Source = "empty_scope"
	SourceInvalid        Source = "invalid"
)

// Result：一次查询的对外结果
// 区范围返回可借分馆列表，全地区范围返回按区计数；两者互斥。
// ObservedAt 为结果所依据的最旧探测时间，去重标记按它而非完成时间过期。
type Result struct {
	BookID      string              `json:"bookId"`
	Scope       branch.Scope        `json:"-"`
	ScopeName   string              `json:"scope"`
	Branches    []branch.Branch     `json:"branches,omitempty"`
	Counts      availability.Counts `json:"counts,omitempty"`
	Message     string              `json:"message,omitempty"`
	Source      Source              `json:"source"`
	Fingerprint string              `json:"fingerprint"`
	ObservedAt  time.Time           `json:"observedAt"`
	CompletedAt time.Time           `json:"completedAt"`
}

// Empty：没有任何可借数据（包括提示类结果）
func (r Result) Empty() bool {
	if r.Scope.IsAll() {
		return r.Counts.Total() == 0
	}
	return len(r.Branches) == 0
}

// fingerprint：结果内容摘要，与来源、时间无关；内容相同则摘要相同
func fingerprint(r Result) string {
	h := fnv.New64a()
	h.Write([]byte(r.BookID))
	h.Write([]byte{0})
	h.Write([]byte(r.Scope.String()))
	h.Write([]byte{0})
	if r.Scope.IsAll() {
		for _, d := range r.Counts.Districts() {
			h.Write([]byte(d))
			h.Write([]byte{'='})
			h.Write([]byte(strconv.Itoa(r.Counts[d])))
			h.Write([]byte{0})
		}
	} else {
		codes := make([]string, 0, len(r.Branches))
		for _, b := range r.Branches {
			codes = append(codes, b.Code)
		}
		sort.Strings(codes)
		for _, c := range codes {
			h.Write([]byte(c))
			h.Write([]byte{0})
		}
	}
	h.Write([]byte(r.Message))
	return hex.EncodeToString(h.Sum(nil))
}
