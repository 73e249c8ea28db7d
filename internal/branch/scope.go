package branch

import "strings"

// AllDistrictsName：整个地区的哨兵值，HTTP 与命令行参数里的 "all" 或空值都映射到它
const AllDistrictsName = "*"

// Scope：查询范围，District(name) 或 AllDistricts
// 约束：零值即 AllDistricts；作为去重键的一部分，必须可比较
type Scope struct {
	district string
}

var AllDistricts = Scope{}

func District(name string) Scope { return Scope{district: name} }

// ParseScope：解析外部输入；空串、all、* 视为整个地区
func ParseScope(s string) Scope {
	s = strings.TrimSpace(s)
	if s == "" || s == AllDistrictsName || strings.EqualFold(s, "all") {
		return AllDistricts
	}
	return District(s)
}

func (s Scope) IsAll() bool { return s.district == "" }

// DistrictName：AllDistricts 时返回空串
func (s Scope) DistrictName() string { return s.district }

func (s Scope) String() string {
	if s.IsAll() {
		return "all"
	}
	return "district:" + s.district
}

// Kind：指标标签用的范围类别
func (s Scope) Kind() string {
	if s.IsAll() {
		return "all"
	}
	return "district"
}

// Resolve：返回范围内的候选分馆
// 约束：确定性、无副作用；指定区无分馆时返回空切片而非错误
func Resolve(scope Scope, dir *Directory) []Branch {
	if dir == nil {
		return nil
	}
	if scope.IsAll() {
		return dir.All()
	}
	return dir.InDistrict(scope.district)
}
