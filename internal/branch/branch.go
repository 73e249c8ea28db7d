// 包 branch：图书馆分馆目录（进程启动时一次性加载，之后只读）与查询范围解析
package branch

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Branch：单个实体分馆
// 约束：Code 全局唯一；加载后不可修改，所有读取方共享同一份值
type Branch struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	District string  `json:"district"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Address  string  `json:"address"`
}

// Directory：分馆只读目录
// 背景：按区预先分组，范围解析时无需遍历全集；全部方法无锁可并发调用。
type Directory struct {
	all        []Branch
	byCode     map[string]int
	byDistrict map[string][]Branch
	districts  []string
}

// NewDirectory：校验并构建目录
// 返回：所有校验问题合并为一个错误（编号缺失、区名缺失、编号重复），任一问题即拒绝构建
func NewDirectory(branches []Branch) (*Directory, error) {
	var errs *multierror.Error
	d := &Directory{
		byCode:     make(map[string]int, len(branches)),
		byDistrict: make(map[string][]Branch),
	}
	for i, b := range branches {
		b.Code = strings.TrimSpace(b.Code)
		b.District = strings.TrimSpace(b.District)
		if b.Code == "" {
			errs = multierror.Append(errs, fmt.Errorf("branch #%d (%q): missing code", i, b.Name))
			continue
		}
		if b.District == "" {
			errs = multierror.Append(errs, fmt.Errorf("branch %s: missing district", b.Code))
			continue
		}
		if _, dup := d.byCode[b.Code]; dup {
			errs = multierror.Append(errs, fmt.Errorf("branch %s: duplicate code", b.Code))
			continue
		}
		d.byCode[b.Code] = len(d.all)
		d.all = append(d.all, b)
		if _, ok := d.byDistrict[b.District]; !ok {
			d.districts = append(d.districts, b.District)
		}
		d.byDistrict[b.District] = append(d.byDistrict[b.District], b)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	if len(d.all) == 0 {
		return nil, errors.New("branch directory is empty")
	}
	sort.Strings(d.districts)
	return d, nil
}

func (d *Directory) Len() int { return len(d.all) }

// All：返回全部分馆的副本
func (d *Directory) All() []Branch { return append([]Branch(nil), d.all...) }

func (d *Directory) Get(code string) (Branch, bool) {
	i, ok := d.byCode[code]
	if !ok {
		return Branch{}, false
	}
	return d.all[i], true
}

// Districts：按名称排序的去重区名
func (d *Directory) Districts() []string { return append([]string(nil), d.districts...) }

// InDistrict：区名精确匹配（区分大小写、不做模糊匹配）；无匹配返回空切片
func (d *Directory) InDistrict(name string) []Branch {
	return append([]Branch(nil), d.byDistrict[name]...)
}
