package branch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"bookmap/internal/logger"
)

// LoadFile：从 JSON 文件加载分馆目录
// 约束：文件内容为 Branch 数组（code/name/district/lat/lng/address）
func LoadFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open branch file: %w", err)
	}
	defer f.Close()
	dir, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	logger.L().Info("branch_directory_loaded", "source", path, "branches", dir.Len(), "districts", len(dir.Districts()))
	return dir, nil
}

// rawCode：兼容字符串与数字两种写法的分馆编号
type rawCode string

func (c *rawCode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = rawCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("branch code must be a string or number: %s", b)
	}
	*c = rawCode(n.String())
	return nil
}

// Decode：解析 JSON 并构建目录
func Decode(r io.Reader) (*Directory, error) {
	var raw []struct {
		Code     rawCode `json:"code"`
		Name     string  `json:"name"`
		District string  `json:"district"`
		Lat      float64 `json:"lat"`
		Lng      float64 `json:"lng"`
		Address  string  `json:"address"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode branches: %w", err)
	}
	bs := make([]Branch, 0, len(raw))
	for _, r := range raw {
		bs = append(bs, Branch{
			Code:     string(r.Code),
			Name:     r.Name,
			District: r.District,
			Lat:      r.Lat,
			Lng:      r.Lng,
			Address:  r.Address,
		})
	}
	return NewDirectory(bs)
}
