package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// normalize 将任意值转换为 JSON 树（map[string]any / []any / string / float64 / bool）
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return prune(out), nil
}

// prune 递归删除空对象
func prune(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		child = prune(child)
		if isEmpty(child) {
			delete(m, k)
		} else {
			m[k] = child
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if m, ok := v.(map[string]any); ok {
		return len(m) == 0
	}
	return false
}

func getAt(node any, segs []string) any {
	for _, seg := range segs {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[seg]
	}
	return node
}

// setAt 写时复制地设置节点，返回新的根，旧树不被修改
func setAt(node any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}
	old, _ := node.(map[string]any)
	out := make(map[string]any, len(old)+1)
	for k, v := range old {
		out[k] = v
	}
	child := setAt(out[segs[0]], segs[1:], value)
	if isEmpty(child) {
		delete(out, segs[0])
	} else {
		out[segs[0]] = child
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// clone 深拷贝，订阅者拿到的值与内部树互不影响
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = clone(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = clone(child)
		}
		return out
	default:
		return v
	}
}

func equalValues(a, b any) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// pathUpdate 单个待写入的绝对路径
type pathUpdate struct {
	segs  []string
	value any
}

// expandUpdate 将 Update 的相对键展开为绝对路径
func expandUpdate(base []string, values map[string]any) ([]pathUpdate, error) {
	updates := make([]pathUpdate, 0, len(values))
	for key, raw := range values {
		rel, err := SplitPath(key)
		if err != nil {
			return nil, err
		}
		if len(rel) == 0 {
			return nil, ErrInvalidPath
		}
		value, err := normalize(raw)
		if err != nil {
			return nil, err
		}
		segs := make([]string, 0, len(base)+len(rel))
		segs = append(segs, base...)
		segs = append(segs, rel...)
		updates = append(updates, pathUpdate{segs: segs, value: value})
	}
	for i := range updates {
		for j := i + 1; j < len(updates); j++ {
			if overlaps(updates[i].segs, updates[j].segs) {
				return nil, fmt.Errorf("%w: overlapping update keys", ErrInvalidPath)
			}
		}
	}
	return updates, nil
}
