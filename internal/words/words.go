// Package words 词库与随机选词
package words

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const (
	// AllCategories 选择全部免费分类
	AllCategories = "all"
	// FallbackCategory 所选分类都没有词时使用
	FallbackCategory = "food"
	// MaxRecentWords 近期出现过的词不再重复
	MaxRecentWords = 20
)

var ErrEmptyCatalog = errors.New("word catalog has no words")

// Word 一个词条
type Word struct {
	Word         string `yaml:"word" json:"word"`
	Hint         string `yaml:"hint" json:"hint"`
	ImpostorHint string `yaml:"impostorHint" json:"impostorHint"`
	Category     string `yaml:"-" json:"category"`
}

// Category 分类定义
type Category struct {
	Key           string     `yaml:"key" json:"key"`
	Label         string     `yaml:"label" json:"label"`
	Free          bool       `yaml:"free" json:"free"`
	Premium       bool       `yaml:"premium" json:"premium"`
	Subcategories []Category `yaml:"subcategories" json:"subcategories,omitempty"`
}

type catalogFile struct {
	Categories []Category        `yaml:"categories"`
	Words      map[string][]Word `yaml:"words"`
}

// Rand 随机源
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

// Catalog 词库，RandomWord 会记录近期选中的词
type Catalog struct {
	categories []Category
	words      map[string][]Word

	mu     sync.Mutex
	recent []string
	rand   Rand
}

// Load 从 YAML 解析词库
func Load(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse word catalog: %w", err)
	}
	for key, list := range file.Words {
		for i := range list {
			list[i].Category = key
		}
	}
	return &Catalog{
		categories: file.Categories,
		words:      file.Words,
		rand:       globalRand{},
	}, nil
}

// Default 加载内置词库
func Default() (*Catalog, error) {
	return Load(defaultCatalog)
}

// Categories 返回分类定义
func (c *Catalog) Categories() []Category {
	return slices.Clone(c.categories)
}

// freeKeys 所有免费分类，有子分类的以子分类替代
func (c *Catalog) freeKeys() []string {
	var keys []string
	for _, cat := range c.categories {
		if cat.Premium && !cat.Free {
			continue
		}
		if len(cat.Subcategories) > 0 {
			for _, sub := range cat.Subcategories {
				keys = append(keys, sub.Key)
			}
			continue
		}
		keys = append(keys, cat.Key)
	}
	return keys
}

// RandomWord 从指定分类中随机选词，"all" 或空表示全部免费分类
func (c *Catalog) RandomWord(categoryKeys []string) (Word, error) {
	keys := categoryKeys
	if len(keys) == 0 || slices.Contains(keys, AllCategories) {
		keys = c.freeKeys()
	}

	var available []Word
	for _, key := range keys {
		available = append(available, c.words[key]...)
	}
	if len(available) == 0 {
		available = c.words[FallbackCategory]
	}
	if len(available) == 0 {
		return Word{}, ErrEmptyCatalog
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	filtered := make([]Word, 0, len(available))
	for _, w := range available {
		if !slices.Contains(c.recent, w.Word) {
			filtered = append(filtered, w)
		}
	}
	if len(filtered) == 0 {
		c.recent = c.recent[:0]
		filtered = available
	}

	selected := filtered[c.rand.IntN(len(filtered))]
	c.recent = append(c.recent, selected.Word)
	if len(c.recent) > MaxRecentWords {
		c.recent = c.recent[1:]
	}
	return selected, nil
}
