// Package roles 角色分配引擎
package roles

import "math/rand/v2"

// Role 玩家角色
type Role string

const (
	RoleCitizen  Role = "Citizen"
	RoleImpostor Role = "Impostor"
)

// 卧底看到的固定词与默认提示
const (
	ImpostorWord        = "Imposter"
	DefaultImpostorHint = "Blend in"
)

// Translation 第二语言展示内容
type Translation struct {
	Word string `json:"word"`
	Hint string `json:"hint"`
}

// ImpostorTranslation 卧底的马拉雅拉姆语展示内容
var ImpostorTranslation = Translation{Word: "ചതിയൻ", Hint: "കൂടിച്ചേരുക"}

// Rand 随机源，*rand.Rand 满足该接口
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

// Player 参与分配的玩家
type Player struct {
	ID                 string
	Name               string
	AvatarID           int
	CustomAvatarConfig map[string]any
}

// Content 本轮的词语内容
type Content struct {
	Word         string
	Hint         string
	OriginalWord string
	OriginalHint string
	ImpostorHint string
	Alt          *Translation // 仅在需要第二语言时设置
}

// Assignment 单个玩家的分配结果
type Assignment struct {
	Player
	Role         Role
	Word         string
	Hint         string
	OriginalWord string
	OriginalHint string
	ImpostorHint string
	Alt          *Translation
	Order        int
	CoverIndex   int
}

// Assign 使用全局随机源分配角色
func Assign(players []Player, impostorCount int, content Content) []Assignment {
	return AssignWith(globalRand{}, players, impostorCount, content)
}

// AssignWith 分配角色
// 1. 洗牌后前 impostorCount 个为卧底
// 2. 再次洗牌打乱位置与角色的关联，结果顺序即发言顺序
// 3. 独立的 Fisher-Yates 排列生成封面下标
func AssignWith(r Rand, players []Player, impostorCount int, content Content) []Assignment {
	n := len(players)
	if n == 0 {
		return []Assignment{}
	}
	k := min(max(impostorCount, 0), n)

	shuffled := make([]Player, n)
	copy(shuffled, players)
	Shuffle(r, shuffled)

	out := make([]Assignment, n)
	for i, p := range shuffled {
		if i < k {
			out[i] = impostorAssignment(p, content)
		} else {
			out[i] = citizenAssignment(p, content)
		}
	}

	Shuffle(r, out)
	covers := Permutation(r, n)
	for i := range out {
		out[i].Order = i
		out[i].CoverIndex = covers[i]
	}
	return out
}

func impostorAssignment(p Player, c Content) Assignment {
	hint := c.ImpostorHint
	if hint == "" {
		hint = DefaultImpostorHint
	}
	a := Assignment{
		Player:       p,
		Role:         RoleImpostor,
		Word:         ImpostorWord,
		Hint:         hint,
		ImpostorHint: c.ImpostorHint,
	}
	if c.Alt != nil {
		alt := ImpostorTranslation
		a.Alt = &alt
	}
	return a
}

func citizenAssignment(p Player, c Content) Assignment {
	a := Assignment{
		Player:       p,
		Role:         RoleCitizen,
		Word:         c.Word,
		Hint:         c.Hint,
		OriginalWord: c.OriginalWord,
		OriginalHint: c.OriginalHint,
		ImpostorHint: c.ImpostorHint,
	}
	if a.OriginalHint == "" {
		a.OriginalHint = c.Hint
	}
	if c.Alt != nil {
		alt := *c.Alt
		a.Alt = &alt
	}
	return a
}

// Shuffle Fisher-Yates 原地洗牌
func Shuffle[T any](r Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// Permutation 返回 [0, n) 的均匀随机排列
func Permutation(r Rand, n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	Shuffle(r, p)
	return p
}

// MaxImpostors 公平上限 floor((n-1)/2)
func MaxImpostors(n int) int {
	if n < 1 {
		return 0
	}
	return (n - 1) / 2
}
