// Package charset 生成覆盖五种字符类别的随机测试行。
package charset

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrInvalidLength 表示请求的长度不足以覆盖所有字符类别
var ErrInvalidLength = errors.New("line length must be at least 5")

const (
	// DefaultMinLength / DefaultMaxLength 为随机行长度的默认闭区间
	DefaultMinLength = 10
	DefaultMaxLength = 30
)

// Source 是生成器所需的随机源，*rand.Rand 满足该接口
type Source interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewSource 返回以 seed 初始化的确定性随机源
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Generator 按类别覆盖规则生成随机字符序列
type Generator struct {
	rnd Source
}

// NewGenerator 构造 Generator；src 为 nil 时使用随机种子
func NewGenerator(src Source) *Generator {
	if src == nil {
		src = NewSource(rand.Uint64())
	}
	return &Generator{rnd: src}
}

// Generate 返回长度为 length 的字符序列：
//  1. 每个类别各抽一个字符
//  2. 剩余 length-5 个字符从全部字符中等概率抽取
//  3. 整体随机打乱
func (g *Generator) Generate(length int) ([]rune, error) {
	if length < NumClasses {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, length)
	}
	chars := make([]rune, 0, length)
	for _, c := range classes {
		chars = append(chars, c.runes[g.rnd.IntN(len(c.runes))])
	}
	for i := NumClasses; i < length; i++ {
		chars = append(chars, allRunes[g.rnd.IntN(len(allRunes))])
	}
	g.rnd.Shuffle(len(chars), func(i, j int) {
		chars[i], chars[j] = chars[j], chars[i]
	})
	return chars, nil
}

// Line 与 Generate 相同，但直接返回字符串
func (g *Generator) Line(length int) (string, error) {
	chars, err := g.Generate(length)
	if err != nil {
		return "", err
	}
	return string(chars), nil
}

// Length 在 [lo, hi] 闭区间内等概率选取行长度
func (g *Generator) Length(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rnd.IntN(hi-lo+1)
}
