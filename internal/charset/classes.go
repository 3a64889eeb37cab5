package charset

// Class 描述一种字符类别
type Class struct {
	Name  string
	runes []rune
}

// Runes 返回该类别字符的副本，供检查和测试使用
func (c Class) Runes() []rune {
	return append([]rune(nil), c.runes...)
}

// Contains 判断 r 是否属于该类别，供检查和测试使用
func (c Class) Contains(r rune) bool {
	for _, x := range c.runes {
		if x == r {
			return true
		}
	}
	return false
}

// Len 返回类别中的字符个数（重复字符按出现次数计），供检查和测试使用
func (c Class) Len() int {
	return len(c.runes)
}

const (
	letters     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits      = "0123456789"
	punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	// 常用中文字符
	chinese = "你好世界测试串口通信数据发送接收工程师程序稳定性性能调试工具开发"
	// 常用 Emoji，均为单个码点
	emojis = "😀😁😂🤣😃😄😅😆😉😊😎😍😘🥰😗😙😚☺🙂🤗🤩🤔🤨😐😑😶🙄😏😣😥😮🤐😯😪😫😴😌😛😜😝🤤😒😓😔😕🙃🤑😲☹🙁😖😞😟😤😢😭😦😧😨😩🤯😬😰😱🥵🥶😳🤪😵🥴😠😡🤬😷🤒🤕🤢🤮🤧😇🤠🥳🥴🥺"
)

// 五种字符类别，进程生命周期内只读
var classes = [...]Class{
	{Name: "letters", runes: []rune(letters)},
	{Name: "digits", runes: []rune(digits)},
	{Name: "punctuation", runes: []rune(punctuation)},
	{Name: "chinese", runes: []rune(chinese)},
	{Name: "emoji", runes: []rune(emojis)},
}

// 所有类别按顺序拼接，填充阶段从这里等概率抽取
var allRunes = func() []rune {
	var all []rune
	for _, c := range classes {
		all = append(all, c.runes...)
	}
	return all
}()

// NumClasses 是必须覆盖的字符类别数，也是最小行长度
const NumClasses = len(classes)

// Classes 返回全部字符类别的副本，生成器本身不经过这里，供检查和测试使用
func Classes() []Class {
	out := make([]Class, len(classes))
	copy(out, classes[:])
	return out
}

// ClassOf 返回 r 所属类别的名称，用于校验生成结果
func ClassOf(r rune) (string, bool) {
	for _, c := range classes {
		if c.Contains(r) {
			return c.Name, true
		}
	}
	return "", false
}
