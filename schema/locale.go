package schema

import (
	"golang.org/x/text/language"
)

// Locale 日期和时间的显示格式
type Locale struct {
	Tag        language.Tag
	DateLayout string
	TimeLayout string
}

func (l *Locale) DateTimeLayout() string {
	return l.DateLayout + " " + l.TimeLayout
}

var locales = []*Locale{
	{Tag: language.English, DateLayout: "2006-01-02", TimeLayout: "15:04:05"},
	{Tag: language.Japanese, DateLayout: "2006/01/02", TimeLayout: "15:04:05"},
	{Tag: language.Chinese, DateLayout: "2006年01月02日", TimeLayout: "15:04:05"},
	{Tag: language.Korean, DateLayout: "2006. 01. 02.", TimeLayout: "15:04:05"},
	{Tag: language.Hungarian, DateLayout: "2006. 01. 02.", TimeLayout: "15:04:05"},
}

var localeMatcher = func() language.Matcher {
	tags := make([]language.Tag, 0, len(locales))
	for _, l := range locales {
		tags = append(tags, l.Tag)
	}
	return language.NewMatcher(tags)
}()

// DefaultLocale 年-月-日 时:分:秒
var DefaultLocale = locales[0]

// LocaleFor 按 BCP 47 语言标签（例如 "zh-CN", "ja"）选择最接近的格式，无法识别时返回 DefaultLocale
func LocaleFor(tags ...string) *Locale {
	l, _ := LookupLocale(tags...)
	return l
}

// LookupLocale 同 LocaleFor，没有匹配的格式时第二个返回值为 false
func LookupLocale(tags ...string) (*Locale, bool) {
	parsed := make([]language.Tag, 0, len(tags))
	for _, t := range tags {
		tag, err := language.Parse(t)
		if err != nil {
			continue
		}
		parsed = append(parsed, tag)
	}
	if len(parsed) == 0 {
		return DefaultLocale, false
	}
	_, index, confidence := localeMatcher.Match(parsed...)
	if confidence == language.No {
		return DefaultLocale, false
	}
	return locales[index], true
}
