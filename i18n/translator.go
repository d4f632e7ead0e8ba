package i18n

import (
	"strings"
	"sync"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "min" or "expected"). Placeholders are written as {name}.
type Translator interface {
	Message(code string, data map[string]string) string
}

var dictionaries = map[string]map[string]string{
	"en": {
		"invalid_type":           "invalid type",
		"required":               "required",
		"too_small":              "must be at least {min}",
		"too_big":                "must be at most {max}",
		"too_short":              "too short",
		"too_long":               "too long",
		"pattern":                "does not match the expected pattern",
		"invalid_enum":           "not an allowed value",
		"invalid_format":         "invalid {format}",
		"union_no_match":         "does not match any allowed shape",
		"parse_error":            "parse error",
		"uniqueness":             "duplicate value",
		"business_rule":          "business rule violated",
		"custom":                 "invalid value",
		"dependency_unavailable": "dependency unavailable",
	},
	"ja": {
		"invalid_type":           "型が不正です",
		"required":               "必須です",
		"too_small":              "{min} 以上で入力してください",
		"too_big":                "{max} 以下で入力してください",
		"too_short":              "短すぎます",
		"too_long":               "長すぎます",
		"pattern":                "形式が一致しません",
		"invalid_enum":           "許可されていない値です",
		"invalid_format":         "{format} の形式が不正です",
		"union_no_match":         "いずれの形式にも一致しません",
		"parse_error":            "解析エラー",
		"uniqueness":             "値が重複しています",
		"business_rule":          "業務ルールに違反しています",
		"custom":                 "値が不正です",
		"dependency_unavailable": "依存先サービスが利用できません",
	},
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	return expand(msg, data)
}

// expand substitutes {name} placeholders. Placeholders without data are
// dropped together with a preceding space.
func expand(msg string, data map[string]string) string {
	if !strings.Contains(msg, "{") {
		return msg
	}
	b := &strings.Builder{}
	for {
		i := strings.IndexByte(msg, '{')
		if i < 0 {
			b.WriteString(msg)
			break
		}
		j := strings.IndexByte(msg[i:], '}')
		if j < 0 {
			b.WriteString(msg)
			break
		}
		b.WriteString(msg[:i])
		if v, ok := data[msg[i+1:i+j]]; ok {
			b.WriteString(v)
		} else {
			s := strings.TrimRight(b.String(), " ")
			b.Reset()
			b.WriteString(s)
		}
		msg = msg[i+j+1:]
	}
	return strings.TrimSpace(b.String())
}

var (
	mu                           = sync.RWMutex{}
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if _, ok := dictionaries[lang]; !ok {
		lang = "en"
	}
	SetTranslator(dictTranslator{lang: lang})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
