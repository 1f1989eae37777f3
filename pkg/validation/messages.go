package validation

import (
	"fmt"
	"sync"
)

// Translator produces the default message for an error code when a rule
// does not carry its own message. params holds rule parameters such as
// "min" or "max".
type Translator interface {
	Message(code string, params map[string]any) string
}

type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, params map[string]any) string {
	switch t.lang {
	case "ja":
		switch code {
		case CodeRequired:
			return "必須項目です"
		case CodePattern:
			return "形式が正しくありません"
		case CodeMin:
			return fmt.Sprintf("%v 以上で入力してください", params["min"])
		case CodeMax:
			return fmt.Sprintf("%v 以下で入力してください", params["max"])
		case CodeMinLength:
			return fmt.Sprintf("%v 文字以上で入力してください", params["minLength"])
		case CodeMaxLength:
			return fmt.Sprintf("%v 文字以内で入力してください", params["maxLength"])
		case CodeInvalidNumber:
			return "数値を入力してください"
		case CodeInvalidDate:
			return "日付を入力してください"
		case CodeValidate:
			return "入力値が正しくありません"
		case CodeDependencyUnavailable:
			return "値を確認できませんでした"
		}
	default:
		switch code {
		case CodeRequired:
			return "required"
		case CodePattern:
			return "does not match required pattern"
		case CodeMin:
			return fmt.Sprintf("must be at least %v", params["min"])
		case CodeMax:
			return fmt.Sprintf("must be at most %v", params["max"])
		case CodeMinLength:
			return fmt.Sprintf("min length %v", params["minLength"])
		case CodeMaxLength:
			return fmt.Sprintf("max length %v", params["maxLength"])
		case CodeInvalidNumber:
			return "expected a number"
		case CodeInvalidDate:
			return "expected a date"
		case CodeValidate:
			return "invalid value"
		case CodeDependencyUnavailable:
			return "could not verify value"
		}
	}
	return code
}

var (
	translatorMu      sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in translator ("en" or "ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	SetTranslator(dictTranslator{lang: lang})
}

// SetTranslator replaces the translator. nil restores the English dictionary.
func SetTranslator(tr Translator) {
	translatorMu.Lock()
	defer translatorMu.Unlock()
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T returns the default message for code.
func T(code string, params map[string]any) string {
	translatorMu.RLock()
	tr := currentTranslator
	translatorMu.RUnlock()
	return tr.Message(code, params)
}

func messageOr(msg, code string, params map[string]any) string {
	if msg != "" {
		return msg
	}
	return T(code, params)
}
