package translation

import (
	"github.com/leonelquinteros/gotext"
)

// Configure points gotext at the locales directory; untranslated message
// ids fall through unchanged, so English works without a catalog.
func Configure(dir, lang string) {
	if lang == "" || lang == "und" {
		lang = "en"
	}
	gotext.Configure(dir, lang, "default")
}

func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
