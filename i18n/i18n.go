package i18n

import (
	"fmt"
	"sync/atomic"
)

const DefaultLocale = "en"

// Messages maps a message key to its format string.
type Messages map[string]string

var catalogs = map[string]Messages{
	"en": EN,
	"uk": UK,
	"ru": RU,
}

var locale atomic.Value

func init() {
	locale.Store(DefaultLocale)
}

func Locale() string {
	return locale.Load().(string)
}

// L formats the message key in the current locale, falling back to English.
func L(key string, args ...any) string {
	msg, ok := catalogs[Locale()][key]

	if !ok {
		msg, ok = EN[key]
	}

	if !ok {
		msg = key
	}

	return fmt.Sprintf(msg, args...)
}

func SetLocale(name string) error {
	_, exist := catalogs[name]

	if !exist {
		return fmt.Errorf("unsupported locale %s", name)
	}

	locale.Store(name)

	return nil
}

func Supported(name string) bool {
	_, exist := catalogs[name]

	return exist
}
