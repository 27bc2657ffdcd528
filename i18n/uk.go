package i18n

var UK = Messages{
	"syntax_error":     "Синтаксична помилка",
	"unexpected_token": "Неочікуваний токен: '%s'",
	"missing":          "Бракує %s",
	"loading_files":    "Завантаження файлів",
	"loading_count":    "%d з %d",
	"loading_file":     "%s %d з %d",
	"loading_done":     "Завантажено файлів: %d",
}
