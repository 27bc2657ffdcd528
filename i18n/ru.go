package i18n

var RU = Messages{
	"syntax_error":     "Синтаксическая ошибка",
	"unexpected_token": "Неожиданный токен: '%s'",
	"missing":          "Отсутствует %s",
	"loading_files":    "Загрузка файлов",
	"loading_count":    "%d из %d",
	"loading_file":     "%s %d из %d",
	"loading_done":     "Загружено файлов: %d",
}
