package i18n

var EN = Messages{
	"syntax_error":     "Syntax error",
	"unexpected_token": "Unexpected token: '%s'",
	"missing":          "Missing %s",
	"loading_files":    "Loading files",
	"loading_count":    "%d of %d",
	"loading_file":     "%s %d of %d",
	"loading_done":     "Loaded %d files",
}
