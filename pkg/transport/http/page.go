package http

import (
	"embed"
	"html/template"
	"io"

	"github.com/rhuss/coursesearch/pkg/api"
)

//go:embed templates/*.html
var templateFiles embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFiles, "templates/search.html"))

// pageData is the view model of the results page.
type pageData struct {
	Course   api.Course
	CourseID int64
	Query    string
	State    api.SearchState
	Count    int
	Results  []api.ResultView
	Action   string
	Error    string
}

func renderPage(w io.Writer, data pageData) error {
	return pageTemplate.ExecuteTemplate(w, "search.html", data)
}
