package handlers

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"
	"sync"
)

//go:embed openapi.json
var openAPISpec []byte

const (
	openAPIPath      = "/v1/openapi.json"
	defaultDocsTitle = "API Docs"
)

var redocTemplate = template.Must(template.New("redoc").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>{{.Title}} Docs</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>
      body { margin: 0; padding: 0; }
      redoc { display: block; height: 100vh; }
    </style>
  </head>
  <body>
    <redoc spec-url="{{.SpecURL}}"></redoc>
    <script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
  </body>
</html>`))

var (
	docsOnce sync.Once
	docsPage []byte
)

// docsTitle reads info.title so the page follows the document it renders.
func docsTitle(spec []byte) string {
	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
	}
	if err := json.Unmarshal(spec, &doc); err != nil || doc.Info.Title == "" {
		return defaultDocsTitle
	}
	return doc.Info.Title
}

func renderDocs(spec []byte) []byte {
	var buf bytes.Buffer
	_ = redocTemplate.Execute(&buf, struct {
		Title   string
		SpecURL string
	}{Title: docsTitle(spec), SpecURL: openAPIPath})
	return buf.Bytes()
}

func (a *App) OpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	docsOnce.Do(func() { docsPage = renderDocs(openAPISpec) })
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(docsPage)
}
