package server

import (
	"embed"
	"html/template"
)

//go:embed templates/index.html
var templateFS embed.FS

// EchartsURL is loaded by the dashboard page; it is the same asset host the
// standalone map pages use.
const EchartsURL = "https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"echartsURL": func() string { return EchartsURL },
}).ParseFS(templateFS, "templates/index.html"))
