package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/russross/blackfriday/v2"
)

var markdownExtensions = blackfriday.CommonExtensions |
	blackfriday.AutoHeadingIDs |
	blackfriday.FencedCode |
	blackfriday.Tables

const indexShell = `<!DOCTYPE html>
<html lang="en-US">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Hearts Echo</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            line-height: 1.6;
            max-width: 800px;
            margin: 0 auto;
            padding: 20px;
            color: #333;
        }
        h1 { color: #2c3e50; }
        h2 { color: #34495e; margin-top: 30px; }
        code {
            background-color: #f4f4f4;
            padding: 2px 6px;
            border-radius: 3px;
        }
    </style>
</head>
<body>
%s
</body>
</html>
`

// IndexPage is the documentation page served at "/", rendered once from markdown.
type IndexPage struct {
	html []byte
}

func NewIndexPage(markdown []byte) *IndexPage {
	body := blackfriday.Run(markdown, blackfriday.WithExtensions(markdownExtensions))
	return &IndexPage{html: []byte(fmt.Sprintf(indexShell, body))}
}

func (p *IndexPage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(p.html); err != nil {
		slog.Error("error writing index page", "error", err)
	}
}
