// Package viewer serves the page that shows the node events and the state
// of the FundMe contract as it changes.
package viewer

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/ardanlabs/fundme/foundation/web"
)

//go:embed assets/index.html
var assets embed.FS

var index = template.Must(template.ParseFS(assets, "assets/index.html"))

// Index returns the handler that renders the viewer page. The page talks to
// the node that served it.
func Index(build string) web.Handler {
	data := struct {
		Build string
	}{
		Build: build,
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		return index.Execute(w, data)
	}
}
