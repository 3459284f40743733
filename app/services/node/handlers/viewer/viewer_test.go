package viewer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ardanlabs/fundme/app/services/node/handlers/viewer"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_Index(t *testing.T) {
	t.Log("Given the need to serve the viewer page.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a request for the page.", testID)
		{
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()

			if err := viewer.Index("1.2.3")(context.Background(), w, r); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to render the page: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to render the page.", success, testID)

			body := w.Body.String()
			if !strings.Contains(body, "build 1.2.3") || !strings.Contains(body, "/v1/events") {
				t.Fatalf("\t%s\tTest %d:\tShould show the build and follow the events: got\n%s", failed, testID, body)
			}
			t.Logf("\t%s\tTest %d:\tShould show the build and follow the events.", success, testID)

			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Fatalf("\t%s\tTest %d:\tShould be served as html: got %q", failed, testID, ct)
			}
			t.Logf("\t%s\tTest %d:\tShould be served as html.", success, testID)
		}
	}
}
