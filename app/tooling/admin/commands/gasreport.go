package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ardanlabs/fundme/foundation/gasreport"
)

// GasReport fetches the gas report of a node and prints it as tables.
func GasReport(ctx context.Context, w io.Writer, args []string) error {
	url := "http://localhost:8080"
	if len(args) > 2 {
		url = strings.TrimSuffix(args[2], "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/v1/gas/report", nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node responded with status %d", resp.StatusCode)
	}

	var rep gasreport.Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return fmt.Errorf("decoding report: %w", err)
	}

	out, err := gasreport.Render(rep, true)
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, out)
	return err
}
