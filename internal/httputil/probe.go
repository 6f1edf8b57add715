package httputil

import (
	"fmt"
	"io"
	"net/http"
)

// Probe issues a GET against url and returns an error unless the server
// answers 200. The dyno binary's -check flag uses this so a container
// healthcheck can reuse the same binary.
func Probe(client HTTPClient, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	// Drain a bounded amount so the connection can be reused.
	_, _ = io.CopyN(io.Discard, resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
	}
	return nil
}
