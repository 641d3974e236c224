package unsplash

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"photosearch/logging"
)

// Download returns the byte content of the file at url
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		err = fmt.Errorf("error creating request: %w", err)
		logging.LogError("download %s: %v", url, err)
		return nil, err
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		err = fmt.Errorf("error executing request: %w", err)
		logging.LogError("download %s: %v", url, err)
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("%w: unexpected status code on download: %d", ErrInvalidResponse, res.StatusCode)
		logging.LogError("download %s: %v", url, err)
		return nil, err
	}

	buf, err := io.ReadAll(res.Body)
	if err != nil {
		err = fmt.Errorf("error reading response: %w", err)
		logging.LogError("download %s: %v", url, err)
		return nil, err
	}

	logging.DebugLog("downloaded %d bytes from %s", len(buf), url)
	return buf, nil
}
