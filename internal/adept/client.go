package adept

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"bindery/internal/services"
)

const fulfillContentType = "application/vnd.adobe.adept+xml"

// fulfillPath is appended to the operator URL to reach the fulfillment
// endpoint.
const fulfillPath = "/Fulfill"

// Client talks to the rights server: it submits license request artifacts
// and downloads fulfilled content.
type Client struct {
	httpClient     *http.Client
	downloadClient *http.Client
	userAgent      string
}

// ClientOptions configures a Client.
type ClientOptions struct {
	UserAgent       string
	RequestTimeout  time.Duration
	DownloadTimeout time.Duration
}

// NewClient builds a rights server client with separate timeouts for the
// short fulfillment exchange and the potentially long content download.
func NewClient(opts ClientOptions) *Client {
	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	downloadTimeout := opts.DownloadTimeout
	if downloadTimeout <= 0 {
		downloadTimeout = 5 * time.Minute
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = "bindery/0.1.0"
	}
	return &Client{
		httpClient:     &http.Client{Timeout: requestTimeout},
		downloadClient: &http.Client{Timeout: downloadTimeout},
		userAgent:      userAgent,
	}
}

// Submit posts a license request artifact to its operator's fulfillment
// endpoint and returns the reply bytes. A non-2xx status or an ADEPT error
// document is a transport failure carrying the server payload verbatim.
func (c *Client) Submit(ctx context.Context, artifact []byte) ([]byte, error) {
	request, err := ParseRequest(artifact)
	if err != nil {
		return nil, err
	}

	endpoint := request.OperatorURL + fulfillPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(artifact))
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "fulfilling", "build request", "Fulfillment failed", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", fulfillContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "fulfilling", "submit request", fmt.Sprintf("Fulfillment failed: %v", err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "fulfilling", "read reply", "Fulfillment failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload := strings.TrimSpace(string(body))
		if payload == "" {
			payload = resp.Status
		}
		return nil, services.Wrap(services.ErrTransport, "fulfilling", "submit request", fmt.Sprintf("Fulfillment failed: %s", payload), nil)
	}

	if payload, isErr := ServerError(body); isErr {
		return nil, services.Wrap(services.ErrTransport, "fulfilling", "submit request", fmt.Sprintf("Fulfillment failed: %s", payload), nil)
	}

	return body, nil
}

// Download fetches url into dst and returns the HTTP status code. The body
// is only written for a 200 response; other statuses leave dst untouched.
// A returned error means the transfer itself failed, not the status.
func (c *Client) Download(ctx context.Context, url, dst string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrDownload, "fulfilling", "build download", "Download failed", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrDownload, "fulfilling", "download", fmt.Sprintf("Download failed: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, nil
	}

	out, err := os.Create(dst)
	if err != nil {
		return resp.StatusCode, services.Wrap(services.ErrDownload, "fulfilling", "create file", "Download failed", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return resp.StatusCode, services.Wrap(services.ErrDownload, "fulfilling", "write file", "Download failed", err)
	}
	if err := out.Close(); err != nil {
		return resp.StatusCode, services.Wrap(services.ErrDownload, "fulfilling", "close file", "Download failed", err)
	}
	return resp.StatusCode, nil
}
