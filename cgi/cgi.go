// Package cgi implements the HTTP/CGI control surface client: POSTing to a
// bridge's /mion/control.cgi with Basic auth and parsing its KEY:VALUE HTML
// response body.
package cgi

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"bridgectl/logging"
)

const (
	authUser  = "mion"
	authPass  = "/Multi_I/O_Network/"
	userAgent = "bridgectl/1.0"
)

// Operation names the control.cgi operation.
type Operation string

const (
	OpGetInfo   Operation = "get_info"
	OpSetParam  Operation = "set_param"
	OpPowerOn   Operation = "power_on"
	OpPowerOnV2 Operation = "power_on_v2"
)

// Client issues HTTP/CGI requests to a single bridge's control surface.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a Client using http.DefaultClient's transport settings.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{}}
}

// Fields is a parsed KEY:VALUE response body.
type Fields map[string]string

// Control performs a POST to http://<ip>/mion/control.cgi with the given
// form values merged with "operation"=op, and parses the response as
// KEY:VALUE fields. Used for get_info, set_param, power_on, power_on_v2.
func (c *Client) Control(ip string, op Operation, params url.Values) (Fields, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("operation", string(op))

	endpoint := fmt.Sprintf("http://%s/mion/control.cgi", ip)
	logging.DebugConnect("cgi", endpoint)

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("cgi: build request: %w", err)
	}
	req.SetBasicAuth(authUser, authPass)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.DebugConnectError("cgi", endpoint, err)
		return nil, fmt.Errorf("cgi: request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cgi: read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cgi: %s: unexpected status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	logging.DebugConnectSuccess("cgi", endpoint, fmt.Sprintf("%d bytes", len(body)))
	return parseBody(string(body))
}

// GetSignal performs a GET of signal_get.cgi?sig=<name>, returning the
// parsed KEY:VALUE fields.
func (c *Client) GetSignal(ip, name string) (Fields, error) {
	endpoint := fmt.Sprintf("http://%s/signal_get.cgi?sig=%s", ip, url.QueryEscape(name))
	logging.DebugConnect("cgi", endpoint)

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("cgi: build request: %w", err)
	}
	req.SetBasicAuth(authUser, authPass)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.DebugConnectError("cgi", endpoint, err)
		return nil, fmt.Errorf("cgi: request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cgi: read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cgi: %s: unexpected status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	return parseBody(string(body))
}

// Success reports whether a set_param/power_on/power_on_v2 response's
// RESULT field is "OK".
func (f Fields) Success() bool {
	return strings.HasPrefix(f["RESULT"], "OK")
}

// parseBody extracts the text between the first <body> and </body>, splits
// on <br> (and <br/>), and parses KEY:VALUE lines, dropping empty lines and
// INFO:/WARN:/ERROR: diagnostics (logged, not returned).
func parseBody(body string) (Fields, error) {
	start := strings.Index(body, "<body>")
	if start < 0 {
		return nil, fmt.Errorf("cgi: response missing <body> tag")
	}
	rest := body[start+len("<body>"):]

	end := strings.Index(rest, "</body>")
	if end < 0 {
		return nil, fmt.Errorf("cgi: response missing </body> tag")
	}
	inner := rest[:end]

	inner = strings.ReplaceAll(inner, "\n", "")
	inner = strings.ReplaceAll(inner, "<br/>", "<br>")

	fields := make(Fields)
	for _, line := range strings.Split(inner, "<br>") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "INFO:"), strings.HasPrefix(line, "WARN:"), strings.HasPrefix(line, "ERROR:"):
			logging.DebugLog("cgi", "diagnostic: %s", line)
			continue
		}

		idx := strings.Index(line, ":")
		if idx < 0 {
			logging.DebugLog("cgi", "unparsable line from control.cgi body: %s", line)
			continue
		}
		key := line[:idx]
		value := strings.TrimPrefix(line[idx:], ":")
		fields[key] = value
	}

	return fields, nil
}
