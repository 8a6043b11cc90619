package geo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"time"

	"github.com/evyataryagoni/ipgeocode/internal/models"
)

const (
	// DefaultEndpoint is the ipgeolocation.io lookup endpoint
	DefaultEndpoint = "https://api.ipgeolocation.io/ipgeo"

	// DefaultFields restricts the response to geolocation attributes
	DefaultFields = "geo"

	// DefaultTimeout bounds a single call
	DefaultTimeout = 10 * time.Second

	// StatusRestricted is what the provider answers for reserved/bogon addresses
	StatusRestricted = http.StatusLocked
)

// Logger receives one call per failed lookup
// Successful lookups are not logged
type Logger interface {
	FetchFailed(ip string, kind models.FailureKind, status int, err error)
}

// Client performs one outbound call per IP to the geolocation API
// It is stateless: classification depends only on the outcome of the call
type Client struct {
	httpClient *http.Client
	endpoint   string
	fields     string
	log        Logger
}

// Options holds optional Client settings
type Options struct {
	Endpoint   string        // Defaults to DefaultEndpoint
	Fields     string        // Defaults to DefaultFields
	Timeout    time.Duration // Used only when HTTPClient is nil
	HTTPClient *http.Client  // Custom client (tests, transports)
}

// NewClient creates a new geolocation client
//
// Parameters:
//   - opts: endpoint, field selector and HTTP settings
//   - log: failure logger (can be nil)
func NewClient(opts Options, log Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	fields := opts.Fields
	if fields == "" {
		fields = DefaultFields
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		fields:     fields,
		log:        log,
	}
}

// Fetch geolocates one IP address
// It never returns an error: every failure is classified, logged and
// turned into a failed GeoResult carrying the input IP
func (c *Client) Fetch(ctx context.Context, apiKey, ip string) models.GeoResult {
	payload, kind, status, err := c.do(ctx, apiKey, ip)
	if kind != models.NoFailure {
		if c.log != nil {
			c.log.FetchFailed(ip, kind, status, err)
		}
		return models.Failed(ip, kind)
	}

	return models.Success(ip, payload)
}

func (c *Client) do(ctx context.Context, apiKey, ip string) (models.GeoPayload, models.FailureKind, int, error) {
	payload := models.GeoPayload{}

	reqURL, err := c.buildURL(apiKey, ip)
	if err != nil {
		return payload, models.UnknownRequestFailure, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return payload, models.UnknownRequestFailure, 0, fmt.Errorf("cannot build a request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return payload, classifyTransportError(err), 0, fmt.Errorf("cannot send a request: %w", err)
	}
	defer flushResponse(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		if resp.StatusCode == StatusRestricted {
			return payload, models.RestrictedAddress, resp.StatusCode, err
		}
		return payload, models.HTTPError, resp.StatusCode, err
	}

	payload, err = decodePayload(bufio.NewReader(resp.Body))
	if err != nil {
		if isTimeout(err) {
			return payload, models.TimeoutFailure, resp.StatusCode, err
		}
		return payload, models.UnknownRequestFailure, resp.StatusCode, err
	}

	return payload, models.NoFailure, resp.StatusCode, nil
}

func (c *Client) buildURL(apiKey, ip string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("incorrect endpoint %s: %w", c.endpoint, err)
	}

	query := u.Query()
	query.Set("apiKey", apiKey)
	query.Set("ip", ip)
	query.Set("fields", c.fields)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// classifyTransportError maps an error returned before any response was
// received onto a failure kind. Timeouts win over connection errors
func classifyTransportError(err error) models.FailureKind {
	switch {
	case isTimeout(err):
		return models.TimeoutFailure
	case isConnectionError(err):
		return models.ConnectionFailure
	default:
		return models.UnknownRequestFailure
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError

	switch {
	case errors.As(err, &dnsErr):
		return true
	case errors.As(err, &opErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return true
	}

	return false
}

func flushResponse(body io.ReadCloser) {
	io.Copy(io.Discard, body) // nolint: errcheck
	body.Close()
}
