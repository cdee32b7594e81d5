// Package ntrip retrieves source tables from NTRIP casters.
package ntrip

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"basestation-mapper/internal/apperr"
	"basestation-mapper/internal/logging"
	"basestation-mapper/internal/models"

	"github.com/rs/zerolog"
)

const (
	UserAgent = "NTRIPBasestationMapper/1.0"

	DefaultTimeout    = 30 * time.Second
	DefaultMaxPayload = 16 << 20

	// diagnosticLen bounds how much of a rejected body ends up in errors.
	diagnosticLen = 100
)

var (
	headerTerminator = []byte("\r\n\r\n")
	sourceTableMarks = [][]byte{[]byte("SOURCETABLE 200 OK"), []byte("gnss/sourcetable")}
)

// Client fetches a caster's source table over a plain TCP connection.
type Client struct {
	logger     zerolog.Logger
	dialer     net.Dialer
	timeout    time.Duration
	maxPayload int64
}

// NewClient creates a client; a zero timeout or payload limit selects the
// package default.
func NewClient(logger zerolog.Logger, timeout time.Duration, maxPayload int64) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Client{
		logger:     logging.Component(logger, "ntrip"),
		dialer:     net.Dialer{Timeout: timeout},
		timeout:    timeout,
		maxPayload: maxPayload,
	}
}

// Fetch retrieves the source table of cc and overwrites cc.CacheFile with
// it. The caller decides whether overwriting is allowed.
func (c *Client) Fetch(ctx context.Context, cc models.CasterConfig) ([]byte, error) {
	c.logger.Info().Str("caster", cc.Name).Msg("retrieving source table")

	response, err := c.roundTrip(ctx, cc)
	if err != nil {
		return nil, err
	}
	c.logger.Info().Int("bytes", len(response)).Msg("received response")

	body, err := ParseResponse(response)
	if err != nil {
		return nil, err
	}

	payload := dropFirstLine(body)
	c.logger.Debug().Str("file", cc.CacheFile).Msg("caching source table")
	if err := os.WriteFile(cc.CacheFile, payload, 0o644); err != nil {
		return nil, apperr.Wrap(apperr.Storage, "ntrip", err, "cannot write cache file %s", cc.CacheFile)
	}

	return payload, nil
}

func (c *Client) roundTrip(ctx context.Context, cc models.CasterConfig) ([]byte, error) {
	addr := cc.Address()
	c.logger.Debug().Str("address", addr).Msg("connecting")

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, apperr.Wrap(apperr.Connection, "ntrip", err, "cannot connect to %s", addr)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, apperr.Wrap(apperr.Connection, "ntrip", err, "cannot set deadline")
	}

	if _, err := conn.Write(BuildRequest(cc)); err != nil {
		return nil, apperr.Wrap(apperr.Connection, "ntrip", err, "cannot send request to %s", addr)
	}

	// One extra byte tells an exactly full payload apart from an oversized one.
	response, err := io.ReadAll(io.LimitReader(idleReader{conn: conn, timeout: c.timeout}, c.maxPayload+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.Connection, "ntrip", err, "reading from %s", addr)
	}
	if int64(len(response)) > c.maxPayload {
		return nil, apperr.New(apperr.Protocol, "ntrip", "response from %s exceeds %d bytes", addr, c.maxPayload)
	}

	return response, nil
}

// idleReader fails a read only when the peer has been silent for timeout,
// so a slow but progressing transfer is not cut off.
type idleReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r idleReader) Read(p []byte) (int, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
		return 0, err
	}
	return r.conn.Read(p)
}

// BuildRequest returns the source table request for cc.
func BuildRequest(cc models.CasterConfig) []byte {
	credentials := base64.StdEncoding.EncodeToString([]byte(cc.Username + ":" + cc.Password))

	var b bytes.Buffer
	b.WriteString("GET / HTTP/1.1\r\n")
	fmt.Fprintf(&b, "Host: %s\r\n", cc.Address())
	fmt.Fprintf(&b, "User-Agent: %s\r\n", UserAgent)
	fmt.Fprintf(&b, "Authorization: Basic %s\r\n", credentials)
	b.WriteString("Accept: */*\r\n")
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")
	return b.Bytes()
}

// SplitResponse separates the header block from the body at the first
// blank line. Without a blank line the whole response is body.
func SplitResponse(response []byte) (header, body []byte) {
	i := bytes.Index(response, headerTerminator)
	if i == -1 {
		return nil, response
	}
	return response[:i], response[i+len(headerTerminator):]
}

// ParseResponse validates that response carries a source table and
// returns its body.
func ParseResponse(response []byte) ([]byte, error) {
	header, body := SplitResponse(response)
	for _, mark := range sourceTableMarks {
		if bytes.Contains(header, mark) {
			return body, nil
		}
	}
	return nil, apperr.New(apperr.Protocol, "ntrip", "not a source table response, body starts with %q", head(body, diagnosticLen))
}

// dropFirstLine strips the banner line, keeping the remaining line breaks.
func dropFirstLine(body []byte) []byte {
	i := bytes.IndexByte(body, '\n')
	if i == -1 {
		return nil
	}
	return body[i+1:]
}

func head(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
