package ntrip

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"basestation-mapper/internal/apperr"
	"basestation-mapper/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sourceTableBody = "STR;FIRST;Banner;RTCM 3.2;;2;GPS;NONE;FIN;62.00;23.00;0;0;sNTRIP;none;B;N;0;\r\n" +
	"STR;SEINA;Seinajoki;RTCM 3.2;;2;GPS;NONE;FIN;62.79;22.84;0;0;sNTRIP;none;B;N;0;\r\n" +
	"CAS;rtk2go.com;2101;RTK2go;SNIP;0;USA;37.3;-121.9;0.0.0.0;0;http://rtk2go.com\r\n" +
	"ENDSOURCETABLE\r\n"

// fakeCaster accepts a single connection, records the request and replies
// with response before closing.
func fakeCaster(t *testing.T, response string) (models.CasterConfig, <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	requests := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var req strings.Builder
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			req.WriteString(line)
			if err != nil || line == "\r\n" {
				break
			}
		}
		requests <- req.String()
		io.WriteString(conn, response)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return models.CasterConfig{
		Name:      "TEST",
		Host:      "127.0.0.1",
		Port:      addr.Port,
		Username:  "user",
		Password:  "secret",
		CacheFile: filepath.Join(t.TempDir(), "cache.txt"),
	}, requests
}

func TestBuildRequest(t *testing.T) {
	cc := models.CasterConfig{Host: "rtk2go.com", Port: 2101, Username: "user", Password: "secret"}

	expected := "GET / HTTP/1.1\r\n" +
		"Host: rtk2go.com:2101\r\n" +
		"User-Agent: NTRIPBasestationMapper/1.0\r\n" +
		"Authorization: Basic dXNlcjpzZWNyZXQ=\r\n" +
		"Accept: */*\r\n" +
		"Connection: close\r\n" +
		"\r\n"
	assert.Equal(t, expected, string(BuildRequest(cc)))
}

func TestSplitResponse(t *testing.T) {
	header, body := SplitResponse([]byte("SOURCETABLE 200 OK\r\nServer: x\r\n\r\nline1\r\n\r\nline2"))
	assert.Equal(t, "SOURCETABLE 200 OK\r\nServer: x", string(header))
	assert.Equal(t, "line1\r\n\r\nline2", string(body))

	header, body = SplitResponse([]byte("no blank line here\r\n"))
	assert.Empty(t, header)
	assert.Equal(t, "no blank line here\r\n", string(body))
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		expectError bool
	}{
		{name: "ntrip v1 status", response: "SOURCETABLE 200 OK\r\n\r\nbody"},
		{name: "ntrip v2 content type", response: "HTTP/1.1 200 OK\r\nContent-Type: gnss/sourcetable\r\n\r\nbody"},
		{name: "unauthorized", response: "HTTP/1.1 401 Unauthorized\r\n\r\nbody", expectError: true},
		{name: "no header block", response: "SOURCETABLE 200 OK but never terminated", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := ParseResponse([]byte(tt.response))
			if tt.expectError {
				assert.True(t, apperr.Is(err, apperr.Protocol))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "body", string(body))
		})
	}
}

func TestClient_Fetch(t *testing.T) {
	cc, requests := fakeCaster(t, "SOURCETABLE 200 OK\r\nServer: NTRIP Caster\r\nContent-Type: text/plain\r\n\r\n"+sourceTableBody)
	client := NewClient(zerolog.Nop(), 5*time.Second, 0)

	payload, err := client.Fetch(context.Background(), cc)
	require.NoError(t, err)

	req := <-requests
	assert.True(t, strings.HasPrefix(req, "GET / HTTP/1.1\r\n"))
	assert.Contains(t, req, "Authorization: Basic dXNlcjpzZWNyZXQ=\r\n")
	assert.Contains(t, req, "Connection: close\r\n")

	// The first body line is dropped, the rest keeps its CRLF line breaks.
	expected := strings.SplitN(sourceTableBody, "\n", 2)[1]
	assert.Equal(t, expected, string(payload))

	cached, err := os.ReadFile(cc.CacheFile)
	require.NoError(t, err)
	assert.Equal(t, expected, string(cached))
}

func TestClient_Fetch_NotSourceTable(t *testing.T) {
	cc, _ := fakeCaster(t, "HTTP/1.1 401 Unauthorized\r\n\r\nBad credentials")
	client := NewClient(zerolog.Nop(), 5*time.Second, 0)

	_, err := client.Fetch(context.Background(), cc)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Protocol))
	assert.Contains(t, err.Error(), "Bad credentials")

	_, statErr := os.Stat(cc.CacheFile)
	assert.True(t, os.IsNotExist(statErr), "cache must not be written")
}

func TestClient_Fetch_PayloadTooLarge(t *testing.T) {
	cc, _ := fakeCaster(t, "SOURCETABLE 200 OK\r\n\r\n"+sourceTableBody)
	client := NewClient(zerolog.Nop(), 5*time.Second, 64)

	_, err := client.Fetch(context.Background(), cc)
	assert.True(t, apperr.Is(err, apperr.Protocol))

	_, statErr := os.Stat(cc.CacheFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestClient_Fetch_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	cc := models.CasterConfig{Host: "127.0.0.1", Port: port, CacheFile: filepath.Join(t.TempDir(), "cache.txt")}
	_, err = NewClient(zerolog.Nop(), time.Second, 0).Fetch(context.Background(), cc)
	assert.True(t, apperr.Is(err, apperr.Connection))
}

func TestClient_Fetch_StorageError(t *testing.T) {
	cc, _ := fakeCaster(t, "SOURCETABLE 200 OK\r\n\r\n"+sourceTableBody)
	cc.CacheFile = filepath.Join(t.TempDir(), "missing-dir", "cache.txt")

	_, err := NewClient(zerolog.Nop(), 5*time.Second, 0).Fetch(context.Background(), cc)
	assert.True(t, apperr.Is(err, apperr.Storage))
}

// slowCaster answers the request with response split into chunks, pausing
// between them.
func slowCaster(t *testing.T, chunks []string, pause time.Duration) models.CasterConfig {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		for _, chunk := range chunks {
			if _, err := io.WriteString(conn, chunk); err != nil {
				return
			}
			time.Sleep(pause)
		}
	}()

	return models.CasterConfig{
		Name:      "SLOW",
		Host:      "127.0.0.1",
		Port:      ln.Addr().(*net.TCPAddr).Port,
		Username:  "user",
		Password:  "secret",
		CacheFile: filepath.Join(t.TempDir(), "cache.txt"),
	}
}

func TestClient_Fetch_SlowButProgressing(t *testing.T) {
	response := "SOURCETABLE 200 OK\r\n\r\n" + sourceTableBody
	var chunks []string
	for i := 0; i < len(response); i += len(response)/6 + 1 {
		chunks = append(chunks, response[i:min(i+len(response)/6+1, len(response))])
	}

	// Each pause is well under the timeout, the whole transfer well over it.
	cc := slowCaster(t, chunks, 150*time.Millisecond)
	client := NewClient(zerolog.Nop(), 400*time.Millisecond, 0)

	payload, err := client.Fetch(context.Background(), cc)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "STR;SEINA;")
}

func TestClient_Fetch_StalledPeer(t *testing.T) {
	cc := slowCaster(t, []string{"SOURCETABLE 200 OK\r\n\r\n", "ENDSOURCETABLE\r\n"}, 2*time.Second)
	client := NewClient(zerolog.Nop(), 200*time.Millisecond, 0)

	_, err := client.Fetch(context.Background(), cc)
	assert.True(t, apperr.Is(err, apperr.Connection), "got %v", err)

	_, statErr := os.Stat(cc.CacheFile)
	assert.True(t, os.IsNotExist(statErr))
}
