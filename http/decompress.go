package http

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

const (
	headerAcceptEncoding  = "Accept-Encoding"
	headerContentEncoding = "Content-Encoding"
	acceptedEncodings     = "br, gzip"
)

// readBody reads the whole response body, undoing br or gzip content
// encoding. Bodies the transport already decompressed arrive without the
// header and are read as is. Only 2xx bodies must decode; any other status
// keeps the raw bytes so it is still classified by its status.
func readBody(resp *nethttp.Response) ([]byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	body, err := decodeContent(resp.Header.Get(headerContentEncoding), raw)
	if err != nil {
		if IsSuccessStatus(resp.StatusCode) {
			return nil, err
		}
		return raw, nil
	}
	return body, nil
}

func decodeContent(encoding string, raw []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return raw, nil
	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(raw)))
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid gzip body: %w", err)
		}
		defer gz.Close()
		return io.ReadAll(gz)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
