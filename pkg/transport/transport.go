// Package transport builds the HTTP clients used to reach translation
// services and LLM APIs.
//
// Fingerprints:
//   - FingerprintNone: Go's default TLS stack.
//   - FingerprintChrome: uTLS Chrome 120 ClientHello with ALPN pinned to
//     http/1.1, for backends behind Cloudflare that challenge Go's JA3.
//   - FingerprintChromeH2: tls-client Chrome 120 profile speaking HTTP/2.
//
// Large request bodies can be zstd-compressed on the way out; the heartx
// translation service decodes them.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tlsclient "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/klauspost/compress/zstd"
	utls "github.com/refraction-networking/utls"
)

type Fingerprint string

const (
	FingerprintNone     Fingerprint = ""
	FingerprintChrome   Fingerprint = "chrome"
	FingerprintChromeH2 Fingerprint = "chrome-h2"
)

func ParseFingerprint(s string) (Fingerprint, error) {
	switch f := Fingerprint(strings.ToLower(strings.TrimSpace(s))); f {
	case FingerprintNone, FingerprintChrome, FingerprintChromeH2:
		return f, nil
	case "none", "go":
		return FingerprintNone, nil
	default:
		return "", fmt.Errorf("unknown TLS fingerprint %q (want none, chrome or chrome-h2)", s)
	}
}

type Options struct {
	Fingerprint Fingerprint
	// Timeout bounds the whole request. Zero means no client-side limit.
	Timeout time.Duration
	// Proxy is an optional HTTP proxy URL.
	Proxy string
	// CompressAbove zstd-encodes request bodies larger than this many bytes.
	// Zero disables compression.
	CompressAbove int64
}

// NewClient returns an *http.Client configured per opts.
func NewClient(opts Options) (*http.Client, error) {
	var proxyURL *url.URL
	if opts.Proxy != "" {
		u, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		proxyURL = u
	}

	var rt http.RoundTripper
	switch opts.Fingerprint {
	case FingerprintNone:
		t := http.DefaultTransport.(*http.Transport).Clone()
		if proxyURL != nil {
			t.Proxy = http.ProxyURL(proxyURL)
		}
		rt = t
	case FingerprintChrome:
		t := newChromeTransport()
		if proxyURL != nil {
			t.Proxy = http.ProxyURL(proxyURL)
		}
		rt = t
	case FingerprintChromeH2:
		h2, err := newChromeH2RoundTripper(opts.Proxy)
		if err != nil {
			return nil, err
		}
		rt = h2
	default:
		return nil, fmt.Errorf("unknown TLS fingerprint %q", opts.Fingerprint)
	}

	if opts.CompressAbove > 0 {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		rt = &compressRT{inner: rt, threshold: opts.CompressAbove, enc: enc}
	}

	return &http.Client{Timeout: opts.Timeout, Transport: rt}, nil
}

// dialChromeTLS completes a uTLS handshake restricted to HTTP/1.1 and hides
// the connection state so net/http never attempts h2 on it.
func dialChromeTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		rawConn.Close()
		return nil, err
	}

	spec, err := utls.UTLSIdToSpec(utls.HelloChrome_120)
	if err != nil {
		rawConn.Close()
		return nil, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			break
		}
	}

	tlsConn := utls.UClient(rawConn, &utls.Config{ServerName: host}, utls.HelloCustom)
	if err := tlsConn.ApplyPreset(&spec); err != nil {
		rawConn.Close()
		return nil, err
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return &h1Conn{Conn: tlsConn}, nil
}

type h1Conn struct {
	net.Conn
}

func newChromeTransport() *http.Transport {
	return &http.Transport{
		ForceAttemptHTTP2:  false,
		MaxIdleConns:       4,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: true,
		DialTLSContext:     dialChromeTLS,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
}

// chromeH2RT bridges tls-client's fhttp types to net/http.
type chromeH2RT struct {
	client tlsclient.HttpClient
}

func newChromeH2RoundTripper(proxy string) (*chromeH2RT, error) {
	opts := []tlsclient.HttpClientOption{
		tlsclient.WithClientProfile(profiles.Chrome_120),
		tlsclient.WithRandomTLSExtensionOrder(),
		tlsclient.WithNotFollowRedirects(),
	}
	if proxy != "" {
		opts = append(opts, tlsclient.WithProxyUrl(proxy))
	}
	client, err := tlsclient.NewHttpClient(tlsclient.NewNoopLogger(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create chrome h2 client: %w", err)
	}
	return &chromeH2RT{client: client}, nil
}

func (rt *chromeH2RT) RoundTrip(req *http.Request) (*http.Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = req.Body
	}
	fReq, err := fhttp.NewRequest(req.Method, req.URL.String(), body)
	if err != nil {
		return nil, err
	}
	fReq = fReq.WithContext(req.Context())
	// Add headers one by one; replacing the map drops fhttp's defaults.
	for k, vv := range req.Header {
		for _, v := range vv {
			fReq.Header.Add(k, v)
		}
	}
	if req.ContentLength > 0 {
		fReq.ContentLength = req.ContentLength
	}

	fResp, err := rt.client.Do(fReq)
	if err != nil {
		return nil, err
	}
	return &http.Response{
		Status:           fResp.Status,
		StatusCode:       fResp.StatusCode,
		Proto:            fResp.Proto,
		ProtoMajor:       fResp.ProtoMajor,
		ProtoMinor:       fResp.ProtoMinor,
		Header:           http.Header(fResp.Header),
		Body:             fResp.Body,
		ContentLength:    fResp.ContentLength,
		TransferEncoding: fResp.TransferEncoding,
		Close:            fResp.Close,
		Uncompressed:     fResp.Uncompressed,
		Trailer:          http.Header(fResp.Trailer),
		Request:          req,
	}, nil
}

// compressRT zstd-encodes request bodies above threshold.
type compressRT struct {
	inner     http.RoundTripper
	threshold int64
	enc       *zstd.Encoder
}

func (rt *compressRT) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body == nil || req.ContentLength <= rt.threshold || req.Header.Get("Content-Encoding") != "" {
		return rt.inner.RoundTrip(req)
	}

	raw, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	compressed := rt.enc.EncodeAll(raw, nil)

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(compressed))
	out.ContentLength = int64(len(compressed))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(compressed)), nil
	}
	out.Header.Set("Content-Encoding", "zstd")
	return rt.inner.RoundTrip(out)
}
