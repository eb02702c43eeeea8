package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"
)

// aeadSuites 运行时支持的 TLS 1.2 ECDHE + AEAD（GCM / ChaCha20）套件；TLS 1.3 套件不可配置
var aeadSuites = ecdheAEADSuites()

func ecdheAEADSuites() []uint16 {
	var ids []uint16
	for _, s := range tls.CipherSuites() {
		if !slices.Contains(s.SupportedVersions, tls.VersionTLS12) || !strings.HasPrefix(s.Name, "TLS_ECDHE_") {
			continue
		}
		if strings.Contains(s.Name, "_GCM_") || strings.Contains(s.Name, "CHACHA20") {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// DefaultTLSConfig TLS 1.2 起步，只协商 AEAD 套件。每次返回新副本。
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: slices.Clone(aeadSuites),
	}
}

// SecureTransport 上传的音频可能较大，ExpectContinue 放宽到 2s
func SecureTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 15 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       DefaultTLSConfig(),
		TLSHandshakeTimeout:   10 * time.Second,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 2 * time.Second,
	}
}

// SecureHTTPClient 各 Provider 共用的出站客户端
func SecureHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: SecureTransport()}
}
