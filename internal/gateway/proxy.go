package gateway

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/minishop/pkg/metrics"
	"github.com/nao1215/minishop/pkg/middleware"
)

// hopHeaders は転送時に取り除くホップバイホップヘッダー。
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// proxy はルールに従ってリクエストを内部サービスに転送する。
// 1回だけ送信し、リトライはしない。
type proxy struct {
	client  *http.Client
	metrics *metrics.HTTP
}

// newProxy はタイムアウト付きのproxyを生成する。
func newProxy(timeout time.Duration, m *metrics.HTTP) *proxy {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// レスポンスボディをそのまま返すため、透過的な解凍をさせない
	transport.DisableCompression = true

	return &proxy{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		metrics: m,
	}
}

// forward はリクエストを転送し、レスポンスのステータス・ヘッダー・ボディをそのまま返す。
// 転送先がタイムアウトした場合は504、接続できない場合は502を返す。
func (p *proxy) forward(c *gin.Context, rule *Rule) {
	target := upstreamURL(rule, c.Request.URL)

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target.String(), c.Request.Body)
	if err != nil {
		log.Printf("[Gateway] プロキシリクエストの作成に失敗: route=%s, error=%v", rule.Name, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	req.ContentLength = c.Request.ContentLength
	req.Header = outboundHeader(c)
	// changeOrigin: Hostは転送先のものにする
	req.Host = rule.Target.Host

	if claims := middleware.GetClaims(c); claims != nil {
		req.Header.Set(middleware.HeaderKeyUserID, claims.Identity())
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			p.metrics.UpstreamError(rule.Name, "timeout")
			log.Printf("[Gateway] 転送先がタイムアウト: route=%s, url=%s, error=%v", rule.Name, target, err)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": "Upstream service timed out"})
			return
		}
		p.metrics.UpstreamError(rule.Name, "unavailable")
		log.Printf("[Gateway] 転送先に接続できません: route=%s, url=%s, error=%v", rule.Name, target, err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Upstream service unavailable"})
		return
	}
	defer resp.Body.Close()

	header := c.Writer.Header()
	for k, vv := range resp.Header {
		header[k] = append([]string(nil), vv...)
	}
	removeHopHeaders(header)

	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		// ヘッダー送信後なのでステータスは変えられない
		log.Printf("[Gateway] レスポンスボディの転送に失敗: route=%s, error=%v", rule.Name, err)
	}
}

// upstreamURL は書き換え後のパスと元のクエリ文字列から転送先URLを組み立てる。
func upstreamURL(rule *Rule, in *url.URL) *url.URL {
	out := *rule.Target
	out.Path = strings.TrimSuffix(rule.Target.Path, "/") + rule.Rewrite(in.Path)
	out.RawPath = ""
	out.RawQuery = in.RawQuery
	return &out
}

// outboundHeader は転送用のヘッダーを組み立てる。
// Host、ホップバイホップヘッダー、クライアントが送ったX-User-IDを除き、X-Forwarded-*を付与する。
func outboundHeader(c *gin.Context) http.Header {
	h := c.Request.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	for _, f := range h.Values("Connection") {
		for _, name := range strings.Split(f, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	removeHopHeaders(h)
	h.Del("Host")
	// ユーザーIDは検証済みのクレームからのみ設定する
	h.Del(middleware.HeaderKeyUserID)

	if ip := c.ClientIP(); ip != "" {
		if prior := h.Get("X-Forwarded-For"); prior != "" {
			ip = prior + ", " + ip
		}
		h.Set("X-Forwarded-For", ip)
	}
	h.Set("X-Forwarded-Host", c.Request.Host)
	proto := "http"
	if c.Request.TLS != nil {
		proto = "https"
	}
	h.Set("X-Forwarded-Proto", proto)
	return h
}

func removeHopHeaders(h http.Header) {
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// isTimeout は送信エラーがタイムアウトによるものかどうかを判定する。
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
