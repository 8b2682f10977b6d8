package adapters

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/jlaffaye/ftp"

	"pkglist/internal/shared"
)

const defaultHTTPTimeout = 60 * time.Second

// repoTransport opens repository locations over http(s), ftp or the local
// filesystem. Requests are made once; failures are reported, not retried.
type repoTransport struct {
	client  *http.Client
	timeout time.Duration
}

func newRepoTransport(proxy string, timeout time.Duration) (*repoTransport, error) {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy = strings.TrimSpace(proxy); proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid proxy url %s", proxy)).
				WithCause(err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &repoTransport{
		client:  &http.Client{Timeout: timeout, Transport: transport},
		timeout: timeout,
	}, nil
}

func (t *repoTransport) open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid repository url %s", rawURL)).
			WithCause(err)
	}
	switch parsed.Scheme {
	case "http", "https":
		return t.openHTTP(ctx, rawURL)
	case "file":
		// file://relative/path would silently open /path.
		if parsed.Host != "" && parsed.Host != "localhost" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("file url %s must use an absolute path", rawURL))
		}
		return openLocal(parsed.Path)
	case "ftp":
		return t.openFTP(ctx, parsed)
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported repository protocol %s", parsed.Scheme))
	}
}

func (t *repoTransport) openHTTP(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create request").
			WithCause(err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("request failed").
			WithCause(err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("%s not found", rawURL)).
			WithCause(shared.HTTPStatusError(resp.StatusCode, rawURL))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to fetch %s", rawURL)).
			WithCause(shared.HTTPStatusError(resp.StatusCode, rawURL))
	}
	return resp.Body, nil
}

func openLocal(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		code := errbuilder.CodeInternal
		if os.IsNotExist(err) {
			code = errbuilder.CodeNotFound
		}
		return nil, errbuilder.New().
			WithCode(code).
			WithMsg(fmt.Sprintf("%s not found", path)).
			WithCause(err)
	}
	return file, nil
}

type ftpBody struct {
	*ftp.Response
	conn *ftp.ServerConn
}

func (b *ftpBody) Close() error {
	err := b.Response.Close()
	_ = b.conn.Quit()
	return err
}

func (t *repoTransport) openFTP(ctx context.Context, target *url.URL) (io.ReadCloser, error) {
	host := target.Host
	if target.Port() == "" {
		host = net.JoinHostPort(target.Hostname(), "21")
	}
	conn, err := ftp.Dial(host, ftp.DialWithContext(ctx), ftp.DialWithTimeout(t.timeout))
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to connect to %s", host)).
			WithCause(err)
	}
	user, password := "anonymous", "anonymous"
	if target.User != nil {
		user = target.User.Username()
		if secret, ok := target.User.Password(); ok {
			password = secret
		}
	}
	if err := conn.Login(user, password); err != nil {
		_ = conn.Quit()
		return nil, errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg(fmt.Sprintf("ftp login to %s failed", host)).
			WithCause(err)
	}
	resp, err := conn.Retr(target.Path)
	if err != nil {
		_ = conn.Quit()
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("%s not found", target.String())).
			WithCause(err)
	}
	return &ftpBody{Response: resp, conn: conn}, nil
}
