package inspect

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dop251/goja"
)

const defaultFetchTimeout = 30 * time.Second

// installFetch defines the fetch global: a synchronous, non-streaming take
// on the browser Fetch API.
//
//	fetch(url: string, options?: object): Response
//
// Options:
//
//	method  - HTTP method (default: "GET")
//	headers - object of header key/value pairs
//	body    - request body string
//	timeout - request timeout in seconds (default: 30)
//
// Response:
//
//	status     - HTTP status code (number)
//	ok         - true if status is 200-299 (boolean)
//	statusText - HTTP status line, e.g. "200 OK" (string)
//	url        - final URL after redirects (string)
//	headers    - response headers object (lowercase keys)
//	text()     - response body as string
//	json()     - response body parsed as JSON
//
// Relative URLs resolve against the current document, and requests go
// through the sandbox's HTTP client. The VM is single-threaded, so the
// closure reads s.doc without locking; Evaluate already holds the mutex.
func (s *Sandbox) installFetch() {
	_ = s.vm.Set("fetch", func(call goja.FunctionCall) goja.Value {
		target := call.Argument(0).String()

		method := http.MethodGet
		timeout := defaultFetchTimeout
		var body io.Reader
		var headers map[string]interface{}

		if opt := call.Argument(1); !goja.IsUndefined(opt) && !goja.IsNull(opt) {
			if opts, ok := opt.Export().(map[string]interface{}); ok {
				if m, ok := opts["method"].(string); ok {
					method = strings.ToUpper(m)
				}
				switch v := opts["timeout"].(type) {
				case int64:
					timeout = time.Duration(v) * time.Second
				case float64:
					timeout = time.Duration(v * float64(time.Second))
				}
				if b, ok := opts["body"].(string); ok {
					body = strings.NewReader(b)
				}
				if h, ok := opts["headers"].(map[string]interface{}); ok {
					headers = h
				}
			}
		}

		if s.doc != nil && s.doc.url != nil {
			if ref, err := url.Parse(target); err == nil {
				target = s.doc.url.ResolveReference(ref).String()
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			panic(s.vm.NewGoError(err))
		}
		for k, v := range headers {
			if value, ok := v.(string); ok {
				req.Header.Set(k, value)
			}
		}

		resp, err := s.client.Do(req)
		if err != nil {
			panic(s.vm.NewGoError(err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			panic(s.vm.NewGoError(err))
		}
		s.logger.Debug("sandbox fetch", "url", target, "method", method, "status", resp.StatusCode)

		result := s.vm.NewObject()
		_ = result.Set("status", resp.StatusCode)
		_ = result.Set("ok", resp.StatusCode >= 200 && resp.StatusCode < 300)
		_ = result.Set("statusText", resp.Status)
		_ = result.Set("url", resp.Request.URL.String())

		headersObj := s.vm.NewObject()
		for k, v := range resp.Header {
			_ = headersObj.Set(strings.ToLower(k), strings.Join(v, ", "))
		}
		_ = result.Set("headers", headersObj)

		text := string(data)
		_ = result.Set("text", func() string { return text })
		_ = result.Set("json", func() goja.Value {
			var parsed interface{}
			if err := json.Unmarshal(data, &parsed); err != nil {
				panic(s.vm.NewGoError(err))
			}
			return s.vm.ToValue(parsed)
		})

		return result
	})
}
