// Package requester is a thin request helper around one shared resty
// session: it builds a request from a method and parameter map, executes
// it with a flat retry budget, decodes the JSON response through a
// caller-supplied constructor, and reports exactly one terminal outcome on
// a single-fire Signal.
package requester

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Method restricts Execute to the verbs the helper supports.
type Method string

const (
	MethodGet  Method = http.MethodGet
	MethodPost Method = http.MethodPost
)

// Execute issues an asynchronous request and returns its Signal. The
// request is built from url, method, and params: GET renders params as a
// flat unencoded query string, POST as a JSON object body. Transport
// errors and non-200 statuses are re-issued up to retries additional
// times with no delay; the same Signal carries the whole attempt chain and
// resolves exactly once. URL failures resolve invalid_url without touching
// the network.
func Execute[T any](ctx context.Context, rawURL string, method Method, params map[string]any, retries int, ctor Constructor[T]) *Signal[T] {
	sig := newSignal[T]()

	target, err := buildURL(rawURL, method, params)
	if err != nil {
		go sig.resolve(failed[T](newKindError(KindInvalidURL, err)))
		return sig
	}

	body := buildBody(method, params)

	// Capture the session now: a Configure between issue and completion
	// must not affect this request or its retries.
	client := session()

	go run(ctx, client, sig, method, target, body, retries, ctor)
	return sig
}

// run drives the attempt chain on the captured session.
func run[T any](ctx context.Context, client *resty.Client, sig *Signal[T], method Method, target string, body []byte, retries int, ctor Constructor[T]) {
	sig.emitProgress()

	for attempt := 0; ; attempt++ {
		resp, err := issue(ctx, client, method, target, body)
		if err != nil {
			if attempt < retries {
				continue
			}
			sig.resolve(failed[T](newKindError(KindTransport, err)))
			return
		}

		if resp.StatusCode() == http.StatusOK {
			var doc any
			if err := json.Unmarshal(resp.Body(), &doc); err != nil {
				// Contract: an undecodable 200 body resolves nothing.
				// The signal stays pending; only the log knows.
				pkgLogger().WarnObj("response body decode failed; signal left unresolved", "decode_error", map[string]any{
					"url":   target,
					"error": err.Error(),
				})
				return
			}
			sig.resolve(success(Parse(doc, ctor)))
			return
		}

		if attempt < retries {
			continue
		}
		sig.resolve(failed[T](newStatusError(resp.StatusCode())))
		return
	}
}

func issue(ctx context.Context, client *resty.Client, method Method, target string, body []byte) (*resty.Response, error) {
	req := client.R().SetContext(ctx)
	if len(body) > 0 {
		// The body goes out as raw bytes with no Content-Type from this
		// layer; the client library and server defaults apply.
		req.SetBody(body)
	}
	return req.Execute(string(method), target)
}

// buildURL validates the raw URL and, for GET requests with parameters,
// appends the flat query string. Both the original and the derived URL
// must parse to an absolute URL with a host.
func buildURL(rawURL string, method Method, params map[string]any) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}

	if method != MethodGet || len(params) == 0 {
		return rawURL, nil
	}

	derived := rawURL + "?" + flatQuery(params)
	if _, err := url.Parse(derived); err != nil {
		return "", fmt.Errorf("parse url with query: %w", err)
	}
	return derived, nil
}

// flatQuery renders params as key=value pairs joined with '&'. Values are
// rendered with fmt; no URL encoding and no nested structures, per the
// request contract.
func flatQuery(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return strings.Join(pairs, "&")
}

// buildBody serializes POST parameters as a JSON object. A map that fails
// to marshal produces no body at all; the contract swallows the error.
func buildBody(method Method, params map[string]any) []byte {
	if method != MethodPost || len(params) == 0 {
		return nil
	}

	payload, err := json.Marshal(params)
	if err != nil {
		pkgLogger().WarnObj("request body marshal failed; sending without body", "marshal_error", map[string]any{
			"error": err.Error(),
		})
		return nil
	}
	return payload
}
