// Command fetch issues a single ad-hoc request through the shared session
// and prints the outcome as JSON. Useful for poking a target by hand before
// adding it to the registry.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-pulse/pkg/requester"
)

type paramFlags map[string]any

func (p paramFlags) String() string {
	pairs := make([]string, 0, len(p))
	for k, v := range p {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(pairs, ",")
}

func (p paramFlags) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	p[key] = val
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	params := paramFlags{}
	rawURL := flag.String("url", "", "absolute URL to request (required)")
	method := flag.String("method", "GET", "HTTP method: GET or POST")
	retries := flag.Int("retries", 0, "additional attempts after the first failure")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline for the request")
	flag.Var(params, "param", "request parameter as key=value (repeatable)")
	flag.Parse()

	if strings.TrimSpace(*rawURL) == "" {
		flag.Usage()
		return fmt.Errorf("-url is required")
	}

	m := requester.MethodGet
	switch strings.ToUpper(strings.TrimSpace(*method)) {
	case "GET":
	case "POST":
		m = requester.MethodPost
	default:
		return fmt.Errorf("unsupported method %q", *method)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sig := requester.Execute(ctx, *rawURL, m, params, *retries, requester.JSONConstructor[map[string]any]())
	out, err := sig.Wait(ctx)
	if err != nil {
		return fmt.Errorf("no outcome before deadline: %w", err)
	}

	return printOutcome(out)
}

func printOutcome(out requester.Outcome[map[string]any]) error {
	report := map[string]any{}
	switch out.State {
	case requester.StateSuccess:
		report["state"] = "success"
		if out.Result.Collection {
			report["items"] = out.Result.Items
		} else if out.Result.Item != nil {
			report["item"] = *out.Result.Item
		}
	case requester.StateFailed:
		report["state"] = "failed"
		report["kind"] = out.Err.Kind.String()
		if out.Err.Status != 0 {
			report["status"] = out.Err.Status
		}
		report["error"] = out.Err.Error()
	default:
		report["state"] = "in_progress"
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
