package checks

import "github.com/samvad-hq/samvad-pulse/pkg/targets"

// Check asserts on a probe response payload. For JSON targets the payload
// is the decoded document; for page targets it is the raw HTML body.
type Check interface {
	Type() string
	Evaluate(tgt targets.Target, payload any) error
}

// Registry resolves the check implementation for a given target config.
type Registry interface {
	CheckFor(tgt targets.Target) (Check, error)
}
