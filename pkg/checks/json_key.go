package checks

import (
	"fmt"

	"github.com/samvad-hq/samvad-pulse/pkg/targets"
)

const TypeJSONKey = "json_key"

// jsonKeyCheck requires a configured key to be present and non-null in the
// decoded response document.
type jsonKeyCheck struct{}

func (jsonKeyCheck) Type() string { return TypeJSONKey }

func (jsonKeyCheck) Evaluate(tgt targets.Target, payload any) error {
	key := targets.ConfigString(tgt, targets.ConfigRequiredKey, "")
	if key == "" {
		return fmt.Errorf("target %q uses json_key check without config.required_key", tgt.ID)
	}

	doc, ok := payload.(map[string]any)
	if !ok {
		return fmt.Errorf("target %q response is not a JSON object", tgt.ID)
	}

	val, ok := doc[key]
	if !ok || val == nil {
		return fmt.Errorf("target %q response is missing key %q", tgt.ID, key)
	}
	return nil
}
