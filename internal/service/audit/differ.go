package audit

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/jwalitptl/encounter-api/internal/model"
)

// DefaultIgnored are fields that change on every write or are never persisted.
var DefaultIgnored = []string{"updated_at", "last_auto_save_at", "is_draft_consultation"}

// Diff compares two versions of a record field by field, keyed by JSON name.
// Values are compared after a JSON round trip, so two distinct pointers to
// equal values are equal. A nil side counts as an empty record.
func Diff(before, after interface{}, ignore ...string) (model.AuditChanges, error) {
	b, err := toFields(before)
	if err != nil {
		return nil, fmt.Errorf("failed to read previous version: %w", err)
	}
	a, err := toFields(after)
	if err != nil {
		return nil, fmt.Errorf("failed to read new version: %w", err)
	}

	skip := make(map[string]bool, len(ignore))
	for _, f := range ignore {
		skip[f] = true
	}

	changes := model.AuditChanges{}
	for _, key := range unionKeys(b, a) {
		if skip[key] {
			continue
		}
		oldV, newV := b[key], a[key]
		if reflect.DeepEqual(oldV, newV) {
			continue
		}
		changes[key] = model.FieldChange{Old: oldV, New: newV}
	}
	return changes, nil
}

func toFields(v interface{}) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if v == nil {
		return fields, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return fields, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func unionKeys(maps ...map[string]interface{}) []string {
	seen := map[string]bool{}
	var keys []string
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
