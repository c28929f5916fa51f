package history

import (
	"encoding/json"
	"fmt"
)

// encodeRecord serializes the JSON columns of r.
func encodeRecord(r *Record) (steps, migration, errs string, err error) {
	data, err := json.Marshal(r.DatamodelSteps)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to serialize datamodel steps: %w", err)
	}
	steps = string(data)
	if r.DatamodelSteps == nil {
		steps = "[]"
	}

	data, err = json.Marshal(r.Migration)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to serialize migration: %w", err)
	}
	migration = string(data)

	errs, err = encodeErrors(r.Errors)
	return steps, migration, errs, err
}

func encodeErrors(list []string) (string, error) {
	if list == nil {
		return "[]", nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to serialize errors: %w", err)
	}
	return string(data), nil
}

// decodeRecord deserializes the JSON columns into r.
func decodeRecord(r *Record, steps, migration, errs string) error {
	if err := json.Unmarshal([]byte(steps), &r.DatamodelSteps); err != nil {
		return fmt.Errorf("failed to deserialize datamodel steps: %w", err)
	}
	if migration != "" && migration != "null" {
		if err := json.Unmarshal([]byte(migration), &r.Migration); err != nil {
			return fmt.Errorf("failed to deserialize migration: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(errs), &r.Errors); err != nil {
		return fmt.Errorf("failed to deserialize errors: %w", err)
	}
	return nil
}
