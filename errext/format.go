package errext

import "errors"

// Format returns the error message and the log fields that go with it; a
// hint, when present, becomes the "hint" field.
func Format(err error) (string, map[string]interface{}) {
	if err == nil {
		return "", nil
	}

	fields := make(map[string]interface{})
	var herr HasHint
	if errors.As(err, &herr) {
		fields["hint"] = herr.Hint()
	}

	return err.Error(), fields
}
