package util

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
)

// AreEqualJSON reports whether two JSON documents decode to the same value.
func AreEqualJSON(s1, s2 string) (bool, error) {
	var o1 interface{}
	var o2 interface{}

	if err := json.Unmarshal([]byte(s1), &o1); err != nil {
		return false, fmt.Errorf("error parsing string 1: %s", err.Error())
	}
	if err := json.Unmarshal([]byte(s2), &o2); err != nil {
		return false, fmt.Errorf("error parsing string 2: %s", err.Error())
	}
	return reflect.DeepEqual(o1, o2), nil
}

// AssertJSON fails the test unless actual marshals to the same JSON
// value as expected.
func AssertJSON(t *testing.T, caseIdx int, expected string, actual interface{}) {
	t.Helper()
	encoded, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("case %d: marshalling actual: %v", caseIdx, err)
	}
	equal, err := AreEqualJSON(expected, string(encoded))
	if err != nil {
		t.Fatalf("case %d: %v", caseIdx, err)
	}
	if !equal {
		t.Fatalf("case %d: expected\n%s\ngot\n%s", caseIdx, expected, encoded)
	}
}

// AssertError fails the test if the actual error doesn't match the
// expected error message. The return value is "shouldContinue": true
// when an error was expected and matched.
func AssertError(t *testing.T, caseIdx int, expected string, err error) bool {
	t.Helper()
	if err != nil {
		if expected == "" {
			t.Fatalf(`case %d: expected success; got error "%s"`, caseIdx, err.Error())
			return false
		}
		if err.Error() != expected {
			t.Fatalf(`case %d: expected error "%s"; got "%s"`, caseIdx, expected, err.Error())
			return false
		}
		return true
	}
	if expected != "" {
		t.Fatalf(`case %d: expected error "%s"; got success`, caseIdx, expected)
	}
	return false
}
