// Package testutil provides shared test infrastructure for the cstopics
// generators. It holds the golden dataset types and assertion helpers used by
// the scenario tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one run with the outcome fields it must produce.
type GoldenTestCase struct {
	Name string          `json:"name"`
	Seed int64           `json:"seed"`
	Run  json.RawMessage `json:"run"`

	// Expect maps a dotted path into the outcome's JSON form, such as
	// "result.keys.private.d" or "result.stats.0.waiting", to its value.
	Expect map[string]any `json:"expect"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	if len(dataset.Tests) == 0 {
		t.Fatal("Golden dataset has no tests")
	}

	return &dataset
}

// Lookup walks a decoded JSON document along a dotted path. Numeric segments
// index arrays.
func Lookup(doc any, path string) (any, error) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("%s: no key %q", path, seg)
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("%s: bad index %q for %d items", path, seg, len(node))
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("%s: %q is below a %T", path, seg, cur)
		}
	}
	return cur, nil
}

// AssertGolden checks every expected path against the JSON encoding of got.
// Numbers compare with a relative tolerance of 1e-6.
func AssertGolden(t *testing.T, name string, got any, expect map[string]any) {
	t.Helper()
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("%s: marshal outcome: %v", name, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("%s: unmarshal outcome: %v", name, err)
	}
	for path, want := range expect {
		value, err := Lookup(doc, path)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if w, ok := want.(float64); ok {
			g, ok := value.(float64)
			if !ok {
				t.Errorf("%s: %s is %T, want a number", name, path, value)
				continue
			}
			AssertFloat64Equal(t, name+" "+path, w, g, 1e-6)
			continue
		}
		if !reflect.DeepEqual(want, value) {
			t.Errorf("%s: %s = %v, want %v", name, path, value, want)
		}
	}
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
