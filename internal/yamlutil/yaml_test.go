package yamlutil

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Name  string   `yaml:"name"`
	Marks []string `yaml:"marks"`
}

func TestUnmarshal(t *testing.T) {
	var got sample
	err := Unmarshal([]byte("name: default\nmarks: [\",\", \".\"]\n"), &got)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Name != "default" || len(got.Marks) != 2 || got.Marks[1] != "." {
		t.Fatalf("Unmarshal() = %+v", got)
	}
}

func TestUnmarshal_InputValidation(t *testing.T) {
	var got sample

	if err := Unmarshal(nil, &got); !errors.Is(err, ErrNilData) {
		t.Errorf("nil data: error = %v, want ErrNilData", err)
	}
	if err := Unmarshal([]byte("name: x"), nil); !errors.Is(err, ErrNilDestination) {
		t.Errorf("nil destination: error = %v, want ErrNilDestination", err)
	}

	orig := MaxInputSize
	t.Cleanup(func() { MaxInputSize = orig })
	MaxInputSize = 4
	if err := Unmarshal([]byte("name: toolong"), &got); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("large input: error = %v, want ErrInputTooLarge", err)
	}
}

func TestUnmarshalStrict_RejectsUnknownFields(t *testing.T) {
	var got sample
	if err := UnmarshalStrict([]byte("name: x\nunknown: 1\n"), &got); err == nil {
		t.Fatal("UnmarshalStrict() expected error for unknown field")
	}
}

func TestMarshal(t *testing.T) {
	out, err := Marshal(sample{Name: "x", Marks: []string{"!"}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(out), "name: x") {
		t.Fatalf("Marshal() = %q, want name field", out)
	}
}
