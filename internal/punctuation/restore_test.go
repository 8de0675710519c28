package punctuation

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/go-phonepunct/internal/separator"
)

func preserveOne(t *testing.T, m *Marks, unit string) (string, Entry) {
	t.Helper()
	hidden, ledger, err := m.Preserve([]string{unit})
	if err != nil {
		t.Fatalf("Preserve(%q) error = %v", unit, err)
	}
	return hidden[0], ledger[0]
}

func restoreOne(t *testing.T, out string, entry Entry, opts RestoreOptions) (string, []MissingPlaceholder) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	}
	res, err := Restore([]string{out}, Ledger{entry}, opts)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	return res.Units[0], res.Missing
}

func TestRestore_NoStripKeepsTrailingSeparator(t *testing.T) {
	m, _ := New(".!;:,?")
	tests := []struct {
		in   string
		want string
	}{
		{in: `hi; ho,"`, want: `hi; ho," `},
		{in: `hi; "ho,`, want: `hi; "ho, `},
		{in: `"hi; ho,`, want: `"hi; ho, `},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			hidden, entry := preserveOne(t, m, tt.in)
			got, missing := restoreOne(t, hidden, entry, RestoreOptions{Separator: separator.Default()})
			if got != tt.want {
				t.Errorf("Restore() = %q, want %q", got, tt.want)
			}
			if len(missing) != 0 {
				t.Errorf("unexpected missing placeholders: %+v", missing)
			}
		})
	}
}

func TestRestore_QuotedUnitsDefaultMarks(t *testing.T) {
	m, _ := New(DefaultMarks())
	in := []string{`"Hey! "`, `"hey,"`, "! ?", "hey!"}
	want := []string{`"Hey! " `, `"hey," `, "! ? ", "hey! "}

	hidden, ledger, err := m.Preserve(in)
	if err != nil {
		t.Fatalf("Preserve() error = %v", err)
	}
	res, err := Restore(hidden, ledger, RestoreOptions{Separator: separator.Default()})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	for i := range want {
		if res.Units[i] != want[i] {
			t.Errorf("unit %d = %q, want %q", i, res.Units[i], want[i])
		}
	}
}

func TestRestore_PunctuationOnlyAgainstEmptyOutput(t *testing.T) {
	m, _ := New(DefaultMarks())
	_, entry := preserveOne(t, m, "!?")

	got, missing := restoreOne(t, "", entry, RestoreOptions{Separator: separator.Default(), Strip: true})
	if got != "!?" {
		t.Errorf("strip: Restore() = %q, want %q", got, "!?")
	}
	if len(missing) != 0 {
		t.Errorf("strip: unexpected diagnostics %+v", missing)
	}

	got, _ = restoreOne(t, "  ", entry, RestoreOptions{Separator: separator.Default(), Strip: false})
	if got != "!? " {
		t.Errorf("no strip: Restore() = %q, want %q", got, "!? ")
	}
}

func TestRestore_SpacedMarksUseWordSeparator(t *testing.T) {
	m, _ := New(DefaultMarks())
	_, entry := preserveOne(t, m, "! ?")

	sep := separator.Separator{Word: "_"}
	got, _ := restoreOne(t, "", entry, RestoreOptions{Separator: sep})
	if got != "!_?_" {
		t.Errorf("Restore() = %q, want %q", got, "!_?_")
	}
}

func TestRestore_BackendSeparators(t *testing.T) {
	m, _ := New(DefaultMarks())
	hidden, entry := preserveOne(t, m, "a, b")
	tok := entry.Placeholders[0].Token
	if hidden != "a "+tok+" b" {
		t.Fatalf("hidden = %q", hidden)
	}

	sep := separator.Separator{Phone: "", Syllable: "", Word: "_"}
	out := "ə_" + tok + "_biː_"

	got, _ := restoreOne(t, out, entry, RestoreOptions{Separator: sep, Strip: false})
	if got != "ə,_biː_" {
		t.Errorf("no strip: Restore() = %q, want %q", got, "ə,_biː_")
	}

	got, _ = restoreOne(t, out, entry, RestoreOptions{Separator: sep, Strip: true})
	if got != "ə,_biː" {
		t.Errorf("strip: Restore() = %q, want %q", got, "ə,_biː")
	}
}

func TestRestore_EdgeWhitespaceLeniency(t *testing.T) {
	m, _ := New(DefaultMarks())
	_, entry := preserveOne(t, m, `"hey,"`)
	t0 := entry.Placeholders[0].Token
	t1 := entry.Placeholders[1].Token

	// Some engines pad the line edges with extra spaces.
	out := "  " + t0 + "  heɪ  " + t1 + "  "
	got, _ := restoreOne(t, out, entry, RestoreOptions{Separator: separator.Default(), Strip: true})
	if got != `"heɪ,"` {
		t.Errorf("Restore() = %q, want %q", got, `"heɪ,"`)
	}

	sep := separator.Separator{Word: "_"}
	out = t0 + " heɪ_" + t1
	got, _ = restoreOne(t, out, entry, RestoreOptions{Separator: sep, Strip: true, Leniency: TrimWhitespace})
	if got != `"heɪ,"` {
		t.Errorf("whitespace leniency: Restore() = %q, want %q", got, `"heɪ,"`)
	}
	got, _ = restoreOne(t, out, entry, RestoreOptions{Separator: sep, Strip: true, Leniency: TrimSeparator})
	if got != `" heɪ,"` {
		t.Errorf("separator leniency: Restore() = %q, want %q", got, `" heɪ,"`)
	}
}

func TestRestore_UnitsWithoutMarks(t *testing.T) {
	res, err := Restore([]string{"abc", "abc ", ""}, Ledger{{}, {}, {}}, RestoreOptions{Separator: separator.Default()})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	want := []string{"abc ", "abc ", ""}
	for i := range want {
		if res.Units[i] != want[i] {
			t.Errorf("no strip: unit %d = %q, want %q", i, res.Units[i], want[i])
		}
	}

	res, _ = Restore([]string{"abc", "abc ", "", "  "}, Ledger{{}, {}, {}, {}}, RestoreOptions{Separator: separator.Default(), Strip: true})
	want = []string{"abc", "abc ", "", "  "}
	for i := range want {
		if res.Units[i] != want[i] {
			t.Errorf("strip: unit %d = %q, want %q unchanged", i, res.Units[i], want[i])
		}
	}
}

func TestRestore_RoundTripMarkFreeUnits(t *testing.T) {
	m, _ := New(DefaultMarks())
	units := []string{"", "  ", "a", "a ", "b, c."}

	hidden, ledger, err := m.Preserve(units)
	if err != nil {
		t.Fatalf("Preserve() error = %v", err)
	}
	res, err := Restore(hidden, ledger, RestoreOptions{Separator: separator.Default(), Strip: true})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	for i := range units {
		if res.Units[i] != units[i] {
			t.Errorf("unit %d = %q, want %q", i, res.Units[i], units[i])
		}
	}
}

func TestRestore_DroppedPlaceholderLeavesSingleSeparator(t *testing.T) {
	m, _ := New(DefaultMarks())

	tests := []struct {
		name string
		unit string
		drop []int
		want string
	}{
		{name: "start placement", unit: "hello, world!", drop: []int{0}, want: ", hello world!"},
		{name: "inline placement", unit: "a, b, c, d.", drop: []int{1}, want: "a, , b c, d."},
		{name: "end placement", unit: "one two three four five, six!", drop: []int{0, 1}, want: "one two three four five six, !"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hidden, entry := preserveOne(t, m, tt.unit)
			out := hidden
			for _, i := range tt.drop {
				out = strings.Replace(out, entry.Placeholders[i].Token, "", 1)
			}

			got, missing := restoreOne(t, out, entry, RestoreOptions{Separator: separator.Default(), Strip: true})
			if got != tt.want {
				t.Errorf("Restore(%q) = %q, want %q", out, got, tt.want)
			}
			if len(missing) != len(tt.drop) {
				t.Errorf("missing = %+v, want %d diagnostics", missing, len(tt.drop))
			}
		})
	}
}

func TestRestore_MissingMiddlePlaceholder(t *testing.T) {
	m, _ := New(DefaultMarks())
	_, entry := preserveOne(t, m, "¡hola, mundo!")
	t0 := entry.Placeholders[0].Token
	t2 := entry.Placeholders[2].Token

	var logs bytes.Buffer
	opts := RestoreOptions{
		Separator: separator.Default(),
		Strip:     true,
		Logger:    slog.New(slog.NewTextHandler(&logs, nil)),
	}
	got, missing := restoreOne(t, t0+" ola mundo "+t2, entry, opts)

	if got != "¡, ola mundo!" {
		t.Errorf("Restore() = %q, want %q", got, "¡, ola mundo!")
	}
	if len(missing) != 1 {
		t.Fatalf("missing = %+v, want one diagnostic", missing)
	}
	d := missing[0]
	if d.Index != 1 || d.Mark != ", " || d.Placement != PlacementInline {
		t.Errorf("diagnostic = %+v", d)
	}
	if !errors.Is(d, ErrPlaceholderMissing) {
		t.Error("diagnostic does not match ErrPlaceholderMissing")
	}
	if !strings.Contains(logs.String(), "placeholder missing") {
		t.Errorf("log output %q lacks warning", logs.String())
	}
}

func TestRestore_AllPlaceholdersMissing(t *testing.T) {
	m, _ := New(DefaultMarks())
	_, entry := preserveOne(t, m, "¡hola, mundo!")

	got, missing := restoreOne(t, "ola mundo", entry, RestoreOptions{Separator: separator.Default(), Strip: true})
	if got != "¡ola mundo, !" {
		t.Errorf("Restore() = %q, want %q", got, "¡ola mundo, !")
	}

	want := []Placement{PlacementStart, PlacementEnd, PlacementEnd}
	if len(missing) != len(want) {
		t.Fatalf("missing = %+v, want %d diagnostics", missing, len(want))
	}
	for i, p := range want {
		if missing[i].Placement != p {
			t.Errorf("missing[%d].Placement = %v, want %v", i, missing[i].Placement, p)
		}
	}

	// Marks keep their relative order.
	a, b, c := strings.Index(got, "¡"), strings.Index(got, ","), strings.Index(got, "!")
	if a >= b || b >= c {
		t.Errorf("marks out of order in %q", got)
	}
}

func TestRestore_MissingPlaceholderNearStart(t *testing.T) {
	m, _ := New(DefaultMarks())
	_, entry := preserveOne(t, m, "«oui», dit-elle")
	t1 := entry.Placeholders[1].Token

	got, missing := restoreOne(t, "wi "+t1+" di-ɛl", entry, RestoreOptions{Separator: separator.Default(), Strip: true})
	if got != "«wi», di-ɛl" {
		t.Errorf("Restore() = %q, want %q", got, "«wi», di-ɛl")
	}
	if len(missing) != 1 || missing[0].Placement != PlacementStart {
		t.Errorf("missing = %+v, want one start placement", missing)
	}
}

func TestRestored_Err(t *testing.T) {
	if err := (Restored{}).Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}

	r := Restored{Missing: []MissingPlaceholder{{Unit: 2, Token: "PUNCTQAAAAAA", Mark: "!"}}}
	err := r.Err()
	if !errors.Is(err, ErrPlaceholderMissing) {
		t.Fatalf("Err() = %v, want ErrPlaceholderMissing", err)
	}
	if !strings.Contains(err.Error(), "unit 2") {
		t.Errorf("Err() = %q, want unit index", err)
	}
}

func TestRestore_LedgerMismatch(t *testing.T) {
	_, err := Restore([]string{"a", "b"}, Ledger{{}}, RestoreOptions{Separator: separator.Default()})
	if !errors.Is(err, ErrLedgerMismatch) {
		t.Fatalf("Restore() error = %v, want ErrLedgerMismatch", err)
	}
}

func TestRestore_InvalidLedger(t *testing.T) {
	ledger := Ledger{{Marks: []Mark{{Text: "!"}}}}
	_, err := Restore([]string{"a"}, ledger, RestoreOptions{Separator: separator.Default()})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Restore() error = %v, want ErrInvalidState", err)
	}
}

func TestParseLeniency(t *testing.T) {
	tests := []struct {
		in      string
		want    Leniency
		wantErr bool
	}{
		{in: "", want: TrimWhitespace},
		{in: "whitespace", want: TrimWhitespace},
		{in: "Separator", want: TrimSeparator},
		{in: "loose", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLeniency(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("ParseLeniency(%q) error = %v, want ErrInvalidConfig", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseLeniency(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}
