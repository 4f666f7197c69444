package legacy

import (
	"reflect"
	"strings"
	"testing"
)

func TestTextRuns(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		minLen int
		want   []string
	}{
		{"empty", nil, 4, nil},
		{"single run", []byte("\x00\x01abcd\x02"), 4, []string{"abcd"}},
		{"short run dropped", []byte("abc\x00defg"), 4, []string{"defg"}},
		{"run at end", []byte("\x00\x00hello"), 4, []string{"hello"}},
		{"latin-1 bytes count", []byte("\x00caf\xe9\x00"), 4, []string{"caf\xe9"}},
		{"control bytes split", []byte("ab\x7fcd\x9fef"), 2, []string{"ab", "cd", "ef"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range textRuns(tt.data, tt.minLen) {
				got = append(got, string(r))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("textRuns = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScanDecodesWindows1252(t *testing.T) {
	// "Crème brûlée" in cp1252, padded with enough ASCII to pass the length
	// threshold.
	run := []byte("Cr\xe8me br\xfbl\xe9e is served cold with caramelised sugar on top")
	data := append(append([]byte{0x00, 0x01}, run...), 0x00)

	got := NewScanner(ScanConfig{}, discard).Scan(data)
	want := "Crème brûlée is served cold with caramelised sugar on top"
	if got != want {
		t.Errorf("Scan = %q, want %q", got, want)
	}
}

func TestScanRejectsShortFragments(t *testing.T) {
	long := strings.Repeat("word ", 12)
	// "   x" passes the run filter but trims to a single rune.
	data := []byte("\x00" + long + "\x00   x\x00")

	got := NewScanner(ScanConfig{}, discard).Scan(data)
	want := strings.TrimSpace(long)
	if got != want {
		t.Errorf("Scan = %q, want %q", got, want)
	}
}

func TestScanThresholdsAreConfigurable(t *testing.T) {
	data := []byte("\x00short text only\x00")

	if got := NewScanner(ScanConfig{}, discard).Scan(data); got != "" {
		t.Errorf("default thresholds: Scan = %q, want empty", got)
	}
	got := NewScanner(ScanConfig{MinTextChars: 10}, discard).Scan(data)
	if got != "short text only" {
		t.Errorf("MinTextChars=10: Scan = %q, want %q", got, "short text only")
	}
}

func TestScanSkipsUnknownEncodings(t *testing.T) {
	s := NewScanner(ScanConfig{Encodings: []string{"no-such-charset", "utf-8"}}, discard)
	if len(s.encodings) != 1 || s.encodings[0].name != "utf-8" {
		t.Fatalf("encodings = %+v, want only utf-8", s.encodings)
	}
}

func TestLookupEncodingIANANames(t *testing.T) {
	for _, name := range []string{"utf-8", "UTF-16", "cp1252", "latin-1", "ISO-8859-15", "koi8-r"} {
		if _, err := lookupEncoding(name); err != nil {
			t.Errorf("lookupEncoding(%q): %v", name, err)
		}
	}
}
