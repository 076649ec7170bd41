package serialline

import (
	"strings"
	"testing"
)

func TestNextLine_Basic(t *testing.T) {
	r := New(strings.NewReader("hello\rworld\r"))

	line, ok, err := r.NextLine()
	if err != nil || !ok || line != "hello" {
		t.Fatalf("first line = %q, %v, %v, want hello, true, nil", line, ok, err)
	}

	line, ok, err = r.NextLine()
	if err != nil || !ok || line != "world" {
		t.Fatalf("second line = %q, %v, %v, want world, true, nil", line, ok, err)
	}

	line, ok, err = r.NextLine()
	if err != nil || ok || line != "" {
		t.Fatalf("line after clean EOF = %q, %v, %v, want \"\", false, nil", line, ok, err)
	}
}

func TestNextLine_UndelimitedTrailingDataAtEOF(t *testing.T) {
	r := New(strings.NewReader("partial"))

	line, ok, err := r.NextLine()
	if err != nil || !ok || line != "partial" {
		t.Fatalf("got %q, %v, %v, want partial, true, nil", line, ok, err)
	}

	line, ok, err = r.NextLine()
	if err != nil || ok || line != "" {
		t.Fatalf("second call after EOF drain = %q, %v, %v, want \"\", false, nil", line, ok, err)
	}
}

func TestNextLine_InvalidUTF8Retries(t *testing.T) {
	invalid := []byte{0xff, 0xfe, '\r'}
	r := New(strings.NewReader(string(invalid) + "ok\r"))

	_, ok, err := r.NextLine()
	if err != ErrInvalidData {
		t.Fatalf("expected ErrInvalidData, got ok=%v err=%v", ok, err)
	}

	// Buffer should still contain the invalid line, failing again rather
	// than silently skipping it, until the caller discards it.
	_, _, err = r.NextLine()
	if err != ErrInvalidData {
		t.Fatalf("expected ErrInvalidData again on retry, got %v", err)
	}
}

func TestScanIndexMatchesPortableScan(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("no delimiter here"),
		[]byte("has\rone"),
		[]byte("has\rtwo\rdelimiters"),
		make([]byte, 300), // exercises any chunked/optimized scan path
	}
	cases[4][150] = '\r'

	for i, b := range cases {
		want := indexByte(b, delimiter)
		got := ScanIndex(b)
		if got != want {
			t.Errorf("case %d: ScanIndex = %d, indexByte = %d", i, got, want)
		}
	}
}
