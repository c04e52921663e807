// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package rows_test

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mdhender/drivestats/rows"
)

func TestReader_NamedFields(t *testing.T) {
	input := "\ufeffdate, serial_number ,model\n2013-04-10,MJ0351YNG9Z0XA,Hitachi HDS5C3030ALA630\n2013-04-10,9WM,ST3000DM001\n"
	r, err := rows.NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	if got := strings.Join(r.Columns(), "|"); got != "date|serial_number|model" {
		t.Errorf("columns: got %q", got)
	}
	if !r.Has("serial_number") || r.Has("failure") {
		t.Errorf("Has: unexpected result")
	}

	row, err := r.Read()
	if err != nil {
		t.Fatalf("read 1: %v", err)
	}
	if row.Line != 2 {
		t.Errorf("line: want 2, got %d", row.Line)
	}
	if got := row.Value("model"); got != "Hitachi HDS5C3030ALA630" {
		t.Errorf("model: got %q", got)
	}
	if _, ok := row.Get("failure"); ok {
		t.Errorf("failure: want missing")
	}

	row, err = r.Read()
	if err != nil {
		t.Fatalf("read 2: %v", err)
	}
	if got := row.Value("serial_number"); got != "9WM" {
		t.Errorf("serial: got %q", got)
	}
	if _, err = r.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("want EOF, got %v", err)
	}
}

func TestReader_MalformedRowIsRowScoped(t *testing.T) {
	input := "a,b\n1,2\n3\n4,5\n6,7,8\n"
	r, err := rows.NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	var good []string
	var bad []int
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var re *rows.RowError
		if errors.As(err, &re) {
			if !errors.Is(err, csv.ErrFieldCount) {
				t.Errorf("line %d: want ErrFieldCount, got %v", re.Line, re.Err)
			}
			bad = append(bad, re.Line)
			continue
		} else if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		good = append(good, row.Value("a")+row.Value("b"))
	}

	if strings.Join(good, ",") != "12,45" {
		t.Errorf("good rows: got %v", good)
	}
	if len(bad) != 2 || bad[0] != 3 || bad[1] != 5 {
		t.Errorf("bad lines: want [3 5], got %v", bad)
	}
}

func TestReader_EmptyInput(t *testing.T) {
	if _, err := rows.NewReader(strings.NewReader("")); err == nil {
		t.Errorf("want error for missing header")
	}
}
