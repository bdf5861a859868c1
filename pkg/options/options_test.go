package options

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseRequiredFields(t *testing.T) {
	opt, err := Parse([]string{"--data_file", "points.bin", "--k", "5"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opt.DataFile != "points.bin" || opt.K != 5 {
		t.Fatalf("unexpected options: %+v", opt)
	}
}

func TestParseHelpConsumesNoValue(t *testing.T) {
	opt, err := Parse([]string{"--help"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !opt.Help {
		t.Fatalf("expected Help=true")
	}
}

func TestParseRejectsUnknownKey(t *testing.T) {
	if _, err := Parse([]string{"--bogus", "1"}); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestParseRejectsDuplicateKey(t *testing.T) {
	_, err := Parse([]string{"--k", "1", "--k", "2"})
	if err == nil {
		t.Fatalf("expected error for duplicated key")
	}
}

func TestParseRejectsMissingLeadingDashes(t *testing.T) {
	if _, err := Parse([]string{"k", "1"}); err == nil {
		t.Fatalf("expected error for key without leading --")
	}
}

func TestParseRejectsValueLookingLikeFlag(t *testing.T) {
	if _, err := Parse([]string{"--data_file", "--k"}); err == nil {
		t.Fatalf("expected error for value starting with --")
	}
}

func TestOptionsFilePreloadThenCLIOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opts.txt")
	contents := "k 3\ndata_file from_file.bin\n# a comment\n\nhash_table_size 2053\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	opt, err := Parse([]string{"--options_file", path, "--k", "9"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opt.DataFile != "from_file.bin" {
		t.Fatalf("expected data_file from options file, got %q", opt.DataFile)
	}
	if opt.K != 9 {
		t.Fatalf("expected CLI override k=9, got %d", opt.K)
	}
	if opt.HashTableSize != 2053 {
		t.Fatalf("expected hash_table_size from file, got %d", opt.HashTableSize)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.txt")

	opt := Default()
	opt.DataFile = "d.bin"
	opt.K = 10
	if err := opt.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	kv, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if kv["data_file"] != "d.bin" {
		t.Fatalf("round-trip mismatch: %+v", kv)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		rank    int
		wantErr bool
	}{
		{"valid", func(o *Options) { o.DataFile = "x"; o.K = 2 }, 10, false},
		{"missing data file", func(o *Options) { o.K = 2 }, 10, true},
		{"k too small", func(o *Options) { o.DataFile = "x"; o.K = 0 }, 10, true},
		{"k exceeds rank size", func(o *Options) { o.DataFile = "x"; o.K = 10 }, 10, true},
		{"multi probe exceeds functions", func(o *Options) {
			o.DataFile = "x"
			o.K = 2
			o.NumMultiProbes = o.NumHashFunctions + 1
		}, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := Default()
			tt.mutate(opt)
			err := opt.Validate(tt.rank)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
