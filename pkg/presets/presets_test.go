package presets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    Presets
		wantErr bool
	}{
		{
			name: "full file",
			yaml: "work_minutes: 50\nshort_break_minutes: 10\nlong_break_minutes: 30\n",
			want: Presets{WorkMinutes: 50, ShortBreakMinutes: 10, LongBreakMinutes: 30},
		},
		{
			name: "partial file keeps defaults",
			yaml: "work_minutes: 45\n",
			want: Presets{WorkMinutes: 45, ShortBreakMinutes: 5, LongBreakMinutes: 15},
		},
		{
			name:    "zero duration rejected",
			yaml:    "work_minutes: 0\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "work_minutes: [',\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "presets.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
				t.Fatal(err)
			}

			got, err := Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got != tt.want {
				t.Fatalf("Load() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadEmptyPath(t *testing.T) {
	got, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if got != Default() {
		t.Fatalf("Load(\"\") = %+v, want defaults", got)
	}
}

func TestDurationFor(t *testing.T) {
	p := Default()
	if got := p.DurationFor("WORK"); got != 25 {
		t.Fatalf("WORK = %d, want 25", got)
	}
	if got := p.DurationFor("SHORT_BREAK"); got != 5 {
		t.Fatalf("SHORT_BREAK = %d, want 5", got)
	}
	if got := p.DurationFor("LONG_BREAK"); got != 15 {
		t.Fatalf("LONG_BREAK = %d, want 15", got)
	}
	if got := p.DurationFor("TIME_TRACKING"); got != 25 {
		t.Fatalf("TIME_TRACKING = %d, want 25", got)
	}
}
