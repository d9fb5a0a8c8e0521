package game

import (
	"testing"

	apperrors "github.com/QQHKX/rollcall-module/errors"
)

func TestParseNames(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    []string
		wantErr bool
	}{
		{
			name: "plain lines",
			data: "Alice\nBob\n\n  Carol  \n",
			want: []string{"Alice", "Bob", "Carol"},
		},
		{
			name: "windows line endings",
			data: "Alice\r\nBob\r\n",
			want: []string{"Alice", "Bob"},
		},
		{
			name: "csv with name header",
			data: "id,name,class\n1,Alice,3A\n2,Bob,3B\n",
			want: []string{"Alice", "Bob"},
		},
		{
			name: "csv with chinese header",
			data: "学号,姓名\n01,王小明\n02,李华\n",
			want: []string{"王小明", "李华"},
		},
		{
			name: "tsv first column without header",
			data: "Alice\t3A\nBob\t3B\n",
			want: []string{"Alice", "Bob"},
		},
		{
			name: "csv skips blank cells",
			data: "name,class\nAlice,3A\n,\nBob,3B\n",
			want: []string{"Alice", "Bob"},
		},
		{
			name:    "empty input",
			data:    "",
			wantErr: true,
		},
		{
			name:    "only blank lines",
			data:    "\n\n   \n",
			wantErr: true,
		},
		{
			name:    "header only",
			data:    "name,class\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNames(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				if apperrors.GetCode(err) != apperrors.ErrNoImportableEntries {
					t.Errorf("error code %d, want %d", apperrors.GetCode(err), apperrors.ErrNoImportableEntries)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("name %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestApplyImportAppend(t *testing.T) {
	rp := NewRosterPool(true)
	rp.AddStudent("Existing", "")

	count := ApplyImport(rp, []string{"Alice", "Bob"}, ImportAppend)
	if count != 2 {
		t.Fatalf("count %d, want 2", count)
	}
	if rp.Size() != 3 {
		t.Errorf("roster size %d, want 3", rp.Size())
	}
	if len(rp.Pool()) != 3 {
		t.Errorf("pool size %d, want 3", len(rp.Pool()))
	}
}

func TestApplyImportReplace(t *testing.T) {
	rp := NewRosterPool(true)
	rp.AddStudent("Existing", "")

	count := ApplyImport(rp, []string{"Alice", "Bob"}, ImportReplace)
	if count != 2 {
		t.Fatalf("count %d, want 2", count)
	}
	if rp.Size() != 2 {
		t.Errorf("roster size %d, want 2", rp.Size())
	}
	if _, found := rp.FindByName("Existing"); found {
		t.Error("replace import must not keep old roster entries")
	}
	if len(rp.Pool()) != 2 {
		t.Errorf("pool should rebuild from new roster, got %d", len(rp.Pool()))
	}
}
