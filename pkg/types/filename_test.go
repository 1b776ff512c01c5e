package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Report: Q1/Q2", "Report_Q1Q2"},
		{"  Hello   World  ", "Hello_World"},
		{"a-b_c d", "a-b_c_d"},
		{"tab\tand\nnewline", "tab_and_newline"},
		{"!!!", ""},
		{"제목 title", "title"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestSnapshotFilename(t *testing.T) {
	assert.Equal(t, "Report_Q1Q2_full.html", SnapshotFilename("Report: Q1/Q2", ModeFull))
	assert.Equal(t, "News_selection.html", SnapshotFilename("News", ModeSelection))
	assert.Equal(t, "webpage_full.html", SnapshotFilename("", ModeFull))
	assert.Equal(t, "webpage_full.html", SnapshotFilename("???", ModeFull))
	assert.Equal(t, "My_Page_files", ResourceFolder("My Page"))
}
