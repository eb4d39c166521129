package filename

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecure(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"My cool file.pdf", "My_cool_file.pdf"},
		{"../../etc/passwd", "etc_passwd"},
		{`..\..\windows\system32.pdf`, "windows_system32.pdf"},
		{"résumé.pdf", "resume.pdf"},
		{"i contain cool ümläuts.pdf", "i_contain_cool_umlauts.pdf"},
		{"...", ""},
		{"файл.pdf", "pdf"},
		{"CON.pdf", "_CON.pdf"},
		{"a$b%c.pdf", "abc.pdf"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Secure(tc.in), "Secure(%q)", tc.in)
	}
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("doc.pdf", "pdf"))
	assert.True(t, HasExtension("DOC.PDF", "pdf"))
	assert.True(t, HasExtension("archive.tar.pdf", "pdf"))
	assert.False(t, HasExtension("doc.txt", "pdf"))
	assert.False(t, HasExtension("pdf", "pdf"))
	assert.False(t, HasExtension("doc.pdf.txt", "pdf"))
}

func TestArtifact(t *testing.T) {
	assert.Equal(t, "doc.json", Artifact("doc.pdf"))
	assert.Equal(t, "archive.tar.json", Artifact("archive.tar.pdf"))
	assert.Equal(t, "noext.json", Artifact("noext"))
}
