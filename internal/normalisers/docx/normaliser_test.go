package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(t testing.TB, documentXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	// Add [Content_Types].xml (required for valid DOCX)
	contentTypes, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))
	require.NoError(t, err)

	if documentXML != "" {
		doc, err := w.Create("word/document.xml")
		require.NoError(t, err)
		_, err = doc.Write([]byte(documentXML))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

// wordDocument wraps body XML in a document element.
func wordDocument(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>` + body + `</w:body>
</w:document>`
}

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{".docx"}, New().SupportedExtensions())
}

func TestNormalise(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "single paragraph",
			body:     "<w:p><w:r><w:t>Hello World</w:t></w:r></w:p>",
			expected: "Hello World",
		},
		{
			name: "multiple paragraphs",
			body: "<w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>" +
				"<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>" +
				"<w:p><w:r><w:t>Third paragraph</w:t></w:r></w:p>",
			expected: "First paragraph\nSecond paragraph\nThird paragraph",
		},
		{
			name:     "multiple runs",
			body:     "<w:p>\n<w:r><w:t>Hello </w:t></w:r>\n<w:r><w:t>World</w:t></w:r>\n</w:p>",
			expected: "Hello World",
		},
		{
			name:     "empty body",
			body:     "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := createTestDOCX(t, wordDocument(tt.body))

			text, err := New().Normalise(context.Background(), data, "doc.docx")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, text)
		})
	}
}

func TestNormalise_InvalidZip(t *testing.T) {
	text, err := New().Normalise(context.Background(), []byte("not a zip file"), "invalid.docx")

	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Contains(t, err.Error(), "invalid.docx")
	assert.Empty(t, text)
}

func TestNormalise_MissingDocumentPart(t *testing.T) {
	_, err := New().Normalise(context.Background(), createTestDOCX(t, ""), "hollow.docx")

	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Contains(t, err.Error(), "word/document.xml")
}

func TestNormalise_MalformedXML(t *testing.T) {
	_, err := New().Normalise(context.Background(), createTestDOCX(t, "<w:document><w:body>"), "broken.docx")

	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func BenchmarkNormalise(b *testing.B) {
	normaliser := New()
	ctx := context.Background()
	data := createTestDOCX(b, wordDocument("<w:p><w:r><w:t>Hello World</w:t></w:r></w:p>"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = normaliser.Normalise(ctx, data, "doc.docx")
	}
}
