package files

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaType(t *testing.T) {
	assert.Equal(t, "document", MediaType("tabela.PDF"))
	assert.Equal(t, "document", MediaType("termo.docx"))
	assert.Equal(t, "image", MediaType("antes.jpeg"))
	assert.Equal(t, "image", MediaType("depois.png"))
	assert.Equal(t, "video", MediaType("clinica.mp4"))
	assert.Equal(t, "audio", MediaType("boas-vindas.mp3"))
	assert.Equal(t, "document", MediaType("sem-extensao"))
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "pos_operatorio", NormalizeCategory("  Pos   Operatorio "))
	assert.Equal(t, "precos", NormalizeCategory("PRECOS"))
	assert.Equal(t, "", NormalizeCategory("   "))
}

func TestValidateCategory(t *testing.T) {
	for _, ok := range []string{"precos", "pos_operatorio", "pós-operatório", "videos2025"} {
		assert.NoError(t, ValidateCategory(ok), ok)
	}
	for _, bad := range []string{"", ".", "..", "../x", "a/b", `a\b`, "a.b", "%2e%2e"} {
		assert.ErrorIs(t, ValidateCategory(bad), ErrInvalidCategory, bad)
	}
}

func TestValidateSize(t *testing.T) {
	assert.NoError(t, ValidateSize(MaxFileSize))

	err := ValidateSize(MaxFileSize + 1024*1024)
	if assert.Error(t, err) {
		assert.Equal(t, "Arquivo muito grande. Limite: 16MB. Tamanho enviado: 17.0MB", err.Error())
	}
}

func TestValidateExtension(t *testing.T) {
	assert.NoError(t, ValidateExtension("a.MP3"))

	err := ValidateExtension("script.exe")
	if assert.Error(t, err) {
		assert.Equal(t, "Extensão não suportada: .exe. Use: pdf, docx, jpg, jpeg, png, mp4, mp3", err.Error())
	}
}

func TestCleanName(t *testing.T) {
	name, ok := cleanName(`C:\Users\ana\tabela.pdf`)
	assert.True(t, ok)
	assert.Equal(t, "tabela.pdf", name)

	name, ok = cleanName("../../etc/passwd.pdf")
	assert.True(t, ok)
	assert.Equal(t, "passwd.pdf", name)

	_, ok = cleanName("..")
	assert.False(t, ok)
}
