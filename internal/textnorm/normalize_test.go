package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Tiêm Insulin":                  "tiem insulin",
		"  đo   đường huyết ":           "do duong huyet",
		"ĐỒNG HÀNH":                     "dong hanh",
		"Chăm sóc vết thương (hở)!":     "cham soc vet thuong ho",
		"nấu ăn,\tdọn dẹp":              "nau an don dep",
		"vật lý trị liệu - 2 buổi/tuần": "vat ly tri lieu 2 buoituan",
		"":    "",
		"!!!": "",
	}

	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, s := range []string{"Hỗ trợ đi lại", "nhắc nhở uống thuốc", "Alzheimer"} {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestNormalizeAll(t *testing.T) {
	assert.Nil(t, NormalizeAll(nil))
	assert.Equal(t, []string{"tam", "cho an"}, NormalizeAll([]string{"Tắm", "Cho ăn"}))
}

func TestWords(t *testing.T) {
	words := Words("Đo huyết áp, đo mạch")
	assert.Len(t, words, 4)
	assert.Contains(t, words, "do")
	assert.Contains(t, words, "huyet")
	assert.Contains(t, words, "ap")
	assert.Contains(t, words, "mach")
}
