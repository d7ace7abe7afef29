package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"latin case fold", "Yemen News Update!", "yemen news update"},
		{"punctuation removed", "عاجل: انفجار في عدن..", "عاجل انفجار في عدن"},
		{"tashkeel stripped", "مُحَمَّد", "محمد"},
		{"hamza variants fold", "الأخبار الإقليمية", "الاخبار الاقليميه"},
		{"alef maqsura folds to ya", "مستشفى", "مستشفي"},
		{"whitespace collapsed", "  خبر   عاجل  ", "خبر عاجل"},
		{"empty input", "", ""},
		{"punctuation only", "!!؟؟--", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fingerprint(tt.in))
		})
	}
}

func TestFingerprintVariantsCollide(t *testing.T) {
	// Two outlets spelling the same headline differently must produce
	// the same signature.
	a := Fingerprint("الأمم المتحدة تحذر من مجاعة في اليمن")
	b := Fingerprint("الامم المتحده تحذر من مجاعة في اليمن!")
	assert.Equal(t, a, b)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want float64
	}{
		{"identical", []string{"a", "b", "c"}, []string{"a", "b", "c"}, 1.0},
		{"disjoint", []string{"a", "b"}, []string{"c", "d"}, 0.0},
		{"half overlap", []string{"a", "b"}, []string{"b", "c"}, 1.0 / 3.0},
		{"empty side", nil, []string{"a"}, 0.0},
		{"duplicate tokens ignored", []string{"a", "a", "b"}, []string{"a", "b", "b"}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, similarity(tt.a, tt.b), 1e-9)
		})
	}
}
