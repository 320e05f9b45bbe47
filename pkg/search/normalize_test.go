package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"   ", ""},
		{"\t\n\r　", ""},
		{"서울특별시 강남구", "서울특별시강남구"},
		{"  New  York ", "newyork"},
		{"ÀB C", "àbc"},
		{"ㄱㄴㄱ", "ㄱㄴㄱ"},
		// the Unicode White_Space set: NEL goes, a BOM is not whitespace
		{"강\u0085남", "강남"},
		{"강\u00a0남", "강남"},
		{"\ufeff강남", "\ufeff강남"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.input))
			assert.Equal(t, tc.want, Normalize(Normalize(tc.input)), "not idempotent")
		})
	}
}

func TestChosung(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"강남구", "ㄱㄴㄱ"},
		{"서울특별시 강남구", "ㅅㅇㅌㅂㅅ ㄱㄴㄱ"},
		{"가", "ㄱ"},
		{"힣", "ㅎ"}, // last syllable of the block
		{"까치", "ㄲㅊ"},
		{"ㄱㄴ", "ㄱㄴ"}, // jamo are outside the syllable block
		{"Seoul-1", "Seoul-1"},
		{"강남Gu 1동", "ㄱㄴGu 1ㄷ"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, Chosung(tc.input))
		})
	}
}

func TestGeocodeCandidates(t *testing.T) {
	assert.Equal(t, "강원도 춘천시", ShortenAddress("강원특별자치도 춘천시"))
	assert.Equal(t, "세종시", ShortenAddress("세종특별자치시"))
	assert.Equal(t, "서울특별시 강남구", ShortenAddress("서울특별시 강남구"))

	assert.Equal(t, "역삼동", LastSegment("서울특별시 강남구 역삼동"))
	assert.Equal(t, "", LastSegment("서울특별시"))

	assert.Equal(t,
		[]string{"강원특별자치도 춘천시", "강원도 춘천시", "춘천시"},
		GeocodeCandidates("강원특별자치도 춘천시"))
	assert.Equal(t,
		[]string{"서울특별시 강남구", "강남구"},
		GeocodeCandidates("서울특별시 강남구"))
	assert.Equal(t, []string{"부산광역시"}, GeocodeCandidates("부산광역시"))
}
