package richtext

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert := assert.New(t)

	t.Run("Short Text Unchanged", func(t *testing.T) {
		text, changed := Truncate("hello world", 285)
		assert.False(changed)
		assert.Equal("hello world", text)
	})

	t.Run("Exactly Max", func(t *testing.T) {
		in := strings.Repeat("a", 10)
		text, changed := Truncate(in, 10)
		assert.False(changed)
		assert.Equal(in, text)
	})

	t.Run("Plain Text Cut With Ellipsis", func(t *testing.T) {
		text, changed := Truncate(strings.Repeat("a", 20), 10)
		assert.True(changed)
		assert.Equal(strings.Repeat("a", 9)+Ellipsis, text)
		assert.Equal(10, utf8.RuneCountInString(text))
	})

	t.Run("URL Kept Whole", func(t *testing.T) {
		url := "https://example.com/a/very/long/path/that/should/never/be/cut?with=query"
		in := strings.Repeat("word ", 30) + url
		text, changed := Truncate(in, 100)
		assert.True(changed)
		assert.Contains(text, url)
		assert.True(strings.HasSuffix(text, " "+url))
		assert.LessOrEqual(utf8.RuneCountInString(text), 100)
		assert.Contains(text, Ellipsis)
	})

	t.Run("URL Before Text", func(t *testing.T) {
		url := "https://example.com/post/1"
		in := url + " " + strings.Repeat("b", 200)
		text, changed := Truncate(in, 50)
		assert.True(changed)
		assert.True(strings.HasPrefix(text, url))
		assert.Equal(50, utf8.RuneCountInString(text))
		assert.True(strings.HasSuffix(text, Ellipsis))
	})

	t.Run("Text Between URLs Dropped After Cut", func(t *testing.T) {
		first := "https://example.com/one"
		second := "https://example.com/two"
		in := first + " " + strings.Repeat("c", 100) + " " + second + " tail"
		text, changed := Truncate(in, 70)
		assert.True(changed)
		assert.Contains(text, first)
		assert.Contains(text, second)
		assert.NotContains(text, "tail")
		assert.LessOrEqual(utf8.RuneCountInString(text), 70)
	})

	t.Run("Cut Before Two URLs Keeps Them Apart", func(t *testing.T) {
		first := "https://example.com/one"
		second := "https://example.com/two"
		in := strings.Repeat("c", 100) + " " + first + " middle " + second
		text, changed := Truncate(in, 70)
		assert.True(changed)
		assert.Equal(strings.Repeat("c", 21)+Ellipsis+" "+first+" "+second, text)
		assert.LessOrEqual(utf8.RuneCountInString(text), 70)

		spans := Detect(text)
		if assert.Len(spans, 2) {
			assert.Equal(first, spans[0].Value)
			assert.Equal(second, spans[1].Value)
		}
	})

	t.Run("URLs Alone Over Budget", func(t *testing.T) {
		first := "https://example.com/one"
		second := "https://example.com/two"
		text, changed := Truncate("intro "+first+" middle "+second, 30)
		assert.True(changed)
		assert.Equal(first+" "+second, text)
	})

	t.Run("Multibyte Counted As Characters", func(t *testing.T) {
		in := strings.Repeat("日本", 10)
		text, changed := Truncate(in, 5)
		assert.True(changed)
		assert.Equal("日本日本"+Ellipsis, text)
	})
}

func TestDetect(t *testing.T) {
	assert := assert.New(t)

	t.Run("Links And Mentions", func(t *testing.T) {
		text := "hi @alice.bsky.social see https://example.com/x"
		spans := Detect(text)
		if !assert.Len(spans, 2) {
			return
		}
		assert.Equal(SpanMention, spans[0].Kind)
		assert.Equal("alice.bsky.social", spans[0].Value)
		assert.Equal("@alice.bsky.social", text[spans[0].ByteStart:spans[0].ByteEnd])
		assert.Equal(SpanLink, spans[1].Kind)
		assert.Equal("https://example.com/x", spans[1].Value)
		assert.Equal("https://example.com/x", text[spans[1].ByteStart:spans[1].ByteEnd])
	})

	t.Run("Byte Offsets After Multibyte", func(t *testing.T) {
		text := "日本 @bob.example.com"
		spans := Detect(text)
		if !assert.Len(spans, 1) {
			return
		}
		assert.Equal(len("日本 "), spans[0].ByteStart)
		assert.Equal(len(text), spans[0].ByteEnd)
	})

	t.Run("Fediverse Address Ignored", func(t *testing.T) {
		assert.Empty(Detect("ping @bob@mastodon.social"))
	})

	t.Run("Handle Without Dot Ignored", func(t *testing.T) {
		assert.Empty(Detect("hello @bob!"))
	})

	t.Run("Trailing Punctuation", func(t *testing.T) {
		spans := Detect("(@carol.example.org).")
		if !assert.Len(spans, 1) {
			return
		}
		assert.Equal("carol.example.org", spans[0].Value)
	})
}
