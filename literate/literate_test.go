package literate

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

const document = "# Title\n" +
	"\n" +
	"Some prose.\n" +
	"\n" +
	"```snaplisp\n" +
	"(def x 1)\n" +
	"(def y 2)\n" +
	"```\n" +
	"\n" +
	"```php\n" +
	"echo 1;\n" +
	"```\n" +
	"\n" +
	"```Lisp\n" +
	"(println x)\n" +
	"```\n" +
	"\n" +
	"```lisp\n" +
	"```\n"

func TestExtract(t *testing.T) {
	blocks := Extract([]byte(document), nil)
	assert.Equal(t, 2, len(blocks))

	assert.Equal(t, "snaplisp", blocks[0].Language)
	assert.Equal(t, "(def x 1)\n(def y 2)\n", blocks[0].Code)
	assert.Equal(t, 6, blocks[0].StartLine)
	assert.Equal(t, "(def x 1)\n(def y 2)\n", document[blocks[0].Start:blocks[0].Stop])

	assert.Equal(t, "lisp", blocks[1].Language)
	assert.Equal(t, "(println x)\n", blocks[1].Code)
	assert.Equal(t, 15, blocks[1].StartLine)
}

func TestExtractLanguages(t *testing.T) {
	blocks := Extract([]byte(document), []string{"php"})
	assert.Equal(t, 1, len(blocks))
	assert.Equal(t, "echo 1;\n", blocks[0].Code)
	assert.Equal(t, 11, blocks[0].StartLine)
}

func TestLineOf(t *testing.T) {
	content := []byte("a\nb\nc")
	assert.Equal(t, 1, LineOf(content, 0))
	assert.Equal(t, 2, LineOf(content, 2))
	assert.Equal(t, 3, LineOf(content, 4))
	assert.Equal(t, 3, LineOf(content, 100))
}
