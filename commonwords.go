package repomap

// commonWords is a small stopword list of identifiers too generic to be
// useful ranking signals (builtin types, common keywords-as-identifiers
// across the supported grammars). Mirrors the teacher's intent of
// filtering "short names and common words" before building the graph.
var commonWords = map[string]struct{}{
	"self": {}, "this": {}, "true": {}, "false": {}, "nil": {}, "null": {},
	"int": {}, "string": {}, "bool": {}, "float": {}, "byte": {}, "error": {},
	"len": {}, "new": {}, "make": {}, "init": {}, "main": {}, "print": {},
	"return": {}, "get": {}, "set": {}, "id": {}, "name": {}, "value": {},
	"data": {}, "item": {}, "key": {}, "type": {}, "object": {}, "list": {},
}

func isCommonWord(name string) bool {
	_, ok := commonWords[normalizeWord(name)]
	return ok
}

func normalizeWord(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}
