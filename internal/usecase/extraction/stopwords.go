package extraction

// stopwords are never emitted as entities.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true,
	"and": true, "or": true, "but": true,
	"with": true, "without": true, "for": true, "of": true,
	"in": true, "on": true, "at": true, "to": true, "from": true,
	"is": true, "are": true, "was": true, "be": true,
	"i": true, "me": true, "my": true, "we": true, "our": true,
	"you": true, "your": true, "it": true, "its": true,
	"this": true, "that": true, "these": true, "those": true,
	"what": true, "which": true, "who": true, "how": true,
	"do": true, "does": true, "can": true, "could": true,
	"want": true, "need": true, "looking": true, "find": true,
	"some": true, "any": true, "something": true, "tool": true, "tools": true,
	"best": true, "good": true, "top": true, "new": true,
}

func isStopword(word string) bool {
	return stopwords[word]
}
