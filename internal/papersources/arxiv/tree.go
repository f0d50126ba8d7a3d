package arxiv

import (
	"fmt"
	"sync"

	"github.com/clbanning/mxj/v2"
)

// attrPrefix marks attribute keys in the parsed tree, e.g. "@_href".
const attrPrefix = "@_"

// textKey holds the character data of an element that also carries attributes.
const textKey = "#text"

var configureTree sync.Once

// ParseTree converts an Atom document into a nested map tree.
//
// Attributes appear under attrPrefix-prefixed keys, repeated elements become
// []any, numeric and boolean text is cast to float64 and bool, and text values
// are trimmed. Element keys use the local name without the namespace prefix.
func ParseTree(body []byte) (any, error) {
	configureTree.Do(func() {
		mxj.SetAttrPrefix(attrPrefix)
	})

	m, err := mxj.NewMapXml(body, true)
	if err != nil {
		return nil, fmt.Errorf("parsing xml: %w", err)
	}
	return map[string]any(m), nil
}

func attr(name string) string {
	return attrPrefix + name
}
