package arxiv

// RawEntry is a typed view of one parsed Atom entry node.
// Every field is optional: a nil pointer means the element was absent or
// not a string in the parsed tree.
type RawEntry struct {
	ID        *string
	Updated   *string
	Published *string
	Title     *string
	Summary   *string

	Authors    []RawAuthor
	Links      []RawLink
	Categories []RawCategory

	// arXiv extension elements. Decoded but not surfaced in PaperSummary.
	Comment         *string
	PrimaryCategory *string
	DOI             *string
	JournalRef      *string
}

// RawAuthor is an <author> element.
type RawAuthor struct {
	Name *string
}

// RawLink holds the attributes of a <link> element.
type RawLink struct {
	Href  *string
	Rel   *string
	Title *string
	Type  *string
}

// RawCategory holds the attributes of a <category> element.
type RawCategory struct {
	Term   *string
	Scheme *string
}
