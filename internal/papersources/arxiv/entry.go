package arxiv

// asSequence flattens the single-or-repeated shape of a parsed element:
// absent yields nil, a repeated element is returned unchanged, and anything
// else becomes a one-element slice.
func asSequence(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// stringField returns m[key] when it is a string.
func stringField(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok {
		return &s
	}
	return nil
}

// objectOf returns v as a map, or an empty map when v is any other shape.
func objectOf(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// decodeEntry builds the typed view of an entry node.
// It reports false when node is not an object.
func decodeEntry(node any) (RawEntry, bool) {
	m, ok := node.(map[string]any)
	if !ok {
		return RawEntry{}, false
	}

	entry := RawEntry{
		ID:         stringField(m, "id"),
		Updated:    stringField(m, "updated"),
		Published:  stringField(m, "published"),
		Title:      stringField(m, "title"),
		Summary:    stringField(m, "summary"),
		Comment:    stringField(m, "comment"),
		DOI:        stringField(m, "doi"),
		JournalRef: stringField(m, "journal_ref"),
	}

	if pc, ok := m["primary_category"].(map[string]any); ok {
		entry.PrimaryCategory = stringField(pc, attr("term"))
	}

	for _, a := range asSequence(m["author"]) {
		entry.Authors = append(entry.Authors, RawAuthor{
			Name: stringField(objectOf(a), "name"),
		})
	}

	for _, l := range asSequence(m["link"]) {
		lm := objectOf(l)
		entry.Links = append(entry.Links, RawLink{
			Href:  stringField(lm, attr("href")),
			Rel:   stringField(lm, attr("rel")),
			Title: stringField(lm, attr("title")),
			Type:  stringField(lm, attr("type")),
		})
	}

	for _, c := range asSequence(m["category"]) {
		cm := objectOf(c)
		entry.Categories = append(entry.Categories, RawCategory{
			Term:   stringField(cm, attr("term")),
			Scheme: stringField(cm, attr("scheme")),
		})
	}

	return entry, true
}
